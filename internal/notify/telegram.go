package notify

import (
	"fmt"
	"strings"

	"go-jobscout/internal/logging"
	"go-jobscout/internal/models"

	"github.com/dustin/go-humanize"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// DefaultTelegramJobs caps how many individual job messages one run sends.
const DefaultTelegramJobs = 10

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram reports the outcome of a run to one chat: a summary, the first
// few jobs and the final status. Status and progress updates stay local.
type Telegram struct {
	api     sender
	chatID  int64
	log     *logrus.Entry
	MaxJobs int
}

func NewTelegram(token string, chatID int64, log *logrus.Entry) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}
	//turn this on in case of debug
	//api.Debug = true
	return newTelegram(api, chatID, log), nil
}

func newTelegram(api sender, chatID int64, log *logrus.Entry) *Telegram {
	return &Telegram{api: api, chatID: chatID, log: logging.OrDiscard(log), MaxJobs: DefaultTelegramJobs}
}

func escapeMarkdown(text string) string {
	replacer := strings.NewReplacer(
		"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]", "(", "\\(",
		")", "\\)", "~", "\\~", "`", "\\`", ">", "\\>", "#", "\\#",
		"+", "\\+", "-", "\\-", "=", "\\=", "|", "\\|", "{", "\\{",
		"}", "\\}", ".", "\\.", "!", "\\!",
	)
	return replacer.Replace(text)
}

func (t *Telegram) send(msg tgbotapi.MessageConfig) {
	if _, err := t.api.Send(msg); err != nil {
		t.log.Warnf("⚠️ Failed to send Telegram message: %v", err)
	}
}

func (t *Telegram) StatusMessage(text string) {
	t.log.Debugf("Telegram skips status: %s", text)
}

func (t *Telegram) ProgressPercent(int) {}

func (t *Telegram) JobsFound(jobs []models.JobRecord) {
	summary := fmt.Sprintf("🔍 *%s* new jobs found", escapeMarkdown(humanize.Comma(int64(len(jobs)))))
	if extra := len(jobs) - t.MaxJobs; t.MaxJobs > 0 && extra > 0 {
		summary += escapeMarkdown(fmt.Sprintf("\n(showing the first %d, %s more in the app)", t.MaxJobs, humanize.Comma(int64(extra))))
	}
	msg := tgbotapi.NewMessage(t.chatID, summary)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	t.send(msg)

	for i, job := range jobs {
		if t.MaxJobs > 0 && i >= t.MaxJobs {
			break
		}
		t.send(t.jobMessage(job))
	}
}

func (t *Telegram) jobMessage(job models.JobRecord) tgbotapi.MessageConfig {
	//build message chunks
	text := fmt.Sprintf("💼 *%s*\n", escapeMarkdown(job.Title))
	text += fmt.Sprintf("🏢 %s\n", escapeMarkdown(job.Organization))

	loc := job.Location
	if loc == "" {
		loc = "N/A"
	}
	text += fmt.Sprintf("📍 %s\n", escapeMarkdown(loc))

	if job.PostedDate != "" {
		text += fmt.Sprintf("📅 %s\n", escapeMarkdown(job.PostedDate))
	}
	if job.ExperienceLevel != "" {
		text += fmt.Sprintf("🎓 %s\n", escapeMarkdown(job.ExperienceLevel))
	}
	if job.JobCategory != "" {
		text += fmt.Sprintf("🕒 %s\n", escapeMarkdown(job.JobCategory))
	}

	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	if job.URL != "" {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("🔗 View Job", job.URL)),
		)
	}
	return msg
}

func (t *Telegram) Finished(success bool, message string) {
	text := "✅ " + message
	if !success {
		text = fmt.Sprintf("❌ Error: %s", message)
	}
	t.send(tgbotapi.NewMessage(t.chatID, text))
}
