package server

import (
	"errors"
	"net/http"
	"strings"

	"go-jobscout/internal/models"
	"go-jobscout/internal/worker"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// parseSearchCommand reads "/search <title> [in <location>]".
func parseSearchCommand(args string) models.SearchRequest {
	args = strings.TrimSpace(args)
	var req models.SearchRequest
	if i := strings.LastIndex(strings.ToLower(args), " in "); i >= 0 {
		req.Title = args[:i]
		req.Location = args[i+len(" in "):]
	} else {
		req.Title = args
	}
	return req.Normalize()
}

// telegramWebhook turns bot commands from the configured chat into runner
// calls. Results reach the chat through the Telegram notifier, so the reply
// here only acknowledges.
func (s *Server) telegramWebhook(c *gin.Context) {
	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg := update.Message
	if msg == nil || !msg.IsCommand() {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	if s.chatID == 0 || msg.Chat == nil || msg.Chat.ID != s.chatID {
		var from int64
		if msg.Chat != nil {
			from = msg.Chat.ID
		}
		s.log.WithField("chat_id", from).Warn("⚠️ Ignoring Telegram command from unknown chat")
		c.JSON(http.StatusForbidden, gin.H{"status": "forbidden"})
		return
	}

	switch msg.Command() {
	case "search":
		req := parseSearchCommand(msg.CommandArguments())
		runID, err := s.runner.Start(s.ctx, req)
		if errors.Is(err, worker.ErrBusy) {
			c.JSON(http.StatusOK, gin.H{"status": "busy", "run_id": s.runner.RunID()})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		s.log.WithField("run_id", runID).Infof("🤖 Search requested from Telegram: %s", req.Describe())
		c.JSON(http.StatusOK, gin.H{"status": "started", "run_id": runID})
	case "cancel":
		c.JSON(http.StatusOK, gin.H{"status": "ok", "cancelled": s.runner.Cancel()})
	default:
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
	}
}
