package notify

import (
	"fmt"
	"io"
	"sync"

	"go-jobscout/internal/models"

	"github.com/cheggaaa/pb/v3"
)

const terminalTemplate = `{{string . "status"}} {{bar . "[" "=" ">" " " "]"}} {{percent .}}`

// Terminal draws a progress bar for the current run on w.
type Terminal struct {
	w io.Writer

	mu  sync.Mutex
	bar *pb.ProgressBar
}

func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{w: w}
}

// started returns the running bar, creating one for a new run. Callers hold t.mu.
func (t *Terminal) started() *pb.ProgressBar {
	if t.bar == nil {
		t.bar = pb.New(100).
			SetTemplateString(terminalTemplate).
			SetWriter(t.w).
			SetMaxWidth(100).
			Set("status", "Starting...").
			Start()
	}
	return t.bar
}

func (t *Terminal) StatusMessage(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started().Set("status", text)
}

func (t *Terminal) ProgressPercent(percent int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started().SetCurrent(int64(clampPercent(percent)))
}

func (t *Terminal) JobsFound(jobs []models.JobRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started().Set("status", fmt.Sprintf("📦 %d jobs found", len(jobs)))
}

func (t *Terminal) Finished(success bool, message string) {
	t.mu.Lock()
	bar := t.bar
	t.bar = nil
	t.mu.Unlock()

	if bar != nil {
		if success {
			bar.SetCurrent(100)
		}
		bar.Finish()
	}
	mark := "✅"
	if !success {
		mark = "❌"
	}
	fmt.Fprintf(t.w, "%s %s\n", mark, message)
}
