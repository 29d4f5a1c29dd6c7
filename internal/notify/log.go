package notify

import (
	"sync"

	"go-jobscout/internal/logging"
	"go-jobscout/internal/models"

	"github.com/sirupsen/logrus"
)

// Log writes notifications to a logrus entry.
type Log struct {
	base *logrus.Entry

	mu  sync.Mutex
	log *logrus.Entry
}

func NewLog(log *logrus.Entry) *Log {
	log = logging.OrDiscard(log)
	return &Log{base: log, log: log}
}

func (l *Log) StartRun(runID string) {
	l.mu.Lock()
	l.log = l.base.WithField("run_id", runID)
	l.mu.Unlock()
}

func (l *Log) entry() *logrus.Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.log
}

func (l *Log) StatusMessage(text string) {
	l.entry().Infof("ℹ️ %s", text)
}

func (l *Log) ProgressPercent(percent int) {
	l.entry().Debugf("⏳ Progress: %d%%", clampPercent(percent))
}

func (l *Log) JobsFound(jobs []models.JobRecord) {
	l.entry().Infof("📦 %d jobs found", len(jobs))
}

func (l *Log) Finished(success bool, message string) {
	if success {
		l.entry().Infof("✅ %s", message)
		return
	}
	l.entry().Errorf("❌ %s", message)
}
