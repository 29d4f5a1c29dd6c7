package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// ScreenshotDebugger saves full-page screenshots when something goes wrong.
type ScreenshotDebugger struct {
	outputDir string
	log       *logrus.Entry
}

func NewScreenshotDebugger(dir string, log *logrus.Entry) *ScreenshotDebugger {
	return &ScreenshotDebugger{outputDir: dir, log: log}
}

func (s *ScreenshotDebugger) CaptureAndLog(page Page, name, message string) (string, error) {
	if s == nil || s.outputDir == "" || page == nil {
		return "", nil
	}
	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create screenshot dir: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	path := filepath.Join(s.outputDir, fmt.Sprintf("%s_%s.png", name, timestamp))
	s.log.Infof("📸 %s", message)

	if err := page.Screenshot(path); err != nil {
		s.log.Warnf("⚠️ Failed to capture screenshot: %v", err)
		return "", err
	}

	s.log.Infof("   Screenshot saved: %s", path)
	return path, nil
}

// Capture saves a screenshot of the current page, if any.
func (s *Session) Capture(name, message string) (string, error) {
	return s.shots.CaptureAndLog(s.currentPage(), name, message)
}
