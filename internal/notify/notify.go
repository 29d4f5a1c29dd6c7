// Package notify carries search progress from the worker to whoever is
// watching: an HTTP client, a terminal, a log, a Telegram chat.
package notify

import (
	"time"

	"go-jobscout/internal/models"
)

// Notifier receives progress from one search run at a time. Calls arrive
// from the worker goroutine and must not block for long.
type Notifier interface {
	StatusMessage(text string)
	ProgressPercent(percent int)
	// JobsFound is called once per successful run with the full result.
	JobsFound(jobs []models.JobRecord)
	Finished(success bool, message string)
}

// RunTracker is implemented by notifiers that tag what they emit with the
// run it belongs to.
type RunTracker interface {
	StartRun(runID string)
}

type Kind string

const (
	KindStatus   Kind = "status"
	KindProgress Kind = "progress"
	KindJobs     Kind = "jobs"
	KindFinished Kind = "finished"
)

// Event is one notification as a value.
type Event struct {
	RunID   string             `json:"run_id"`
	Kind    Kind               `json:"kind"`
	Message string             `json:"message,omitempty"`
	Percent int                `json:"percent,omitempty"`
	Jobs    []models.JobRecord `json:"jobs,omitempty"`
	Success bool               `json:"success"`
	At      time.Time          `json:"at"`
}

// Multi fans every call out to each notifier in order.
type Multi []Notifier

func (m Multi) StartRun(runID string) {
	for _, n := range m {
		if rt, ok := n.(RunTracker); ok {
			rt.StartRun(runID)
		}
	}
}

func (m Multi) StatusMessage(text string) {
	for _, n := range m {
		n.StatusMessage(text)
	}
}

func (m Multi) ProgressPercent(percent int) {
	for _, n := range m {
		n.ProgressPercent(percent)
	}
}

func (m Multi) JobsFound(jobs []models.JobRecord) {
	for _, n := range m {
		n.JobsFound(jobs)
	}
}

func (m Multi) Finished(success bool, message string) {
	for _, n := range m {
		n.Finished(success, message)
	}
}

// clampPercent keeps progress inside 0..100.
func clampPercent(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
