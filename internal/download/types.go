package download

import (
	"fmt"

	"shellcast/internal/models"
	"shellcast/internal/msg"
)

// Status is the per-episode download state machine:
// Queued -> InProgress -> Completed | Failed.
type Status int

const (
	StatusQueued Status = iota
	StatusInProgress
	StatusCompleted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusQueued:
		return "queued"
	case StatusInProgress:
		return "in progress"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Task is one episode download request: the episode to fetch and the
// directory the finished file belongs in. The episode data is a copy;
// the manager never reaches into live catalog state.
type Task struct {
	Episode   models.Episode
	PodcastID int64
	Dir       string
}

// Error is a download failure tagged with where in the pipeline it
// happened.
type Error struct {
	Kind msg.FailureKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
