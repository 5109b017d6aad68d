package worker

import (
	"time"
)

// Job asks the worker for one sync run over every configured album.
type Job struct {
	Reason string // "startup", "schedule", "reload", ...
	At     time.Time
}

// NewJob stamps a job with the current time.
func NewJob(reason string) Job {
	return Job{Reason: reason, At: time.Now()}
}
