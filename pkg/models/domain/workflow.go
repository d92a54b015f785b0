package domain

import "time"

// Workflow describes the periodic re-assessment loop for one dataset
// profile: persisted progress plus whether a scheduler currently owns
// the loop.
type Workflow struct {
	Profile   string
	Running   bool
	Interval  time.Duration
	CreatedAt time.Time
	LastRunID *string
	LastRunAt *time.Time
	Error     *string
}
