package store

import "time"

type Workflow struct {
	Profile         string
	CreatedAt       time.Time
	LastProcessedAt *time.Time
	LastRunID       *string
	Error           *string
}

type WorkflowIdentity struct {
	Profile string
}
