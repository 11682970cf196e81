// Package workflows holds scripted pipelines chaining several agents
package workflows

import (
	"time"

	"github.com/google/uuid"
)

// Event is the kind of a RunResponse
type Event string

const (
	EventRunResponse  Event = "RunResponse"
	EventRunCompleted Event = "RunCompleted"
)

// RunResponse is produced by a workflow run
type RunResponse struct {
	RunID     string            `json:"run_id"`
	Workflow  string            `json:"workflow"`
	Content   string            `json:"content,omitempty"`
	Event     Event             `json:"event"`
	Meta      map[string]string `json:"meta,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewRunID returns a random run id
func NewRunID() string {
	return uuid.NewString()
}

// NewRunResponse returns a response of a run
func NewRunResponse(runID string, workflow string, event Event, content string) *RunResponse {
	return &RunResponse{
		RunID:     runID,
		Workflow:  workflow,
		Content:   content,
		Event:     event,
		CreatedAt: time.Now(),
	}
}
