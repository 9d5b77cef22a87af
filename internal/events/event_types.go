package events

import (
	"time"

	"github.com/spec-kit/fault-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventFaultCreated       EventType = "fault_created"
	EventFaultAssigned      EventType = "fault_assigned"
	EventFaultStatusChanged EventType = "fault_status_changed"
	EventCommentAdded       EventType = "comment_added"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	FaultID   string      `json:"fault_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// FaultCreatedPayload carries the fully joined record of a new fault.
type FaultCreatedPayload struct {
	Fault domain.FaultDetail `json:"fault"`
}

// FaultAssignedPayload carries the joined record after assignment.
type FaultAssignedPayload struct {
	Fault      domain.FaultDetail `json:"fault"`
	AssigneeID string             `json:"assignee_id"`
}

// FaultStatusChangedPayload carries the joined record after a status update.
type FaultStatusChangedPayload struct {
	Fault     domain.FaultDetail `json:"fault"`
	OldStatus domain.FaultStatus `json:"old_status"`
	NewStatus domain.FaultStatus `json:"new_status"`
}

// CommentAddedPayload carries the joined comment keyed by fault id.
type CommentAddedPayload struct {
	FaultID string               `json:"fault_id"`
	Comment domain.CommentDetail `json:"comment"`
}
