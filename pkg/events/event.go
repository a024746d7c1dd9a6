package events

import (
	"time"

	"github.com/google/uuid"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "RUN_COMPLETED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

const (
	TypeRunCompleted = "RUN_COMPLETED"
	TypeRunFailed    = "RUN_FAILED"
	TypeRunCancelled = "RUN_CANCELLED"
	TypeCodesApplied = "CODES_APPLIED"
)

func NewRunCompletedEvent(runId, categoryId uuid.UUID, meceScore int) Event {
	return BaseEvent{
		Type: TypeRunCompleted,
		Data: map[string]interface{}{
			"run_id":      runId.String(),
			"category_id": categoryId.String(),
			"mece_score":  meceScore,
		},
		OccurredAt: time.Now().UTC(),
	}
}

func NewRunFailedEvent(runId, categoryId uuid.UUID, reason string) Event {
	return BaseEvent{
		Type: TypeRunFailed,
		Data: map[string]interface{}{
			"run_id":      runId.String(),
			"category_id": categoryId.String(),
			"reason":      reason,
		},
		OccurredAt: time.Now().UTC(),
	}
}

func NewRunCancelledEvent(runId, categoryId uuid.UUID) Event {
	return BaseEvent{
		Type: TypeRunCancelled,
		Data: map[string]interface{}{
			"run_id":      runId.String(),
			"category_id": categoryId.String(),
		},
		OccurredAt: time.Now().UTC(),
	}
}

func NewCodesAppliedEvent(runId, categoryId uuid.UUID, autoAssigned, needsReview int) Event {
	return BaseEvent{
		Type: TypeCodesApplied,
		Data: map[string]interface{}{
			"run_id":        runId.String(),
			"category_id":   categoryId.String(),
			"auto_assigned": autoAssigned,
			"needs_review":  needsReview,
		},
		OccurredAt: time.Now().UTC(),
	}
}
