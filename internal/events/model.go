package events

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	UserRegistered  Type = "user.registered"
	UserRoleChanged Type = "user.role_changed"
	UserDeleted     Type = "user.deleted"
	ExpenseCreated  Type = "expense.created"
	ExpenseUpdated  Type = "expense.updated"
	ExpenseDeleted  Type = "expense.deleted"
)

// Event is a domain change notification. ActorID is the account that caused
// it and SubjectID the record it concerns.
type Event struct {
	ID         string         `json:"id"`
	Type       Type           `json:"type"`
	ActorID    int64          `json:"actorId"`
	SubjectID  int64          `json:"subjectId"`
	OccurredAt time.Time      `json:"occurredAt"`
	Data       map[string]any `json:"data,omitempty"`
}

func New(t Type, actorID, subjectID int64, data map[string]any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		ActorID:    actorID,
		SubjectID:  subjectID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}
