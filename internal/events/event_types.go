package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventLogin           EventType = "login"
	EventLogout          EventType = "logout"
	EventClientCreated   EventType = "client_created"
	EventClientUpdated   EventType = "client_updated"
	EventClientDeleted   EventType = "client_deleted"
	EventClientContacted EventType = "client_contacted"
	EventMessageSaved    EventType = "client_message_saved"
	EventOperatorCreated EventType = "operator_created"
	EventOperatorUpdated EventType = "operator_updated"
	EventOperatorDeleted EventType = "operator_deleted"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Actor     string    `json:"actor"`
	Subject   string    `json:"subject,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// NewEvent stamps an event with an id and the current time.
func NewEvent(eventType EventType, actor, subject string, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Actor:     actor,
		Subject:   subject,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// ClientChangedPayload identifies the record and the fields an update touched.
type ClientChangedPayload struct {
	Name   string   `json:"name"`
	Fields []string `json:"fields,omitempty"`
}

// OperatorChangedPayload describes an account change.
type OperatorChangedPayload struct {
	Role        string   `json:"role,omitempty"`
	Deactivated bool     `json:"deactivated,omitempty"`
	Fields      []string `json:"fields,omitempty"`
}
