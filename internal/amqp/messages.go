package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"kasa/internal/core"
)

// EventKind names the change a CategoryEvent reports.
type EventKind string

const (
	EventCreated  EventKind = "category.created"
	EventUpdated  EventKind = "category.updated"
	EventArchived EventKind = "category.archived"
	EventRestored EventKind = "category.restored"
)

func (k EventKind) Valid() bool {
	switch k {
	case EventCreated, EventUpdated, EventArchived, EventRestored:
		return true
	}
	return false
}

// CategoryEvent is published after a category change succeeded on the backend.
// It carries a snapshot of the identifying fields, not the whole category.
type CategoryEvent struct {
	Kind       EventKind `json:"kind"`
	CategoryID int64     `json:"categoryId"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	// Origin identifies the publishing instance.
	Origin string `json:"origin,omitempty"`
}

func NewCategoryEvent(kind EventKind, c core.Category, now time.Time) CategoryEvent {
	return CategoryEvent{
		Kind:       kind,
		CategoryID: c.ID,
		Name:       c.Name,
		Type:       string(c.Type),
		Timestamp:  now,
	}
}

func (e CategoryEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// CategoryEventFromJSON decodes an event and rejects unknown kinds.
func CategoryEventFromJSON(data []byte) (CategoryEvent, error) {
	var e CategoryEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return CategoryEvent{}, err
	}
	if !e.Kind.Valid() {
		return CategoryEvent{}, fmt.Errorf("unknown event kind %q", e.Kind)
	}
	return e, nil
}
