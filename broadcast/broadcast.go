package broadcast

import (
	"context"
	"time"
)

// EventType names what happened in another client.
type EventType string

const (
	// EventStorageRemoved mirrors a browser storage event for a removed key.
	EventStorageRemoved EventType = "storage.removed"
	// EventLogout is the explicit logout broadcast.
	EventLogout EventType = "auth.logout"
)

// Event is one cross-client notification.
type Event struct {
	Type   EventType `json:"type"`
	Key    string    `json:"key,omitempty"`
	Origin string    `json:"origin"`
	At     time.Time `json:"at"`
}

// Broadcaster fans events out to every subscriber.
type Broadcaster interface {
	Publish(ctx context.Context, event Event) error
	// Subscribe returns a channel of events and a cancel func that closes it.
	Subscribe(ctx context.Context) (<-chan Event, func(), error)
}
