package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventObjectStart EventType = "object_start"
	EventObjectDone  EventType = "object_done"
)

// ObjectEvent is emitted around the processing of each document object.
type ObjectEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Command   string    `json:"command"`
	Total     int       `json:"total"`
	// Result is only populated on EventObjectDone.
	Result ObjectResult `json:"result"`
}

// Hooks defines callbacks for pipeline observability.
type Hooks struct {
	OnObjectStart func(context.Context, *ObjectEvent)
	OnObjectDone  func(context.Context, *ObjectEvent)
}

// ChainHooks fans every event out to all given hooks, in order.
func ChainHooks(hooks ...Hooks) Hooks {
	return Hooks{
		OnObjectStart: func(ctx context.Context, e *ObjectEvent) {
			for _, h := range hooks {
				if h.OnObjectStart != nil {
					h.OnObjectStart(ctx, e)
				}
			}
		},
		OnObjectDone: func(ctx context.Context, e *ObjectEvent) {
			for _, h := range hooks {
				if h.OnObjectDone != nil {
					h.OnObjectDone(ctx, e)
				}
			}
		},
	}
}
