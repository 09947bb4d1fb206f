package auth

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType names an auth-state change.
type EventType string

const (
	EventSignedUp    EventType = "SIGNED_UP"
	EventSignedIn    EventType = "SIGNED_IN"
	EventSignedOut   EventType = "SIGNED_OUT"
	EventUserUpdated EventType = "USER_UPDATED"
)

// Event describes one auth-state change.
type Event struct {
	Type       EventType
	UserID     uuid.UUID
	Email      string
	SessionID  uuid.UUID
	OccurredAt time.Time
}

// Listener receives events synchronously, in emit order.
type Listener func(ctx context.Context, ev Event)

// Events is an in-process hub for auth-state changes.
type Events struct {
	mu        sync.RWMutex
	nextID    int
	listeners map[int]Listener
}

func NewEvents() *Events {
	return &Events{listeners: make(map[int]Listener)}
}

// Subscribe registers l and returns a function that removes it.
func (e *Events) Subscribe(l Listener) (unsubscribe func()) {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = l
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.listeners, id)
			e.mu.Unlock()
		})
	}
}

// Emit delivers ev to every current listener. A nil hub drops the event.
func (e *Events) Emit(ctx context.Context, ev Event) {
	if e == nil {
		return
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}

	e.mu.RLock()
	ids := make([]int, 0, len(e.listeners))
	for id := range e.listeners {
		ids = append(ids, id)
	}
	e.mu.RUnlock()

	// Deliver in subscription order.
	slices.Sort(ids)
	for _, id := range ids {
		e.mu.RLock()
		l, ok := e.listeners[id]
		e.mu.RUnlock()
		if ok {
			l(ctx, ev)
		}
	}
}
