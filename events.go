package fintalk

import (
	"context"
	"time"
)

// Event notifies that an entry has been recorded in a ledger.
type Event struct {
	Session    string    `json:"session"`
	Entry      Entry     `json:"entry"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Publisher streams ledger events to an external system.
//
// Publish must not block the caller for long: implementations are expected
// to buffer or send asynchronously.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}
