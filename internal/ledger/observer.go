package ledger

import (
	"context"
	"time"
)

// Op names a ledger mutation.
type Op string

const (
	OpAdd    Op = "add"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpClear  Op = "clear"
)

// Event describes a persisted mutation. ID is zero for OpClear; Count is the
// collection size after the mutation.
type Event struct {
	Op    Op        `json:"op"`
	ID    int64     `json:"id,omitempty"`
	Count int       `json:"count"`
	At    time.Time `json:"at"`
}

// Observer is notified after every persisted mutation, outside the store lock.
type Observer interface {
	TransactionsChanged(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev Event)

func (f ObserverFunc) TransactionsChanged(ctx context.Context, ev Event) { f(ctx, ev) }

type pendingEvent struct {
	Event
	observers []Observer
}
