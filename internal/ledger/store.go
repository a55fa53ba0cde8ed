// Package ledger owns the transaction collection and keeps it persisted in a
// single key-value slot.
//
// The store is the only writer of the collection. Every mutation persists the
// full collection synchronously and then notifies registered observers.
// Missing records and malformed slots never surface as errors: updates and
// deletes of unknown ids are no-ops, and a missing or malformed slot loads as
// an empty ledger. A slot that cannot be read is different: the store keeps
// its previous state and never overwrites the slot until a read succeeds.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ledger/internal/core"
	"ledger/internal/kv"
	applog "ledger/internal/log"
)

// SlotKey is the default slot holding the JSON array of transactions.
const SlotKey = "transactions"

// ErrClearNotConfirmed is returned by Clear unless both confirmations are given.
var ErrClearNotConfirmed = errors.New("clear-all requires two confirmations")

// ErrSlotUnread is returned by Persist until the slot has been read
// successfully.
var ErrSlotUnread = errors.New("ledger slot has not been read")

// Confirmation carries the two sequential user confirmations required
// before discarding every record.
type Confirmation struct {
	First  bool
	Second bool
}

func (c Confirmation) confirmed() bool { return c.First && c.Second }

type Store struct {
	mu        sync.Mutex
	kv        kv.Store
	slot      string
	now       func() time.Time
	logger    *applog.Logger
	items     []core.Transaction
	lastID    int64
	unread    bool
	observers []Observer
}

type Option func(*Store)

// WithClock overrides the time source used for id assignment.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithSlot stores the collection under a different key.
func WithSlot(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.slot = key
		}
	}
}

func WithLogger(l *applog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l.WithComponent(applog.ComponentLedger)
		}
	}
}

// WithObserver registers an observer at construction time.
func WithObserver(o Observer) Option {
	return func(s *Store) { s.observers = append(s.observers, o) }
}

// New builds a store over kvs and loads its current contents.
func New(ctx context.Context, kvs kv.Store, opts ...Option) *Store {
	s := &Store{
		kv:   kvs,
		slot: SlotKey,
		now:  time.Now,
		logger: applog.New(applog.Config{
			Component: applog.ComponentLedger,
			Handler:   slog.Default().Handler(),
		}),
	}
	for _, opt := range opts {
		opt(s)
	}
	// A read failure is logged by Load and retried by the next mutation.
	_ = s.Load(ctx)
	return s
}

// Subscribe registers an observer notified after every persisted mutation.
func (s *Store) Subscribe(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Load replaces the in-memory collection with the persisted one. A missing
// or malformed slot yields an empty collection. When the slot cannot be read
// the previous collection is kept and the error is returned.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

func (s *Store) loadLocked(ctx context.Context) error {
	data, ok, err := s.kv.Get(ctx, s.slot)
	if err != nil {
		s.unread = true
		s.logger.ErrorContext(ctx, "Failed to read ledger slot, keeping previous state",
			applog.FieldSlot, s.slot, applog.FieldCount, len(s.items), applog.FieldError, err)
		return fmt.Errorf("read slot %s: %w", s.slot, err)
	}
	s.unread = false
	s.items = nil
	s.lastID = 0

	if !ok {
		s.logger.InfoContext(ctx, "No ledger slot found, starting empty", applog.FieldSlot, s.slot)
		return nil
	}

	var items []core.Transaction
	if err := json.Unmarshal(data, &items); err != nil {
		s.logger.WarnContext(ctx, "Malformed ledger slot discarded",
			applog.FieldSlot, s.slot, applog.FieldError, err)
		return nil
	}

	s.items = items
	for _, t := range items {
		if t.ID > s.lastID {
			s.lastID = t.ID
		}
	}
	s.logger.InfoContext(ctx, "Ledger loaded",
		applog.FieldSlot, s.slot, applog.FieldCount, len(items))
	return nil
}

// syncLocked retries the slot read when the last one failed, so mutations
// apply on top of the persisted collection.
func (s *Store) syncLocked(ctx context.Context) {
	if s.unread {
		_ = s.loadLocked(ctx)
	}
}

// Add assigns a new id to t, appends it and persists. The id derives from
// the creation time in milliseconds and is bumped past the highest id in use
// when two records are created in the same millisecond.
func (s *Store) Add(ctx context.Context, t core.Transaction) int64 {
	s.mu.Lock()
	s.syncLocked(ctx)
	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	t.ID = id
	s.items = append(s.items, t)
	s.persistLocked(ctx)
	ev := s.eventLocked(OpAdd, id)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Transaction added", applog.NewFields().
		WithOperation(applog.OpCreate).
		WithTransaction(id, string(t.Type), t.Amount, t.Category, t.Date).
		ToSlice()...)
	s.notify(ctx, ev)
	return id
}

// Update merges p over the record with the given id and persists. It reports
// whether a record was found; an unknown id is a no-op.
func (s *Store) Update(ctx context.Context, id int64, p core.Patch) bool {
	s.mu.Lock()
	s.syncLocked(ctx)
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		s.logger.DebugContext(ctx, "Update of unknown transaction ignored", applog.FieldID, id)
		return false
	}
	s.items[i] = p.Apply(s.items[i])
	s.persistLocked(ctx)
	ev := s.eventLocked(OpUpdate, id)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Transaction updated", applog.FieldID, id)
	s.notify(ctx, ev)
	return true
}

// Delete removes the record with the given id and persists. An unknown id
// leaves both memory and the persisted slot untouched.
func (s *Store) Delete(ctx context.Context, id int64) bool {
	s.mu.Lock()
	s.syncLocked(ctx)
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		s.logger.DebugContext(ctx, "Delete of unknown transaction ignored", applog.FieldID, id)
		return false
	}
	s.items = append(s.items[:i:i], s.items[i+1:]...)
	s.persistLocked(ctx)
	ev := s.eventLocked(OpDelete, id)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Transaction deleted", applog.FieldID, id)
	s.notify(ctx, ev)
	return true
}

// Clear irrevocably discards every record once both confirmations are given.
func (s *Store) Clear(ctx context.Context, c Confirmation) error {
	if !c.confirmed() {
		return ErrClearNotConfirmed
	}
	s.mu.Lock()
	s.syncLocked(ctx)
	removed := len(s.items)
	s.items = nil
	s.persistLocked(ctx)
	ev := s.eventLocked(OpClear, 0)
	s.mu.Unlock()

	s.logger.WarnContext(ctx, "Ledger cleared", applog.FieldCount, removed)
	s.notify(ctx, ev)
	return nil
}

// Persist writes the whole collection to the slot in a single write. It
// returns ErrSlotUnread while the slot has not been read successfully.
func (s *Store) Persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(ctx)
}

// All returns a copy of the collection in insertion order.
func (s *Store) All() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, len(s.items))
	copy(out, s.items)
	return out
}

// Get returns the record with the given id.
func (s *Store) Get(id int64) (core.Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.items[i], true
	}
	return core.Transaction{}, false
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Store) indexLocked(id int64) int {
	for i, t := range s.items {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) writeLocked(ctx context.Context) error {
	if s.unread {
		return ErrSlotUnread
	}
	items := s.items
	if items == nil {
		items = []core.Transaction{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, s.slot, data)
}

// persistLocked writes the collection; failures are logged and otherwise
// ignored, mutations stay applied in memory.
func (s *Store) persistLocked(ctx context.Context) {
	if err := s.writeLocked(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist ledger", applog.NewFields().
			WithOperation(applog.OpPersist).
			WithError(err).
			WithSlot(s.slot).
			ToSlice()...)
	}
}

func (s *Store) eventLocked(op Op, id int64) pendingEvent {
	obs := make([]Observer, len(s.observers))
	copy(obs, s.observers)
	return pendingEvent{
		Event:     Event{Op: op, ID: id, Count: len(s.items), At: s.now()},
		observers: obs,
	}
}

func (s *Store) notify(ctx context.Context, pe pendingEvent) {
	for _, o := range pe.observers {
		o.TransactionsChanged(ctx, pe.Event)
	}
}
