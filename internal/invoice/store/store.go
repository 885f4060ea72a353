// Package store holds the authoritative in-memory invoice records. State
// lives for the process lifetime only; a restart clears everything.
package store

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smallbiznis/mockpay/internal/invoice/domain"
)

// Store maps invoice IDs to records. Reads and writes on different
// invoices never contend: each record carries its own lock and the
// top-level map is a sync.Map, so a status transition on one invoice
// cannot serialize operations on another.
type Store struct {
	entries sync.Map // uuid.UUID -> *entry
}

type entry struct {
	mu  sync.Mutex
	inv domain.Invoice
}

func New() *Store {
	return &Store{}
}

// Insert stores a new record. The metadata map is copied so later caller
// mutations cannot leak into the stored invoice.
func (s *Store) Insert(inv domain.Invoice) error {
	inv.Metadata = copyMetadata(inv.Metadata)
	if _, loaded := s.entries.LoadOrStore(inv.ID, &entry{inv: inv}); loaded {
		return domain.ErrDuplicateID
	}
	return nil
}

// Get returns a snapshot of the invoice.
func (s *Store) Get(id uuid.UUID) (domain.Invoice, error) {
	value, ok := s.entries.Load(id)
	if !ok {
		return domain.Invoice{}, domain.ErrNotFound
	}
	e := value.(*entry)
	e.mu.Lock()
	inv := e.inv
	e.mu.Unlock()
	return inv, nil
}

// MarkEmitted transitions the invoice from created to the given terminal
// status. The check-and-set runs under the record's own lock, so two
// concurrent calls for the same ID can never both observe created; the
// loser gets ErrAlreadyEmitted and must not dispatch a webhook.
func (s *Store) MarkEmitted(id uuid.UUID, status domain.Status, emittedAt time.Time) (domain.Invoice, error) {
	value, ok := s.entries.Load(id)
	if !ok {
		return domain.Invoice{}, domain.ErrNotFound
	}
	e := value.(*entry)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.inv.Status != domain.StatusCreated {
		return e.inv, domain.ErrAlreadyEmitted
	}
	e.inv.Status = status
	at := emittedAt.UTC()
	e.inv.EmittedAt = &at
	return e.inv, nil
}

// Len reports the number of stored invoices.
func (s *Store) Len() int {
	n := 0
	s.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func copyMetadata(metadata map[string]any) map[string]any {
	if metadata == nil {
		return nil
	}
	out := make(map[string]any, len(metadata))
	for k, v := range metadata {
		out[k] = v
	}
	return out
}
