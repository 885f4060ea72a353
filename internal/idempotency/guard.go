// Package idempotency deduplicates creation requests that share an
// Idempotency-Key header. Keys are scoped to the process and never expire.
package idempotency

import (
	"sync"

	"github.com/google/uuid"
)

// Guard maps idempotency keys to the invoice produced by the first request
// bearing that key.
type Guard struct {
	keys sync.Map // string -> *reservation
}

type reservation struct {
	done      chan struct{}
	invoiceID uuid.UUID
	err       error
}

func New() *Guard {
	return &Guard{}
}

// GetOrCreate runs create at most once per key. An empty key always runs
// create. The key is reserved atomically before create runs, so racing
// duplicates block on the reservation and observe the winner's result
// instead of creating a second invoice. A failed create releases the key
// so a later retry can succeed.
//
// The returned bool is true when the result was replayed from a previous
// request rather than freshly created.
func (g *Guard) GetOrCreate(key string, create func() (uuid.UUID, error)) (uuid.UUID, bool, error) {
	if key == "" {
		id, err := create()
		return id, false, err
	}

	res := &reservation{done: make(chan struct{})}
	actual, loaded := g.keys.LoadOrStore(key, res)
	r := actual.(*reservation)
	if loaded {
		<-r.done
		return r.invoiceID, true, r.err
	}

	r.invoiceID, r.err = create()
	if r.err != nil {
		g.keys.Delete(key)
	}
	close(r.done)
	return r.invoiceID, false, r.err
}

// Lookup returns the invoice ID reserved under key, if any.
func (g *Guard) Lookup(key string) (uuid.UUID, bool) {
	value, ok := g.keys.Load(key)
	if !ok {
		return uuid.Nil, false
	}
	r := value.(*reservation)
	select {
	case <-r.done:
	default:
		return uuid.Nil, false
	}
	if r.err != nil {
		return uuid.Nil, false
	}
	return r.invoiceID, true
}
