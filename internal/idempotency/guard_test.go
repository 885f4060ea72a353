package idempotency

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
)

func TestEmptyKeyAlwaysCreates(t *testing.T) {
	g := New()

	var calls int
	create := func() (uuid.UUID, error) {
		calls++
		return uuid.New(), nil
	}

	first, replayed, err := g.GetOrCreate("", create)
	if err != nil || replayed {
		t.Fatalf("unexpected result: %v replayed=%v", err, replayed)
	}
	second, replayed, err := g.GetOrCreate("", create)
	if err != nil || replayed {
		t.Fatalf("unexpected result: %v replayed=%v", err, replayed)
	}
	if calls != 2 {
		t.Fatalf("expected 2 create calls, got %d", calls)
	}
	if first == second {
		t.Fatalf("empty key must not deduplicate")
	}
}

func TestSameKeyReplaysFirstResult(t *testing.T) {
	g := New()

	var calls int
	id := uuid.New()
	create := func() (uuid.UUID, error) {
		calls++
		return id, nil
	}

	first, replayed, err := g.GetOrCreate("key-1", create)
	if err != nil || replayed {
		t.Fatalf("unexpected result: %v replayed=%v", err, replayed)
	}
	second, replayed, err := g.GetOrCreate("key-1", create)
	if err != nil {
		t.Fatalf("replay errored: %v", err)
	}
	if !replayed {
		t.Fatalf("expected replayed=true on second request")
	}
	if calls != 1 {
		t.Fatalf("expected a single create call, got %d", calls)
	}
	if first != second || second != id {
		t.Fatalf("replay returned a different invoice: %s vs %s", first, second)
	}
}

func TestRacingDuplicatesCreateOnce(t *testing.T) {
	g := New()

	var calls atomic.Int64
	create := func() (uuid.UUID, error) {
		calls.Add(1)
		return uuid.New(), nil
	}

	const racers = 50
	ids := make([]uuid.UUID, racers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			id, _, err := g.GetOrCreate("shared", create)
			if err != nil {
				t.Errorf("GetOrCreate: %v", err)
				return
			}
			ids[i] = id
		}(i)
	}
	close(start)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected exactly one create under race, got %d", got)
	}
	for i := 1; i < racers; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("racing duplicates observed different invoices")
		}
	}
}

func TestFailedCreateReleasesKey(t *testing.T) {
	g := New()

	boom := errors.New("boom")
	fail := func() (uuid.UUID, error) { return uuid.Nil, boom }

	if _, _, err := g.GetOrCreate("key-2", fail); !errors.Is(err, boom) {
		t.Fatalf("expected create error, got %v", err)
	}
	if _, ok := g.Lookup("key-2"); ok {
		t.Fatalf("failed create must not reserve the key")
	}

	id := uuid.New()
	got, replayed, err := g.GetOrCreate("key-2", func() (uuid.UUID, error) { return id, nil })
	if err != nil || replayed {
		t.Fatalf("retry after failure: %v replayed=%v", err, replayed)
	}
	if got != id {
		t.Fatalf("retry returned wrong invoice")
	}
}

func TestLookup(t *testing.T) {
	g := New()

	if _, ok := g.Lookup("missing"); ok {
		t.Fatalf("lookup of unknown key must miss")
	}

	id := uuid.New()
	if _, _, err := g.GetOrCreate("key-3", func() (uuid.UUID, error) { return id, nil }); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	got, ok := g.Lookup("key-3")
	if !ok || got != id {
		t.Fatalf("lookup returned %s ok=%v", got, ok)
	}
}
