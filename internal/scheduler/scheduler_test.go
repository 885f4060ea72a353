package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/smallbiznis/mockpay/internal/clock"
	"github.com/smallbiznis/mockpay/internal/invoice/domain"
	"github.com/smallbiznis/mockpay/internal/invoice/store"
	"go.uber.org/zap"
)

type fakeDispatcher struct {
	dispatched chan domain.Invoice
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{dispatched: make(chan domain.Invoice, 16)}
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, inv domain.Invoice) {
	_ = ctx
	f.dispatched <- inv
}

func newTestEmitter(t *testing.T, st *store.Store, dispatcher Dispatcher) *Emitter {
	t.Helper()
	e, err := New(Params{
		Log:        zap.NewNop(),
		Store:      st,
		Dispatcher: dispatcher,
		Clock:      clock.NewSystem(),
	})
	if err != nil {
		t.Fatalf("new emitter: %v", err)
	}
	t.Cleanup(func() {
		_ = e.Shutdown(context.Background())
	})
	return e
}

func insertInvoice(t *testing.T, st *store.Store) domain.Invoice {
	t.Helper()
	inv := domain.Invoice{
		ID:         uuid.New(),
		Amount:     10_000,
		Currency:   "BRL",
		Status:     domain.StatusCreated,
		WebhookURL: "http://receiver.local/wh",
		EmitStatus: domain.StatusPaid,
		CreatedAt:  time.Now().UTC(),
	}
	if err := st.Insert(inv); err != nil {
		t.Fatalf("insert: %v", err)
	}
	return inv
}

func TestArmFiresOnceAfterDelay(t *testing.T) {
	st := store.New()
	dispatcher := newFakeDispatcher()
	e := newTestEmitter(t, st, dispatcher)

	inv := insertInvoice(t, st)
	e.Arm(inv.ID, 20*time.Millisecond, domain.StatusPaid)

	select {
	case got := <-dispatcher.dispatched:
		if got.ID != inv.ID {
			t.Fatalf("dispatched wrong invoice: %s", got.ID)
		}
		if got.Status != domain.StatusPaid {
			t.Fatalf("dispatched invoice must carry terminal status, got %s", got.Status)
		}
		if got.EmittedAt == nil {
			t.Fatalf("dispatched invoice must carry emitted_at")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("emission never fired")
	}

	stored, err := st.Get(inv.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != domain.StatusPaid {
		t.Fatalf("store must record terminal status before dispatch, got %s", stored.Status)
	}

	select {
	case <-dispatcher.dispatched:
		t.Fatalf("invoice dispatched twice")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestArmZeroDelayStillAsync(t *testing.T) {
	st := store.New()
	dispatcher := newFakeDispatcher()
	e := newTestEmitter(t, st, dispatcher)

	inv := insertInvoice(t, st)

	// Arm must return without waiting for the emission.
	done := make(chan struct{})
	go func() {
		e.Arm(inv.ID, 0, domain.StatusFailed)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Arm blocked on a zero delay")
	}

	select {
	case got := <-dispatcher.dispatched:
		if got.Status != domain.StatusFailed {
			t.Fatalf("unexpected status %s", got.Status)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("zero-delay emission never fired")
	}
}

func TestFireOnAlreadyEmittedInvoiceIsNoOp(t *testing.T) {
	st := store.New()
	dispatcher := newFakeDispatcher()
	e := newTestEmitter(t, st, dispatcher)

	inv := insertInvoice(t, st)
	if _, err := st.MarkEmitted(inv.ID, domain.StatusCanceled, time.Now()); err != nil {
		t.Fatalf("mark emitted: %v", err)
	}

	e.Arm(inv.ID, 0, domain.StatusPaid)

	select {
	case <-dispatcher.dispatched:
		t.Fatalf("already emitted invoice must not dispatch again")
	case <-time.After(150 * time.Millisecond):
	}

	stored, err := st.Get(inv.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != domain.StatusCanceled {
		t.Fatalf("terminal status must not be overwritten, got %s", stored.Status)
	}
}

func TestFireOnMissingInvoiceIsNoOp(t *testing.T) {
	st := store.New()
	dispatcher := newFakeDispatcher()
	e := newTestEmitter(t, st, dispatcher)

	e.Arm(uuid.New(), 0, domain.StatusPaid)

	select {
	case <-dispatcher.dispatched:
		t.Fatalf("missing invoice must not dispatch")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestIndependentInvoicesDoNotBlockEachOther(t *testing.T) {
	st := store.New()
	dispatcher := newFakeDispatcher()
	e := newTestEmitter(t, st, dispatcher)

	slow := insertInvoice(t, st)
	fast := insertInvoice(t, st)

	e.Arm(slow.ID, 500*time.Millisecond, domain.StatusExpired)
	e.Arm(fast.ID, 10*time.Millisecond, domain.StatusPaid)

	select {
	case got := <-dispatcher.dispatched:
		if got.ID != fast.ID {
			t.Fatalf("slow invoice must not delay the fast one")
		}
	case <-time.After(300 * time.Millisecond):
		t.Fatalf("fast invoice never fired")
	}
}

func TestShutdownAbandonsPendingTimers(t *testing.T) {
	st := store.New()
	dispatcher := newFakeDispatcher()
	e := newTestEmitter(t, st, dispatcher)

	inv := insertInvoice(t, st)
	e.Arm(inv.ID, time.Hour, domain.StatusPaid)

	start := time.Now()
	if err := e.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("shutdown waited on an abandoned timer: %v", elapsed)
	}

	stored, err := st.Get(inv.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != domain.StatusCreated {
		t.Fatalf("abandoned task must not transition the invoice, got %s", stored.Status)
	}
}
