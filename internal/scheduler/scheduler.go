// Package scheduler arms the fire-once delayed status transition for each
// invoice. Every armed task either runs to completion or is abandoned
// wholesale at shutdown; there is no external cancellation.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smallbiznis/mockpay/internal/clock"
	"github.com/smallbiznis/mockpay/internal/invoice/domain"
	"github.com/smallbiznis/mockpay/internal/invoice/store"
	obsmetrics "github.com/smallbiznis/mockpay/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("scheduler: invalid configuration")

// Dispatcher delivers the webhook for an invoice that just reached its
// terminal status.
type Dispatcher interface {
	Dispatch(ctx context.Context, inv domain.Invoice)
}

type Params struct {
	fx.In

	Log        *zap.Logger
	Store      *store.Store
	Dispatcher Dispatcher
	Clock      clock.Clock
	Config     Config `optional:"true"`
}

// Emitter owns the arena of outstanding per-invoice timers.
type Emitter struct {
	log        *zap.Logger
	store      *store.Store
	dispatcher Dispatcher
	clock      clock.Clock
	cfg        Config

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(p Params) (*Emitter, error) {
	if p.Log == nil || p.Store == nil || p.Dispatcher == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Emitter{
		log:        p.Log.Named("emitter").With(zap.String("component", "emitter")),
		store:      p.Store,
		dispatcher: p.Dispatcher,
		clock:      p.Clock,
		cfg:        p.Config.withDefaults(),
		baseCtx:    ctx,
		cancel:     cancel,
	}, nil
}

// Arm schedules the single fire-once transition for the invoice. It returns
// immediately; the creating request never waits for the delay. A zero delay
// still goes through the timer goroutine so creation is always observably
// complete before emission.
func (e *Emitter) Arm(invoiceID uuid.UUID, delay time.Duration, emitStatus domain.Status) {
	if delay < 0 {
		delay = 0
	}
	emitterMetrics := obsmetrics.Emitter()
	emitterMetrics.IncArmed()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer emitterMetrics.DecArmed()

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
			e.fire(invoiceID, emitStatus)
		case <-e.baseCtx.Done():
			emitterMetrics.IncEmissionSkipped(obsmetrics.EmitSkipReasonShutdown)
		}
	}()
}

func (e *Emitter) fire(invoiceID uuid.UUID, emitStatus domain.Status) {
	log := e.log.With(
		zap.String("invoice_id", invoiceID.String()),
		zap.String("emit_status", string(emitStatus)),
	)
	emitterMetrics := obsmetrics.Emitter()

	inv, err := e.store.MarkEmitted(invoiceID, emitStatus, e.clock.Now())
	switch {
	case errors.Is(err, domain.ErrNotFound):
		// Should not happen while the process is alive, handled anyway.
		emitterMetrics.IncEmissionSkipped(obsmetrics.EmitSkipReasonMissing)
		log.Warn("invoice missing at emission time")
		return
	case errors.Is(err, domain.ErrAlreadyEmitted):
		// A second fire for the same invoice is a logic error upstream.
		emitterMetrics.IncEmissionSkipped(obsmetrics.EmitSkipReasonAlreadyEmitted)
		log.Error("invoice already emitted, refusing to double-fire")
		return
	case err != nil:
		log.Error("mark emitted failed", zap.Error(err))
		return
	}

	emitterMetrics.IncEmission(string(emitStatus))
	log.Info("invoice status emitted")

	ctx, cancel := context.WithTimeout(e.baseCtx, e.cfg.DispatchTimeout)
	defer cancel()
	e.dispatcher.Dispatch(ctx, inv)
}

// Shutdown cancels pending timers and waits for in-flight emissions up to
// the configured drain timeout.
func (e *Emitter) Shutdown(ctx context.Context) error {
	e.cancel()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	drain, cancel := context.WithTimeout(ctx, e.cfg.DrainTimeout)
	defer cancel()
	select {
	case <-done:
		return nil
	case <-drain.Done():
		e.log.Warn("abandoning outstanding emission tasks")
		return nil
	}
}
