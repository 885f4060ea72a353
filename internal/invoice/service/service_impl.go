package service

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/smallbiznis/mockpay/internal/clock"
	"github.com/smallbiznis/mockpay/internal/config"
	"github.com/smallbiznis/mockpay/internal/idempotency"
	"github.com/smallbiznis/mockpay/internal/invoice/domain"
	"github.com/smallbiznis/mockpay/internal/invoice/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Store   *store.Store
	Guard   *idempotency.Guard
	Emitter domain.StatusEmitter
	Clock   clock.Clock
	Profile *config.ProfileHolder
}

type service struct {
	log     *zap.Logger
	store   *store.Store
	guard   *idempotency.Guard
	emitter domain.StatusEmitter
	clock   clock.Clock
	profile *config.ProfileHolder
}

func New(p Params) (domain.Service, error) {
	if p.Log == nil || p.Store == nil || p.Guard == nil || p.Emitter == nil || p.Clock == nil || p.Profile == nil {
		return nil, domain.ErrInvalidServiceParams
	}
	return &service{
		log:     p.Log.Named("invoice"),
		store:   p.Store,
		guard:   p.Guard,
		emitter: p.Emitter,
		clock:   p.Clock,
		profile: p.Profile,
	}, nil
}

func (s *service) Create(ctx context.Context, req domain.CreateInvoiceRequest, idempotencyKey string) (domain.Invoice, bool, error) {
	_ = ctx

	spec, err := s.validate(req)
	if err != nil {
		return domain.Invoice{}, false, err
	}

	var fresh domain.Invoice
	id, replayed, err := s.guard.GetOrCreate(strings.TrimSpace(idempotencyKey), func() (uuid.UUID, error) {
		inv, err := s.create(spec)
		if err != nil {
			return uuid.Nil, err
		}
		fresh = inv
		return inv.ID, nil
	})
	if err != nil {
		return domain.Invoice{}, false, err
	}

	// A fresh create answers with the snapshot taken at insert. Re-reading
	// the store here would let a zero-delay emission leak into the
	// creation response.
	if !replayed {
		return fresh, false, nil
	}

	inv, err := s.store.Get(id)
	if err != nil {
		return domain.Invoice{}, false, err
	}
	return inv, true, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (domain.Invoice, error) {
	_ = ctx
	return s.store.Get(id)
}

// invoiceSpec is a validated, default-applied creation request.
type invoiceSpec struct {
	amount     int64
	currency   string
	webhookURL string
	emitAfter  time.Duration
	emitStatus domain.Status
	metadata   map[string]any
}

func (s *service) validate(req domain.CreateInvoiceRequest) (invoiceSpec, error) {
	profile := s.profile.Get()

	if req.Amount == nil {
		return invoiceSpec{}, domain.ErrMissingAmount
	}
	if *req.Amount < 0 {
		return invoiceSpec{}, domain.ErrNegativeAmount
	}

	webhookURL := strings.TrimSpace(req.WebhookURL)
	if webhookURL == "" {
		return invoiceSpec{}, domain.ErrMissingWebhookURL
	}
	parsed, err := url.Parse(webhookURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return invoiceSpec{}, domain.ErrInvalidWebhookURL
	}

	emitStatus, err := domain.ParseTerminalStatus(strings.TrimSpace(req.EmitStatus))
	if err != nil {
		return invoiceSpec{}, err
	}

	emitAfterMs := profile.DefaultEmitMs
	if req.EmitAfterMs != nil {
		if *req.EmitAfterMs < 0 || *req.EmitAfterMs > domain.MaxEmitAfterMs {
			return invoiceSpec{}, domain.ErrInvalidEmitAfter
		}
		emitAfterMs = *req.EmitAfterMs
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = profile.DefaultCurrency
	}

	return invoiceSpec{
		amount:     *req.Amount,
		currency:   currency,
		webhookURL: webhookURL,
		emitAfter:  time.Duration(emitAfterMs) * time.Millisecond,
		emitStatus: emitStatus,
		metadata:   req.Metadata,
	}, nil
}

// create allocates the record and arms its timer. The insert completes
// before Arm is called, so the delayed task can never observe a missing
// invoice.
func (s *service) create(spec invoiceSpec) (domain.Invoice, error) {
	inv := domain.Invoice{
		ID:          uuid.New(),
		Amount:      spec.amount,
		Currency:    spec.currency,
		Status:      domain.StatusCreated,
		WebhookURL:  spec.webhookURL,
		EmitAfterMs: spec.emitAfter.Milliseconds(),
		EmitStatus:  spec.emitStatus,
		Metadata:    spec.metadata,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.store.Insert(inv); err != nil {
		return domain.Invoice{}, err
	}

	s.emitter.Arm(inv.ID, spec.emitAfter, spec.emitStatus)

	s.log.Info("invoice created",
		zap.String("invoice_id", inv.ID.String()),
		zap.Int64("amount", inv.Amount),
		zap.String("currency", inv.Currency),
		zap.Int64("emit_after_ms", inv.EmitAfterMs),
		zap.String("emit_status", string(inv.EmitStatus)),
	)
	return inv, nil
}
