// Package webhook builds, signs and delivers invoice status notifications.
//
// The payload is serialized exactly once; the signature covers those bytes
// and the same bytes go on the wire, so receivers can verify by recomputing
// hex(HMAC-SHA256(raw_body, secret)). The canonical body encoding is
// encoding/json of Payload with fields in declaration order:
// event, id, status, amount, currency, emitted_at, metadata.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/smallbiznis/mockpay/internal/clock"
	"github.com/smallbiznis/mockpay/internal/config"
	"github.com/smallbiznis/mockpay/internal/invoice/domain"
	obsmetrics "github.com/smallbiznis/mockpay/internal/observability/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// EventInvoiceUpdated is the only event this simulator emits.
const EventInvoiceUpdated = "invoice.updated"

const (
	headerEvent     = "X-Event"
	headerSignature = "X-Signature"
)

var ErrInvalidConfig = errors.New("webhook: invalid configuration")

// Payload is the webhook body. Field order is part of the wire contract.
type Payload struct {
	Event     string         `json:"event"`
	ID        uuid.UUID      `json:"id"`
	Status    domain.Status  `json:"status"`
	Amount    int64          `json:"amount"`
	Currency  string         `json:"currency"`
	EmittedAt time.Time      `json:"emitted_at"`
	Metadata  map[string]any `json:"metadata"`
}

type Params struct {
	fx.In

	Log        *zap.Logger
	Config     config.Config
	Profile    *config.ProfileHolder
	Clock      clock.Clock
	GenID      *snowflake.Node
	Deliveries *DeliveryLog
}

// Dispatcher signs and POSTs status notifications. Delivery is
// fire-and-forget: failures are recorded and logged, never retried, and
// never touch invoice state.
type Dispatcher struct {
	log             *zap.Logger
	client          *http.Client
	secret          string
	profile         *config.ProfileHolder
	fallbackTimeout time.Duration
	clock           clock.Clock
	genID           *snowflake.Node
	deliveries      *DeliveryLog
	tracer          trace.Tracer
}

func New(p Params) (*Dispatcher, error) {
	if p.Log == nil || p.Profile == nil || p.Clock == nil || p.GenID == nil || p.Deliveries == nil {
		return nil, ErrInvalidConfig
	}
	fallback := p.Config.DeliveryTimeout
	if fallback <= 0 {
		fallback = 5 * time.Second
	}
	return &Dispatcher{
		log:             p.Log.Named("webhook").With(zap.String("component", "webhook")),
		client:          &http.Client{},
		secret:          p.Config.WebhookSecret,
		profile:         p.Profile,
		fallbackTimeout: fallback,
		clock:           p.Clock,
		genID:           p.GenID,
		deliveries:      p.Deliveries,
		tracer:          otel.Tracer("mockpay/webhook"),
	}, nil
}

// deliveryTimeout prefers the hot-reloadable profile value so operators can
// tune it without a restart; the env-derived timeout is the fallback.
func (d *Dispatcher) deliveryTimeout() time.Duration {
	if timeout := d.profile.Get().DeliveryTimeout; timeout > 0 {
		return timeout
	}
	return d.fallbackTimeout
}

// Dispatch delivers the invoice.updated notification for an invoice that
// just reached its terminal status.
func (d *Dispatcher) Dispatch(ctx context.Context, inv domain.Invoice) {
	emittedAt := d.clock.Now()
	if inv.EmittedAt != nil {
		emittedAt = *inv.EmittedAt
	}

	payload := Payload{
		Event:     EventInvoiceUpdated,
		ID:        inv.ID,
		Status:    inv.Status,
		Amount:    inv.Amount,
		Currency:  inv.Currency,
		EmittedAt: emittedAt,
		Metadata:  inv.Metadata,
	}

	log := d.log.With(
		zap.String("invoice_id", inv.ID.String()),
		zap.String("url", inv.WebhookURL),
		zap.String("status", string(inv.Status)),
	)

	body, err := json.Marshal(payload)
	if err != nil {
		log.Error("serialize webhook body", zap.Error(err))
		return
	}
	signature := Sign(d.secret, body)

	ctx, span := d.tracer.Start(ctx, "webhook.dispatch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("invoice_id", inv.ID.String()),
			attribute.String("event", EventInvoiceUpdated),
		),
	)
	defer span.End()

	attempt := DeliveryAttempt{
		ID:        d.genID.Generate(),
		InvoiceID: inv.ID,
		URL:       inv.WebhookURL,
		Event:     EventInvoiceUpdated,
		Signature: signature,
	}

	start := time.Now()
	status, err := d.post(ctx, inv.WebhookURL, body, signature)
	duration := time.Since(start)

	attempt.DurationMs = duration.Milliseconds()
	attempt.DeliveredAt = d.clock.Now()
	attempt.HTTPStatus = status

	outcome := obsmetrics.DeliveryOutcomeDelivered
	switch {
	case err != nil:
		outcome = obsmetrics.DeliveryOutcomeFailed
		if isTimeout(err) {
			outcome = obsmetrics.DeliveryOutcomeTimeout
		}
		attempt.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, "delivery failed")
		log.Error("webhook delivery failed", zap.Error(err), zap.Duration("duration", duration))
	case status < 200 || status > 299:
		outcome = obsmetrics.DeliveryOutcomeFailed
		attempt.Error = "non-success status"
		span.SetStatus(codes.Error, "non-success status")
		log.Warn("webhook rejected by receiver", zap.Int("http_status", status), zap.Duration("duration", duration))
	default:
		log.Info("webhook delivered", zap.Int("http_status", status), zap.Duration("duration", duration))
	}
	attempt.Outcome = outcome

	span.SetAttributes(
		attribute.Int("http.status_code", status),
		attribute.String("outcome", outcome),
	)
	obsmetrics.Emitter().ObserveDelivery(outcome, duration)
	d.deliveries.Record(attempt)
}

func (d *Dispatcher) post(ctx context.Context, url string, body []byte, signature string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, d.deliveryTimeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerEvent, EventInvoiceUpdated)
	req.Header.Set(headerSignature, signature)

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
