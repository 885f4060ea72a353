package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Service owns invoice creation and lookup.
type Service interface {
	// Create validates the request, stores the invoice and arms its
	// emission timer. When idempotencyKey is non-empty and was seen
	// before, the previously created invoice is returned with
	// replayed=true and no new record or timer is produced.
	Create(ctx context.Context, req CreateInvoiceRequest, idempotencyKey string) (Invoice, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (Invoice, error)
}

// StatusEmitter arms the fire-once delayed transition for an invoice.
// Arm returns immediately; the transition and webhook run in the
// background.
type StatusEmitter interface {
	Arm(invoiceID uuid.UUID, delay time.Duration, emitStatus Status)
}

var (
	ErrNotFound          = errors.New("not_found")
	ErrMissingAmount     = errors.New("missing_amount")
	ErrNegativeAmount    = errors.New("negative_amount")
	ErrMissingWebhookURL = errors.New("missing_webhook_url")
	ErrInvalidWebhookURL = errors.New("invalid_webhook_url")
	ErrInvalidEmitStatus = errors.New("invalid_emit_status")
	ErrInvalidEmitAfter  = errors.New("invalid_emit_after_ms")
	ErrAlreadyEmitted    = errors.New("already_emitted")
	ErrDuplicateID       = errors.New("duplicate_id")

	ErrInvalidServiceParams = errors.New("invoice: invalid service parameters")
)
