package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a simulated invoice. Every invoice starts
// at StatusCreated and settles into exactly one terminal status.
type Status string

const (
	StatusCreated    Status = "created"
	StatusPaid       Status = "paid"
	StatusFailed     Status = "failed"
	StatusCanceled   Status = "canceled"
	StatusExpired    Status = "expired"
	StatusChargeback Status = "chargeback"
)

// MaxEmitAfterMs bounds the accepted emission delay to 24 hours. Larger
// values would overflow the nanosecond duration math long before they make
// sense for a load-test run.
const MaxEmitAfterMs int64 = 24 * 60 * 60 * 1000

var terminalStatuses = map[Status]struct{}{
	StatusPaid:       {},
	StatusFailed:     {},
	StatusCanceled:   {},
	StatusExpired:    {},
	StatusChargeback: {},
}

// Terminal reports whether s is a valid settlement status.
func (s Status) Terminal() bool {
	_, ok := terminalStatuses[s]
	return ok
}

// ParseTerminalStatus validates a caller-supplied emit_status value.
func ParseTerminalStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Terminal() {
		return "", ErrInvalidEmitStatus
	}
	return s, nil
}

// Invoice is a simulated payment request with a pre-determined terminal
// status and emission delay. All fields except Status and EmittedAt are
// immutable after creation.
type Invoice struct {
	ID          uuid.UUID      `json:"id"`
	Amount      int64          `json:"amount"`
	Currency    string         `json:"currency"`
	Status      Status         `json:"status"`
	WebhookURL  string         `json:"webhook_url"`
	EmitAfterMs int64          `json:"emit_after_ms"`
	EmitStatus  Status         `json:"emit_status"`
	Metadata    map[string]any `json:"metadata"`
	CreatedAt   time.Time      `json:"created_at"`
	EmittedAt   *time.Time     `json:"emitted_at,omitempty"`
}

// CreateInvoiceRequest is the inbound creation payload. Amount and
// EmitAfterMs are pointers so a missing field can be told apart from an
// explicit zero.
type CreateInvoiceRequest struct {
	Amount      *int64         `json:"amount"`
	Currency    string         `json:"currency"`
	WebhookURL  string         `json:"webhook_url"`
	EmitAfterMs *int64         `json:"emit_after_ms"`
	EmitStatus  string         `json:"emit_status"`
	Metadata    map[string]any `json:"metadata"`
}

// CreateInvoiceResponse is the creation view returned to the caller.
type CreateInvoiceResponse struct {
	ID          uuid.UUID      `json:"id"`
	Status      Status         `json:"status"`
	Amount      int64          `json:"amount"`
	Currency    string         `json:"currency"`
	CreatedAt   time.Time      `json:"created_at"`
	WebhookURL  string         `json:"webhook_url"`
	CheckoutURL string         `json:"checkout_url"`
	Metadata    map[string]any `json:"metadata"`
}
