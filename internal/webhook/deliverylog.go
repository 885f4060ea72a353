package webhook

import (
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

// DeliveryAttempt records the outcome of one webhook POST. Attempts are
// observability data only; they never feed back into invoice state.
type DeliveryAttempt struct {
	ID          snowflake.ID `json:"id"`
	InvoiceID   uuid.UUID    `json:"invoice_id"`
	URL         string       `json:"url"`
	Event       string       `json:"event"`
	Signature   string       `json:"signature"`
	Outcome     string       `json:"outcome"`
	HTTPStatus  int          `json:"http_status,omitempty"`
	Error       string       `json:"error,omitempty"`
	DurationMs  int64        `json:"duration_ms"`
	DeliveredAt time.Time    `json:"delivered_at"`
}

// DeliveryLog keeps the per-invoice delivery attempts in memory.
type DeliveryLog struct {
	mu        sync.RWMutex
	byInvoice map[uuid.UUID][]DeliveryAttempt
}

func NewDeliveryLog() *DeliveryLog {
	return &DeliveryLog{
		byInvoice: make(map[uuid.UUID][]DeliveryAttempt),
	}
}

func (l *DeliveryLog) Record(attempt DeliveryAttempt) {
	l.mu.Lock()
	l.byInvoice[attempt.InvoiceID] = append(l.byInvoice[attempt.InvoiceID], attempt)
	l.mu.Unlock()
}

// ByInvoice returns a copy of the attempts recorded for the invoice.
func (l *DeliveryLog) ByInvoice(invoiceID uuid.UUID) []DeliveryAttempt {
	l.mu.RLock()
	defer l.mu.RUnlock()
	attempts := l.byInvoice[invoiceID]
	out := make([]DeliveryAttempt, len(attempts))
	copy(out, attempts)
	return out
}
