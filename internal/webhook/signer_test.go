package webhook

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/smallbiznis/mockpay/internal/invoice/domain"
)

func TestSignIsDeterministic(t *testing.T) {
	body := []byte(`{"event":"invoice.updated","amount":10000}`)

	first := Sign("secret", body)
	second := Sign("secret", body)
	if first != second {
		t.Fatalf("signature not deterministic: %s vs %s", first, second)
	}
	if len(first) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(first))
	}

	if Sign("other", body) == first {
		t.Fatalf("different secrets must not collide")
	}
	if Sign("secret", []byte(`{"amount":10001}`)) == first {
		t.Fatalf("different bodies must not collide")
	}
}

func TestVerify(t *testing.T) {
	body := []byte("payload")
	sig := Sign("secret", body)

	if !Verify("secret", body, sig) {
		t.Fatalf("valid signature rejected")
	}
	if Verify("secret", []byte("tampered"), sig) {
		t.Fatalf("tampered body accepted")
	}
	if Verify("wrong", body, sig) {
		t.Fatalf("wrong secret accepted")
	}
}

// The signature covers the serialized payload byte-for-byte, so the
// encoding must be reproducible across marshals.
func TestPayloadEncodingIsStable(t *testing.T) {
	emittedAt := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	payload := Payload{
		Event:     EventInvoiceUpdated,
		ID:        uuid.MustParse("3f6f4f7e-0d5a-4c2b-9e7b-111111111111"),
		Status:    domain.StatusPaid,
		Amount:    10_000,
		Currency:  "BRL",
		EmittedAt: emittedAt,
		Metadata:  map[string]any{"a": "1", "b": "2"},
	}

	first, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	second, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("payload encoding unstable:\n%s\n%s", first, second)
	}
	if Sign("secret", first) != Sign("secret", second) {
		t.Fatalf("signatures diverge for identical payloads")
	}
}
