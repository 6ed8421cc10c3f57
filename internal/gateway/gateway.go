package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PaymentGateway is what the lifecycle engine depends on. The concrete client
// talks to Pakasir; tests substitute a fake.
type PaymentGateway interface {
	CreatePayment(ctx context.Context, orderID string, amount int64) (*Payment, error)
	QueryStatus(ctx context.Context, orderID string, amount int64) (string, error)
}

// Payment is the result of a successful create-payment call. QRIS holds the
// canonical payload with any sandbox prefix already stripped.
type Payment struct {
	QRIS         string
	TotalPayment int64
	Fee          int64
	ExpiredAt    *time.Time
}

// Error wraps any gateway-side failure: network, non-2xx, malformed body,
// unextractable payment code. Callers must treat it as "no new information",
// never as a negative payment result.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("gateway %s: %v", e.Op, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// ErrInvalidPaymentCode means the gateway response carried no QRIS payload.
var ErrInvalidPaymentCode = errors.New("payment code has no QRIS payload")

// ErrAmountOutOfRange means the amount is outside the gateway's accepted range.
var ErrAmountOutOfRange = errors.New("amount out of accepted range")

// IsGatewayError reports whether err originated at the gateway boundary.
func IsGatewayError(err error) bool {
	var ge *Error
	return errors.As(err, &ge)
}

// qrisMarker opens every QRIS payload (EMV "payload format indicator").
// It is used purely as a parsing delimiter.
const qrisMarker = "00020101"

// ExtractQRIS strips gateway-specific metadata prefixed before the canonical
// payload. Sandbox responses look like "SANDBOXPREFIX00020101...".
func ExtractQRIS(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	if strings.HasPrefix(s, qrisMarker) {
		return s, true
	}
	if i := strings.Index(s, qrisMarker); i >= 0 {
		return s[i:], true
	}
	return "", false
}
