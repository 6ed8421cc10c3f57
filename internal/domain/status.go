package domain

import "strings"

// OrderStatus is the internal five-value vocabulary plus the delivered
// terminal. It insulates the lifecycle engine from gateway/webhook wording.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPaid      OrderStatus = "paid"
	StatusDelivered OrderStatus = "delivered"
	StatusExpired   OrderStatus = "expired"
	StatusFailed    OrderStatus = "failed"
	StatusCancelled OrderStatus = "cancelled"
)

var validNext = map[OrderStatus]map[OrderStatus]bool{
	StatusPending:   {StatusPaid: true, StatusExpired: true, StatusFailed: true, StatusCancelled: true},
	StatusPaid:      {StatusDelivered: true},
	StatusDelivered: {},
	StatusExpired:   {},
	StatusFailed:    {},
	StatusCancelled: {},
}

// CanTransition reports whether the state machine allows from -> to.
// Transitions are monotonic: terminal states accept nothing.
func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}

// Terminal reports whether no further transitions are accepted.
func (s OrderStatus) Terminal() bool {
	return len(validNext[s]) == 0 && s != ""
}

// status vocabularies as reported by the gateway and its webhooks
var (
	paidWords      = map[string]bool{"paid": true, "success": true, "settlement": true, "completed": true}
	expiredWords   = map[string]bool{"expired": true, "expire": true, "timeout": true}
	failedWords    = map[string]bool{"failed": true, "fail": true, "error": true, "denied": true, "rejected": true}
	cancelledWords = map[string]bool{"cancel": true, "cancelled": true, "canceled": true, "void": true}
)

// Normalize translates a raw gateway status into the internal vocabulary.
// It is total: anything unrecognized, including the empty string, is pending.
// Both the polling path and the webhook path must go through here.
func Normalize(raw string) OrderStatus {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case paidWords[s]:
		return StatusPaid
	case expiredWords[s]:
		return StatusExpired
	case failedWords[s]:
		return StatusFailed
	case cancelledWords[s]:
		return StatusCancelled
	default:
		return StatusPending
	}
}
