package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"autoorder/internal/domain"
	"autoorder/internal/repository"

	"github.com/google/uuid"
)

const maxWebhookHistory = 100

// WebhookEvent is one entry of the bounded diagnostics history.
type WebhookEvent struct {
	ID         string             `json:"id"`
	ReceivedAt time.Time          `json:"received_at"`
	RemoteIP   string             `json:"ip,omitempty"`
	OrderID    string             `json:"order_id,omitempty"`
	RawStatus  string             `json:"raw_status,omitempty"`
	Normalized domain.OrderStatus `json:"normalized,omitempty"`
	Result     string             `json:"result"`
}

// WebhookService ingests asynchronous gateway notifications. Events feed the
// same Normalize/Apply pipeline as polling; authenticity failures are
// discarded internally while the transport layer still acknowledges receipt,
// so a forging sender learns nothing from the response.
type WebhookService struct {
	orders  *OrderService
	secret  string
	project string

	mu      sync.Mutex
	history []WebhookEvent
}

func NewWebhookService(orders *OrderService, secret, project string) *WebhookService {
	return &WebhookService{orders: orders, secret: secret, project: project}
}

// gateway payloads are inconsistent about field names, accept the variants
type webhookPayload struct {
	OrderID       string `json:"order_id"`
	OrderIDCamel  string `json:"orderId"`
	ID            string `json:"id"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	Project       string `json:"project"`
	ProjectSlug   string `json:"project_slug"`
}

func (p *webhookPayload) orderID() string {
	switch {
	case p.OrderID != "":
		return p.OrderID
	case p.OrderIDCamel != "":
		return p.OrderIDCamel
	default:
		return p.ID
	}
}

func (p *webhookPayload) rawStatus() string {
	if p.Status != "" {
		return p.Status
	}
	return p.PaymentStatus
}

func (p *webhookPayload) projectSlug() string {
	if p.Project != "" {
		return p.Project
	}
	return p.ProjectSlug
}

// Ingest processes one raw webhook delivery. It never fails outward: every
// outcome is recorded in the history and observable only through the order's
// resulting state.
func (s *WebhookService) Ingest(ctx context.Context, body []byte, signature, remoteIP string) {
	ev := WebhookEvent{ID: uuid.NewString(), ReceivedAt: time.Now().UTC(), RemoteIP: remoteIP}
	defer func() { s.record(ev) }()

	// signature is only enforced when both sides are present: the gateway
	// does not sign every event type
	if s.secret != "" && signature != "" && !s.verify(body, signature) {
		log.Printf("[webhook] invalid signature from %s, discarding", remoteIP)
		ev.Result = "rejected: invalid signature"
		return
	}

	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		ev.Result = "ignored: malformed payload"
		return
	}

	if proj := p.projectSlug(); proj != "" && s.project != "" && proj != s.project {
		log.Printf("[webhook] project mismatch: expected %q got %q", s.project, proj)
		ev.Result = "ignored: project mismatch"
		return
	}

	orderID := p.orderID()
	if orderID == "" {
		ev.Result = "ignored: no order_id"
		return
	}
	ev.OrderID = orderID
	ev.RawStatus = p.rawStatus()
	ev.Normalized = domain.Normalize(ev.RawStatus)

	if ev.Normalized == domain.StatusPending {
		ev.Result = "ignored: no status change"
		return
	}

	updated, err := s.orders.Apply(ctx, orderID, ev.Normalized, "webhook")
	switch {
	case errors.Is(err, repository.ErrNotFound):
		ev.Result = "ignored: order not found"
	case err != nil:
		log.Printf("[webhook] apply %s: %v", orderID, err)
		ev.Result = "error: " + err.Error()
	default:
		ev.Result = fmt.Sprintf("processed: status %s", updated.Status)
	}
}

// verify compares the HMAC-SHA256 of the raw body in constant time.
func (s *WebhookService) verify(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(s.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}

func (s *WebhookService) record(ev WebhookEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append([]WebhookEvent{ev}, s.history...)
	if len(s.history) > maxWebhookHistory {
		s.history = s.history[:maxWebhookHistory]
	}
}

// History returns the recorded events, newest first.
func (s *WebhookService) History() []WebhookEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]WebhookEvent, len(s.history))
	copy(out, s.history)
	return out
}
