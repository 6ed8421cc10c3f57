package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"autoorder/internal/domain"
	"autoorder/internal/gateway"
	"autoorder/internal/repository"
)

const (
	orderIDPrefix = "ORD"
	maxQuantity   = 99

	// delays before the auto-deliver task fires: shorter when the order was
	// already paid on a previous check, a bit longer right after confirmation
	recheckDeliverDelay = 1 * time.Second
	confirmDeliverDelay = 2 * time.Second
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// CreateOrderInput carries the buyer's create-order request.
type CreateOrderInput struct {
	ProductID  string
	BuyerEmail string
	BuyerName  string
	Quantity   int
}

// OrderService is the order lifecycle engine. It owns every mutation of the
// order store: creation, status transitions and delivery. Polling and webhook
// entry points route through Apply/Deliver instead of touching orders
// directly.
type OrderService struct {
	catalog   repository.ProductCatalog
	orders    repository.OrderRepository
	gateway   gateway.PaymentGateway
	scheduler DeliveryScheduler

	recheckDelay time.Duration
	confirmDelay time.Duration
}

func NewOrderService(catalog repository.ProductCatalog, orders repository.OrderRepository, gw gateway.PaymentGateway) *OrderService {
	s := &OrderService{
		catalog:      catalog,
		orders:       orders,
		gateway:      gw,
		recheckDelay: recheckDeliverDelay,
		confirmDelay: confirmDeliverDelay,
	}
	s.scheduler = NewTimerScheduler(func(orderID string) {
		if _, err := s.Deliver(context.Background(), orderID); err != nil {
			log.Printf("[deliver] %s: %v", orderID, err)
		}
	})
	return s
}

// Close cancels any pending delivery timers.
func (s *OrderService) Close() { s.scheduler.Stop() }

// CreateOrder validates the request, asks the gateway for a QRIS payment code
// and persists the new pending order. On gateway failure no order is created.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	productID := strings.TrimSpace(in.ProductID)
	email := strings.TrimSpace(in.BuyerEmail)
	name := strings.TrimSpace(in.BuyerName)
	if name == "" {
		name = "Guest"
	}
	if productID == "" || !emailRe.MatchString(email) {
		return nil, ErrInvalidInput
	}
	if in.Quantity < 1 || in.Quantity > maxQuantity {
		return nil, ErrInvalidInput
	}

	product, err := s.catalog.Find(ctx, productID)
	if err != nil {
		return nil, err
	}

	total := product.Price * int64(in.Quantity)
	orderID := newOrderID()

	payment, err := s.gateway.CreatePayment(ctx, orderID, total)
	if err != nil {
		return nil, err
	}

	order := &domain.Order{
		OrderID:      orderID,
		ProductID:    product.ID,
		ProductName:  product.Name,
		ProductIcon:  product.Icon,
		DownloadLink: product.DownloadLink,
		Quantity:     in.Quantity,
		UnitPrice:    product.Price,
		TotalAmount:  total,
		TotalPayment: payment.TotalPayment,
		Fee:          payment.Fee,
		BuyerEmail:   email,
		BuyerName:    name,
		QRIS:         payment.QRIS,
		ExpiredAt:    payment.ExpiredAt,
		Status:       domain.StatusPending,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}
	log.Printf("[order] created %s product=%s total=%d buyer=%s", orderID, product.ID, total, email)
	return order, nil
}

// Get returns a read-only copy of the order.
func (s *OrderService) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.orders.GetByID(ctx, orderID)
}

// Apply folds a normalized status signal into the order. The terminal check
// runs inside the store's critical section, immediately before the write, so
// duplicate, replayed and out-of-order signals from any source degrade to
// no-ops. A negative signal on a paid order is ignored: once the buyer has
// paid, the order only moves forward to delivered.
func (s *OrderService) Apply(ctx context.Context, orderID string, next domain.OrderStatus, source string) (*domain.Order, error) {
	becamePaid := false
	o, err := s.orders.Mutate(ctx, orderID, func(o *domain.Order) error {
		// delivery happens only through Deliver, never via a raw signal
		if next == domain.StatusDelivered || !domain.CanTransition(o.Status, next) {
			return nil
		}
		o.Status = next
		if next == domain.StatusPaid {
			now := time.Now().UTC()
			o.PaidAt = &now
			becamePaid = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if becamePaid {
		log.Printf("[order] %s paid (source=%s), scheduling delivery", orderID, source)
		s.scheduler.Schedule(orderID, s.confirmDelay)
	}
	return o, nil
}

// Deliver marks the order fulfilled and generates the one-time delivery code.
// It is idempotent: missing orders and orders already in a terminal state are
// left untouched, which is what makes concurrent and duplicate invocations
// from timers, polls and webhooks safe without caller-side coordination.
func (s *OrderService) Deliver(ctx context.Context, orderID string) (*domain.Order, error) {
	delivered := false
	o, err := s.orders.Mutate(ctx, orderID, func(o *domain.Order) error {
		if o.Status.Terminal() {
			return nil
		}
		now := time.Now().UTC()
		o.Status = domain.StatusDelivered
		o.DeliveredAt = &now
		o.DeliveryCode = newDeliveryCode()
		o.DeliveryMessage = fmt.Sprintf("Terima kasih %s! Berikut link download %s: %s",
			o.BuyerName, o.ProductName, o.DownloadLink)
		delivered = true
		return nil
	})
	if errors.Is(err, repository.ErrNotFound) {
		// fire-and-forget callers (timers, replayed webhooks): nothing to do
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if delivered {
		log.Printf("[deliver] %s code=%s", orderID, o.DeliveryCode)
	}
	return o, nil
}

// CheckStatus is the client-facing pull operation. Terminal orders answer from
// the store; paid orders (re-)schedule delivery; pending orders trigger a
// gateway query whose result is folded through Apply. A gateway failure is
// reported as pending with the stored state untouched, so a transient outage
// never shows up as a payment failure.
func (s *OrderService) CheckStatus(ctx context.Context, orderID string) (domain.OrderStatus, *domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return "", nil, ErrInvalidInput
	}
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return "", nil, err
	}

	switch {
	case o.Status.Terminal():
		return o.Status, o, nil
	case o.Status == domain.StatusPaid:
		s.scheduler.Schedule(orderID, s.recheckDelay)
		return domain.StatusPaid, o, nil
	}

	raw, err := s.gateway.QueryStatus(ctx, o.OrderID, o.TotalAmount)
	if err != nil {
		log.Printf("[status] gateway query %s failed: %v (reporting pending)", orderID, err)
		return domain.StatusPending, o, nil
	}
	next := domain.Normalize(raw)
	if next == domain.StatusPending {
		return domain.StatusPending, o, nil
	}
	updated, err := s.Apply(ctx, orderID, next, "poll")
	if err != nil {
		return "", nil, err
	}
	return updated.Status, updated, nil
}

func newOrderID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%s-%d-%s", orderIDPrefix, time.Now().UnixMilli(), strings.ToUpper(hex.EncodeToString(b)))
}

// newDeliveryCode returns 64 bits of randomness as a hex string.
func newDeliveryCode() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
