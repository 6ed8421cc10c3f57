package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"autoorder/internal/domain"
	"autoorder/internal/gateway"
	"autoorder/internal/repository"
)

type fakeGateway struct {
	createFn func(ctx context.Context, orderID string, amount int64) (*gateway.Payment, error)
	statusFn func(ctx context.Context, orderID string, amount int64) (string, error)
}

func (f *fakeGateway) CreatePayment(ctx context.Context, orderID string, amount int64) (*gateway.Payment, error) {
	if f.createFn == nil {
		return &gateway.Payment{QRIS: "00020101021226570014ID.TEST", TotalPayment: amount, Fee: 0}, nil
	}
	return f.createFn(ctx, orderID, amount)
}

func (f *fakeGateway) QueryStatus(ctx context.Context, orderID string, amount int64) (string, error) {
	if f.statusFn == nil {
		return "pending", nil
	}
	return f.statusFn(ctx, orderID, amount)
}

// setup builds the engine with deliveries running inline so tests stay
// deterministic.
func setup(t *testing.T, gw *fakeGateway) (*OrderService, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	catalog := repository.NewStaticCatalog(repository.DefaultProducts())
	svc := NewOrderService(catalog, store, gw)
	svc.scheduler.Stop()
	svc.scheduler = &syncScheduler{deliver: func(id string) { _, _ = svc.Deliver(context.Background(), id) }}
	return svc, store
}

// setupNoDeliver swallows delivery scheduling, so paid orders stay paid.
func setupNoDeliver(t *testing.T, gw *fakeGateway) (*OrderService, *repository.MemoryStore) {
	t.Helper()
	svc, store := setup(t, gw)
	svc.scheduler = &syncScheduler{deliver: func(string) {}}
	return svc, store
}

func seedOrder(t *testing.T, store *repository.MemoryStore, id string, status domain.OrderStatus) {
	t.Helper()
	err := store.Create(context.Background(), &domain.Order{
		OrderID:      id,
		ProductID:    "ebook-bundle",
		ProductName:  "E-Book Starter Bundle",
		DownloadLink: "https://files.example.com/dl/ebook-bundle",
		BuyerName:    "Jane",
		Quantity:     1,
		UnitPrice:    15000,
		TotalAmount:  15000,
		Status:       status,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestCreateOrder(t *testing.T) {
	ctx := context.Background()
	var gotAmount int64
	gw := &fakeGateway{
		createFn: func(ctx context.Context, orderID string, amount int64) (*gateway.Payment, error) {
			gotAmount = amount
			exp := time.Now().Add(15 * time.Minute).UTC()
			return &gateway.Payment{QRIS: "00020101021226570014ID.TEST", TotalPayment: amount + 750, Fee: 750, ExpiredAt: &exp}, nil
		},
	}
	svc, _ := setup(t, gw)

	o, err := svc.CreateOrder(ctx, CreateOrderInput{
		ProductID: "ebook-bundle", BuyerEmail: "jane@example.com", Quantity: 2,
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if gotAmount != 30000 || o.TotalAmount != 30000 {
		t.Fatalf("total expected 30000, gateway got %d, order has %d", gotAmount, o.TotalAmount)
	}
	if o.TotalPayment != 30750 || o.Fee != 750 {
		t.Fatalf("payment fields wrong: %+v", o)
	}
	if o.Status != domain.StatusPending {
		t.Fatalf("new order must be pending, got %v", o.Status)
	}
	if o.BuyerName != "Guest" {
		t.Fatalf("empty buyer name must default to Guest, got %q", o.BuyerName)
	}
	if !regexp.MustCompile(`^ORD-\d+-[0-9A-F]{8}$`).MatchString(o.OrderID) {
		t.Fatalf("unexpected order id format %q", o.OrderID)
	}
	if o.QRIS != "00020101021226570014ID.TEST" || o.ExpiredAt == nil {
		t.Fatalf("payment code not carried over: %+v", o)
	}
}

func TestCreateOrder_Validation(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t, &fakeGateway{})

	cases := []CreateOrderInput{
		{ProductID: "", BuyerEmail: "a@b.co", Quantity: 1},
		{ProductID: "ebook-bundle", BuyerEmail: "not-an-email", Quantity: 1},
		{ProductID: "ebook-bundle", BuyerEmail: "a @b.co", Quantity: 1},
		{ProductID: "ebook-bundle", BuyerEmail: "a@b.co", Quantity: 0},
		{ProductID: "ebook-bundle", BuyerEmail: "a@b.co", Quantity: 100},
	}
	for _, in := range cases {
		if _, err := svc.CreateOrder(ctx, in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("input %+v: expected invalid input, got %v", in, err)
		}
	}

	if _, err := svc.CreateOrder(ctx, CreateOrderInput{ProductID: "missing", BuyerEmail: "a@b.co", Quantity: 1}); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("unknown product: expected not found, got %v", err)
	}
}

func TestCreateOrder_GatewayFailure(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{
		createFn: func(context.Context, string, int64) (*gateway.Payment, error) {
			return nil, &gateway.Error{Op: "create", Err: errors.New("connection refused")}
		},
	}
	svc, store := setup(t, gw)

	if _, err := svc.CreateOrder(ctx, CreateOrderInput{ProductID: "ebook-bundle", BuyerEmail: "a@b.co", Quantity: 1}); !gateway.IsGatewayError(err) {
		t.Fatalf("expected gateway error, got %v", err)
	}
	// no partial order may be persisted
	pending, _ := store.ListByStatus(ctx, domain.StatusPending)
	if len(pending) != 0 {
		t.Fatalf("no order should exist after gateway failure, got %d", len(pending))
	}
}

func TestCheckStatus_SettlementDelivers(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{
		statusFn: func(context.Context, string, int64) (string, error) { return "settlement", nil },
	}
	svc, store := setup(t, gw)
	seedOrder(t, store, "ORD-B", domain.StatusPending)

	status, _, err := svc.CheckStatus(ctx, "ORD-B")
	if err != nil {
		t.Fatalf("check status: %v", err)
	}
	if status != domain.StatusPaid {
		t.Fatalf("expected paid, got %v", status)
	}

	// inline delivery already ran
	got, _ := store.GetByID(ctx, "ORD-B")
	if got.Status != domain.StatusDelivered {
		t.Fatalf("expected delivered, got %v", got.Status)
	}
	if !regexp.MustCompile(`^[0-9a-f]{16}$`).MatchString(got.DeliveryCode) {
		t.Fatalf("delivery code must be a 16-char hex string, got %q", got.DeliveryCode)
	}
	if got.PaidAt == nil || got.DeliveredAt == nil || got.DeliveryMessage == "" {
		t.Fatalf("delivery fields incomplete: %+v", got)
	}
}

func TestCheckStatus_GatewayFailureMasked(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{
		statusFn: func(context.Context, string, int64) (string, error) {
			return "", &gateway.Error{Op: "status", Err: errors.New("timeout")}
		},
	}
	svc, store := setup(t, gw)
	seedOrder(t, store, "ORD-1", domain.StatusPending)

	status, o, err := svc.CheckStatus(ctx, "ORD-1")
	if err != nil {
		t.Fatalf("gateway failure must not surface: %v", err)
	}
	if status != domain.StatusPending || o.Status != domain.StatusPending {
		t.Fatalf("expected pending, got %v", status)
	}
	got, _ := store.GetByID(ctx, "ORD-1")
	if got.Status != domain.StatusPending {
		t.Fatalf("stored status must be untouched, got %v", got.Status)
	}
}

func TestCheckStatus_TerminalAnswersFromStore(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{
		statusFn: func(context.Context, string, int64) (string, error) {
			t.Fatal("terminal order must not hit the gateway")
			return "", nil
		},
	}
	svc, store := setup(t, gw)
	seedOrder(t, store, "ORD-X", domain.StatusExpired)

	status, _, err := svc.CheckStatus(ctx, "ORD-X")
	if err != nil || status != domain.StatusExpired {
		t.Fatalf("expected cached expired, got %v %v", status, err)
	}
}

func TestCheckStatus_NotFound(t *testing.T) {
	svc, _ := setup(t, &fakeGateway{})
	if _, _, err := svc.CheckStatus(context.Background(), "nope"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, _, err := svc.CheckStatus(context.Background(), "  "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestDeliver_Idempotent(t *testing.T) {
	ctx := context.Background()
	svc, store := setupNoDeliver(t, &fakeGateway{})
	seedOrder(t, store, "ORD-1", domain.StatusPaid)

	first, err := svc.Deliver(ctx, "ORD-1")
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if first.Status != domain.StatusDelivered || first.DeliveryCode == "" {
		t.Fatalf("first delivery incomplete: %+v", first)
	}

	for i := 0; i < 3; i++ {
		again, err := svc.Deliver(ctx, "ORD-1")
		if err != nil {
			t.Fatalf("repeat deliver: %v", err)
		}
		if again.DeliveryCode != first.DeliveryCode {
			t.Fatalf("delivery code regenerated: %q vs %q", again.DeliveryCode, first.DeliveryCode)
		}
		if !again.DeliveredAt.Equal(*first.DeliveredAt) {
			t.Fatalf("delivered_at restamped")
		}
	}
}

func TestDeliver_MissingAndTerminal(t *testing.T) {
	ctx := context.Background()
	svc, store := setupNoDeliver(t, &fakeGateway{})

	if o, err := svc.Deliver(ctx, "missing"); o != nil || err != nil {
		t.Fatalf("missing order must be a silent no-op, got %v %v", o, err)
	}

	seedOrder(t, store, "ORD-E", domain.StatusExpired)
	o, err := svc.Deliver(ctx, "ORD-E")
	if err != nil {
		t.Fatal(err)
	}
	if o.Status != domain.StatusExpired || o.DeliveryCode != "" {
		t.Fatalf("expired order must not be delivered: %+v", o)
	}
}

func TestApply_OutOfOrderFavorsPayment(t *testing.T) {
	ctx := context.Background()
	svc, store := setupNoDeliver(t, &fakeGateway{})
	seedOrder(t, store, "ORD-1", domain.StatusPending)

	if _, err := svc.Apply(ctx, "ORD-1", domain.StatusPaid, "poll"); err != nil {
		t.Fatal(err)
	}
	// a late expiry signal after payment confirmation is ignored
	o, err := svc.Apply(ctx, "ORD-1", domain.StatusExpired, "webhook")
	if err != nil {
		t.Fatal(err)
	}
	if o.Status != domain.StatusPaid {
		t.Fatalf("paid order must survive a late expired signal, got %v", o.Status)
	}
	// a replayed paid signal is a no-op, paid_at keeps its first stamp
	before, _ := store.GetByID(ctx, "ORD-1")
	if _, err := svc.Apply(ctx, "ORD-1", domain.StatusPaid, "webhook"); err != nil {
		t.Fatal(err)
	}
	after, _ := store.GetByID(ctx, "ORD-1")
	if !after.PaidAt.Equal(*before.PaidAt) {
		t.Fatalf("duplicate paid signal restamped paid_at")
	}
}

func TestApply_TerminalLocked(t *testing.T) {
	ctx := context.Background()
	svc, store := setupNoDeliver(t, &fakeGateway{})
	seedOrder(t, store, "ORD-1", domain.StatusPending)

	if _, err := svc.Apply(ctx, "ORD-1", domain.StatusExpired, "webhook"); err != nil {
		t.Fatal(err)
	}
	for _, next := range []domain.OrderStatus{domain.StatusPaid, domain.StatusFailed, domain.StatusCancelled, domain.StatusPending} {
		o, err := svc.Apply(ctx, "ORD-1", next, "webhook")
		if err != nil {
			t.Fatal(err)
		}
		if o.Status != domain.StatusExpired {
			t.Fatalf("terminal order moved to %v on signal %v", o.Status, next)
		}
	}
}
