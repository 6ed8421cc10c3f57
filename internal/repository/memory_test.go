package repository

import (
	"context"
	"errors"
	"testing"

	"autoorder/internal/domain"
)

func newOrder(id string) *domain.Order {
	return &domain.Order{OrderID: id, ProductID: "ebook-bundle", Status: domain.StatusPending, TotalAmount: 15000}
}

func TestMemoryStore_CreateGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	o := newOrder("ORD-1")
	if err := store.Create(ctx, o); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Create(ctx, newOrder("ORD-1")); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected already exists, got %v", err)
	}

	got, err := store.GetByID(ctx, "ORD-1")
	if err != nil || got.OrderID != "ORD-1" {
		t.Fatalf("get: %v %v", got, err)
	}

	// returned value is a copy, mutating it must not leak into the store
	got.Status = domain.StatusPaid
	again, _ := store.GetByID(ctx, "ORD-1")
	if again.Status != domain.StatusPending {
		t.Fatalf("store leaked a reference: %v", again.Status)
	}

	if _, err := store.GetByID(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryStore_Mutate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Create(ctx, newOrder("ORD-1")); err != nil {
		t.Fatal(err)
	}

	updated, err := store.Mutate(ctx, "ORD-1", func(o *domain.Order) error {
		o.Status = domain.StatusPaid
		return nil
	})
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if updated.Status != domain.StatusPaid {
		t.Fatalf("expected paid, got %v", updated.Status)
	}

	// callback error leaves the stored order untouched
	boom := errors.New("boom")
	if _, err := store.Mutate(ctx, "ORD-1", func(o *domain.Order) error {
		o.Status = domain.StatusCancelled
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
	got, _ := store.GetByID(ctx, "ORD-1")
	if got.Status != domain.StatusPaid {
		t.Fatalf("failed mutate must not persist, got %v", got.Status)
	}

	if _, err := store.Mutate(ctx, "nope", func(o *domain.Order) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryStore_ListByStatus(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	for _, id := range []string{"ORD-1", "ORD-2", "ORD-3"} {
		if err := store.Create(ctx, newOrder(id)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := store.Mutate(ctx, "ORD-2", func(o *domain.Order) error {
		o.Status = domain.StatusPaid
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	pending, _ := store.ListByStatus(ctx, domain.StatusPending)
	if len(pending) != 2 || pending[0].OrderID != "ORD-1" || pending[1].OrderID != "ORD-3" {
		t.Fatalf("pending listing wrong: %+v", pending)
	}
	paid, _ := store.ListByStatus(ctx, domain.StatusPaid)
	if len(paid) != 1 || paid[0].OrderID != "ORD-2" {
		t.Fatalf("paid listing wrong: %+v", paid)
	}
}

func TestStaticCatalog(t *testing.T) {
	ctx := context.Background()
	c := NewStaticCatalog(DefaultProducts())

	list, err := c.List(ctx)
	if err != nil || len(list) != 2 {
		t.Fatalf("list: %v %v", list, err)
	}
	p, err := c.Find(ctx, "ebook-bundle")
	if err != nil || p.Price != 15000 {
		t.Fatalf("find: %+v %v", p, err)
	}
	if _, err := c.Find(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
