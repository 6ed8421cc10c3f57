package repository

import (
	"context"
	"errors"

	"autoorder/internal/domain"
)

// ErrNotFound is returned when an entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists is returned on an order id collision.
var ErrAlreadyExists = errors.New("already exists")

// ProductCatalog is the read-only catalog of purchasable items.
type ProductCatalog interface {
	List(ctx context.Context) ([]domain.Product, error)
	Find(ctx context.Context, id string) (*domain.Product, error)
}

// OrderRepository is the shared registry of orders keyed by order id.
// Mutate is the only way to change an order after creation: the callback runs
// under the store's write lock so that lifecycle checks are re-evaluated
// immediately before the write, never against a stale read.
type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	Mutate(ctx context.Context, id string, fn func(o *domain.Order) error) (*domain.Order, error)
	ListByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error)
}
