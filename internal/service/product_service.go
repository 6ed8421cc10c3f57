package service

import (
	"context"
	"errors"

	"autoorder/internal/domain"
	"autoorder/internal/repository"
)

var ErrInvalidInput = errors.New("invalid input")

// ProductService exposes the read-only catalog.
type ProductService struct {
	catalog repository.ProductCatalog
}

func NewProductService(catalog repository.ProductCatalog) *ProductService {
	return &ProductService{catalog: catalog}
}

func (s *ProductService) List(ctx context.Context) ([]domain.Product, error) {
	return s.catalog.List(ctx)
}

func (s *ProductService) Find(ctx context.Context, id string) (*domain.Product, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	return s.catalog.Find(ctx, id)
}
