package repository

import (
	"context"

	"autoorder/internal/domain"
)

// StaticCatalog serves a fixed product list seeded at startup. No mutation at
// runtime, no failure modes beyond not-found.
type StaticCatalog struct {
	products []domain.Product
	byID     map[string]int
}

func NewStaticCatalog(products []domain.Product) *StaticCatalog {
	byID := make(map[string]int, len(products))
	for i, p := range products {
		byID[p.ID] = i
	}
	return &StaticCatalog{products: products, byID: byID}
}

// DefaultProducts is the storefront's catalog.
func DefaultProducts() []domain.Product {
	return []domain.Product{
		{
			ID:           "ebook-bundle",
			Name:         "E-Book Starter Bundle",
			Description:  "Koleksi 12 e-book produktivitas, format PDF/EPUB",
			Price:        15000,
			Icon:         "📚",
			Category:     "digital",
			Stock:        999,
			Popular:      true,
			DownloadLink: "https://files.example.com/dl/ebook-bundle",
		},
		{
			ID:           "preset-pack",
			Name:         "Lightroom Preset Pack",
			Description:  "40 preset siap pakai untuk mobile & desktop",
			Price:        10000,
			Icon:         "🎨",
			Category:     "digital",
			Stock:        999,
			Popular:      false,
			DownloadLink: "https://files.example.com/dl/preset-pack",
		},
	}
}

var _ ProductCatalog = (*StaticCatalog)(nil)

func (c *StaticCatalog) List(ctx context.Context) ([]domain.Product, error) {
	out := make([]domain.Product, len(c.products))
	copy(out, c.products)
	return out, nil
}

func (c *StaticCatalog) Find(ctx context.Context, id string) (*domain.Product, error) {
	i, ok := c.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := c.products[i]
	return &cp, nil
}
