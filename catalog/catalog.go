package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"snapshop/models"
)

var ErrProductNotFound = errors.New("product not found")

//go:embed products.json
var seed []byte

// Source lists the products on sale.
type Source interface {
	Products(ctx context.Context) ([]models.Product, error)
}

// Static is a fixed product list.
type Static []models.Product

func (s Static) Products(ctx context.Context) ([]models.Product, error) {
	return append([]models.Product{}, s...), nil
}

// Seed returns the catalog bundled with the binary.
func Seed() (Static, error) {
	return decode(seed)
}

// LoadFile reads a JSON array of products.
func LoadFile(path string) (Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return decode(data)
}

func decode(data []byte) (Static, error) {
	var products []models.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	for i, p := range products {
		if p.Name == "" {
			return nil, fmt.Errorf("catalog entry %d has no name", i)
		}
	}
	return products, nil
}

// Query narrows a product list. Zero fields match everything.
type Query struct {
	Search   string
	Category string
	MaxPrice float64
}

// Filter keeps the products whose name contains Search (case-insensitive),
// whose category equals Category and whose price does not exceed MaxPrice.
func Filter(products []models.Product, q Query) []models.Product {
	search := strings.ToLower(strings.TrimSpace(q.Search))

	result := make([]models.Product, 0, len(products))
	for _, p := range products {
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		if q.Category != "" && p.Category != q.Category {
			continue
		}
		if q.MaxPrice > 0 && p.Price > q.MaxPrice {
			continue
		}
		result = append(result, p)
	}
	return result
}

// Find looks a product up by its exact name.
func Find(ctx context.Context, src Source, name string) (models.Product, error) {
	products, err := src.Products(ctx)
	if err != nil {
		return models.Product{}, err
	}
	for _, p := range products {
		if p.Name == name {
			return p, nil
		}
	}
	return models.Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, name)
}
