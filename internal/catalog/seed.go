package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/internal/shop"
	"github.com/m3rciful/shopbot/internal/store"
)

// File is the YAML layout of a catalog seed. Prices are quoted decimals.
type File struct {
	Categories []shop.Category  `yaml:"categories"`
	Products   []shop.Product   `yaml:"products"`
	Promotions []shop.Promotion `yaml:"promotions"`
}

// Summary counts upserted rows.
type Summary struct {
	Categories int
	Products   int
	Promotions int
}

// Parse decodes a seed and checks references between its sections.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	ids := make(map[int64]struct{}, len(f.Categories))
	for _, c := range f.Categories {
		if c.ID <= 0 || c.Name == "" {
			return nil, fmt.Errorf("category %d: id and name are required", c.ID)
		}
		ids[c.ID] = struct{}{}
	}
	for _, p := range f.Products {
		if p.ID <= 0 || p.Name == "" {
			return nil, fmt.Errorf("product %d: id and name are required", p.ID)
		}
		if _, ok := ids[p.CategoryID]; !ok {
			return nil, fmt.Errorf("product %d: unknown category %d", p.ID, p.CategoryID)
		}
		if !p.Price.IsPositive() {
			return nil, fmt.Errorf("product %d: price must be positive", p.ID)
		}
	}
	for _, p := range f.Promotions {
		if p.Code == "" || !p.ValidUntil.After(p.ValidFrom) {
			return nil, fmt.Errorf("promotion %q: code and a valid period are required", p.Code)
		}
	}
	return &f, nil
}

// Apply upserts the seed into dst.
func Apply(ctx context.Context, dst store.Catalog, f *File) (Summary, error) {
	var sum Summary
	for _, c := range f.Categories {
		if err := dst.UpsertCategory(ctx, c); err != nil {
			return sum, err
		}
		sum.Categories++
	}
	for _, p := range f.Products {
		if err := dst.UpsertProduct(ctx, p); err != nil {
			return sum, err
		}
		sum.Products++
	}
	for _, p := range f.Promotions {
		if err := dst.UpsertPromotion(ctx, p); err != nil {
			return sum, err
		}
		sum.Promotions++
	}
	return sum, nil
}

// SeedFile reads path and applies it.
func SeedFile(ctx context.Context, dst store.Catalog, path string) (Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to read catalog: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return Summary{}, err
	}
	sum, err := Apply(ctx, dst, f)
	if err != nil {
		return sum, err
	}
	logger.LogEvent(ctx, logger.SEED, slog.LevelInfo, "catalog.seeded",
		slog.String("path", path),
		slog.Int("categories", sum.Categories),
		slog.Int("products", sum.Products),
		slog.Int("promotions", sum.Promotions),
	)
	return sum, nil
}
