// Package catalog caches the product catalog in memory and seeds it from
// YAML files.
package catalog

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/internal/shop"
	"github.com/m3rciful/shopbot/internal/store"
)

type snapshot struct {
	categories []shop.Category
	byID       map[int64]shop.Category
	byCatName  map[string]int64
	products   map[int64]shop.Product
	byCategory map[int64][]shop.Product
	byName     map[string]int64
}

// Cache serves catalog reads from memory. The snapshot is built on first use
// and replaced as a whole by Reload.
type Cache struct {
	src   store.Catalog
	group singleflight.Group

	mu   sync.RWMutex
	snap *snapshot
}

// NewCache wraps src.
func NewCache(src store.Catalog) *Cache {
	return &Cache{src: src}
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Reload rebuilds the snapshot from the store. Concurrent calls share one
// load.
func (c *Cache) Reload(ctx context.Context) (int, int, error) {
	v, err, _ := c.group.Do("reload", func() (any, error) {
		return c.load(ctx)
	})
	if err != nil {
		return 0, 0, err
	}
	s := v.(*snapshot)
	return len(s.categories), len(s.products), nil
}

func (c *Cache) load(ctx context.Context) (*snapshot, error) {
	start := time.Now()
	categories, err := c.src.Categories(ctx)
	if err != nil {
		return nil, err
	}
	s := &snapshot{
		categories: categories,
		byID:       make(map[int64]shop.Category, len(categories)),
		byCatName:  make(map[string]int64, len(categories)),
		products:   make(map[int64]shop.Product),
		byCategory: make(map[int64][]shop.Product, len(categories)),
		byName:     make(map[string]int64),
	}
	for _, cat := range categories {
		s.byID[cat.ID] = cat
		s.byCatName[key(cat.Name)] = cat.ID
		products, err := c.src.ProductsByCategory(ctx, cat.ID, 0)
		if err != nil {
			return nil, err
		}
		s.byCategory[cat.ID] = products
		for _, p := range products {
			s.products[p.ID] = p
			s.byName[key(p.Name)] = p.ID
		}
	}

	c.mu.Lock()
	c.snap = s
	c.mu.Unlock()

	logger.LogEvent(ctx, logger.SVCCatalog, slog.LevelInfo, "catalog.reloaded",
		slog.Int("categories", len(s.categories)),
		slog.Int("products", len(s.products)),
		slog.Duration("duration", time.Since(start)),
	)
	return s, nil
}

func (c *Cache) current(ctx context.Context) (*snapshot, error) {
	c.mu.RLock()
	s := c.snap
	c.mu.RUnlock()
	if s != nil {
		return s, nil
	}
	if _, _, err := c.Reload(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap, nil
}

func (c *Cache) Categories(ctx context.Context) ([]shop.Category, error) {
	s, err := c.current(ctx)
	if err != nil {
		return nil, err
	}
	return s.categories, nil
}

func (c *Cache) Category(ctx context.Context, id int64) (*shop.Category, error) {
	s, err := c.current(ctx)
	if err != nil {
		return nil, err
	}
	cat, ok := s.byID[id]
	if !ok {
		return nil, shop.NotFound("category", id)
	}
	return &cat, nil
}

// CategoryByName matches a category name case-insensitively.
func (c *Cache) CategoryByName(ctx context.Context, name string) (*shop.Category, error) {
	s, err := c.current(ctx)
	if err != nil {
		return nil, err
	}
	id, ok := s.byCatName[key(name)]
	if !ok {
		return nil, shop.NotFound("category", name)
	}
	cat := s.byID[id]
	return &cat, nil
}

func (c *Cache) ProductsByCategory(ctx context.Context, categoryID int64) ([]shop.Product, error) {
	s, err := c.current(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := s.byID[categoryID]; !ok {
		return nil, shop.NotFound("category", categoryID)
	}
	return s.byCategory[categoryID], nil
}

func (c *Cache) Product(ctx context.Context, id int64) (*shop.Product, error) {
	s, err := c.current(ctx)
	if err != nil {
		return nil, err
	}
	p, ok := s.products[id]
	if !ok {
		return nil, shop.NotFound("product", id)
	}
	return &p, nil
}

// ProductByName matches an active product name case-insensitively.
func (c *Cache) ProductByName(ctx context.Context, name string) (*shop.Product, error) {
	s, err := c.current(ctx)
	if err != nil {
		return nil, err
	}
	id, ok := s.byName[key(name)]
	if !ok {
		return nil, shop.NotFound("product", name)
	}
	p := s.products[id]
	return &p, nil
}
