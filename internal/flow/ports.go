package flow

import (
	"context"
	"time"

	"github.com/m3rciful/shopbot/internal/shop"
)

// Notifier tells people outside the conversation about shop events.
// Calls run in the background; errors are logged only.
type Notifier interface {
	OrderPlaced(ctx context.Context, order *shop.Order, customer *shop.User) error
	OrderStatusChanged(ctx context.Context, order *shop.Order, from shop.OrderStatus) error
	Feedback(ctx context.Context, from *shop.User, text string) error
}

// Recommender suggests products when a search finds nothing.
type Recommender interface {
	Recommend(ctx context.Context, userID int64, limit int) ([]shop.Product, error)
}

// Onboarding starts the welcome sequence of a new customer.
type Onboarding interface {
	Welcome(ctx context.Context, user *shop.User) error
}

// Catalog is the read side of the product catalog.
type Catalog interface {
	Categories(ctx context.Context) ([]shop.Category, error)
	Category(ctx context.Context, id int64) (*shop.Category, error)
	CategoryByName(ctx context.Context, name string) (*shop.Category, error)
	ProductsByCategory(ctx context.Context, categoryID int64) ([]shop.Product, error)
	Product(ctx context.Context, id int64) (*shop.Product, error)
	ProductByName(ctx context.Context, name string) (*shop.Product, error)
}

// Reloader refreshes a cached catalog from the store and reports what it
// now holds.
type Reloader interface {
	Reload(ctx context.Context) (categories, products int, err error)
}

// Observer receives one call per handled event.
type Observer interface {
	ObserveEvent(kind, handler, outcome string, took time.Duration)
}

type noopNotifier struct{}

func (noopNotifier) OrderPlaced(context.Context, *shop.Order, *shop.User) error { return nil }

func (noopNotifier) OrderStatusChanged(context.Context, *shop.Order, shop.OrderStatus) error {
	return nil
}

func (noopNotifier) Feedback(context.Context, *shop.User, string) error { return nil }

type noopRecommender struct{}

func (noopRecommender) Recommend(context.Context, int64, int) ([]shop.Product, error) {
	return nil, nil
}

type noopOnboarding struct{}

func (noopOnboarding) Welcome(context.Context, *shop.User) error { return nil }

type noopObserver struct{}

func (noopObserver) ObserveEvent(string, string, string, time.Duration) {}

type noopReloader struct{}

func (noopReloader) Reload(context.Context) (int, int, error) { return 0, 0, nil }
