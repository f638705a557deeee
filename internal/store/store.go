// Package store declares the persistence ports of the shop. Implementations
// live in the postgres and memory subpackages; both report missing rows as
// shop.NotFoundError.
package store

import (
	"context"
	"time"

	"github.com/m3rciful/shopbot/internal/shop"
)

type Users interface {
	User(ctx context.Context, id int64) (*shop.User, error)
	// CreateUser inserts the user or refreshes the profile of an existing one.
	CreateUser(ctx context.Context, u *shop.User) error
	SetLanguage(ctx context.Context, id int64, lang shop.Language) error
	// PromoteAdmin marks id as administrator, creating a placeholder user if needed.
	PromoteAdmin(ctx context.Context, id int64) error
	AdminIDs(ctx context.Context) ([]int64, error)
}

type Catalog interface {
	Categories(ctx context.Context) ([]shop.Category, error)
	ProductsByCategory(ctx context.Context, categoryID int64, limit int) ([]shop.Product, error)
	Product(ctx context.Context, id int64) (*shop.Product, error)
	SearchProducts(ctx context.Context, query string, limit int) ([]shop.Product, error)
	// PopularProducts ranks active products by units ordered.
	PopularProducts(ctx context.Context, limit int) ([]shop.Product, error)
	UpsertCategory(ctx context.Context, c shop.Category) error
	UpsertProduct(ctx context.Context, p shop.Product) error
	UpsertPromotion(ctx context.Context, p shop.Promotion) error
}

type Carts interface {
	// AddToCart adds qty units, merging with an existing line for the product.
	AddToCart(ctx context.Context, userID, productID int64, qty int) error
	CartLines(ctx context.Context, userID int64) ([]shop.CartLine, error)
	CartLine(ctx context.Context, userID, lineID int64) (*shop.CartLine, error)
	IncrementCartLine(ctx context.Context, userID, lineID int64) (int, error)
	// DecrementCartLine returns the new quantity; 0 means the line was deleted.
	DecrementCartLine(ctx context.Context, userID, lineID int64) (int, error)
	RemoveCartLine(ctx context.Context, userID, lineID int64) error
}

type Orders interface {
	// CreateOrder persists the order and its items, empties the cart and
	// credits loyalty points in one transaction. A repeated idempotency key
	// returns the existing order and created=false.
	CreateOrder(ctx context.Context, d shop.OrderDraft) (order *shop.Order, created bool, err error)
	Order(ctx context.Context, id int64) (*shop.Order, error)
	UserOrders(ctx context.Context, userID int64, limit int) ([]shop.Order, error)
	// UpdateOrderStatus applies the change only while the order is still in from.
	UpdateOrderStatus(ctx context.Context, id int64, from, to shop.OrderStatus) error
	OrderStats(ctx context.Context, userID int64) (shop.OrderStats, error)
	ShopStats(ctx context.Context) (shop.ShopStats, error)
}

type Loyalty interface {
	EnsureLoyalty(ctx context.Context, userID int64) error
	Loyalty(ctx context.Context, userID int64) (*shop.LoyaltyRecord, error)
}

type Promotions interface {
	ActivePromotions(ctx context.Context, now time.Time) ([]shop.Promotion, error)
	Promotion(ctx context.Context, code string) (*shop.Promotion, error)
}

type Engagement interface {
	AddFavorite(ctx context.Context, userID, productID int64) (added bool, err error)
	AddReview(ctx context.Context, r *shop.Review) error
	ProductReviews(ctx context.Context, productID int64, limit int) ([]shop.Review, error)
	AddFeedback(ctx context.Context, userID int64, text string) error
	LogActivity(ctx context.Context, userID int64, action, payload string) error
}

type Notifications interface {
	AddNotification(ctx context.Context, userID int64, text string) error
	UnreadNotifications(ctx context.Context, userID int64) ([]shop.Notification, error)
	MarkNotificationsRead(ctx context.Context, userID int64) error
}

// Store is the full persistence surface used by the bot.
type Store interface {
	Users
	Catalog
	Carts
	Orders
	Loyalty
	Promotions
	Engagement
	Notifications

	Ping(ctx context.Context) error
	Close() error
}
