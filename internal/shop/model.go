// Package shop holds the commerce domain model shared by the conversation
// engine and the storage backends.
package shop

import (
	"time"

	"github.com/shopspring/decimal"
)

// Language is a supported interface language.
type Language string

const (
	LangRU Language = "ru"
	LangUZ Language = "uz"
)

// ParseLanguage maps a client language code onto a supported language,
// defaulting to Russian.
func ParseLanguage(code string) Language {
	if len(code) >= 2 && Language(code[:2]) == LangUZ {
		return LangUZ
	}
	return LangRU
}

// User is a registered customer. ID is the messaging platform user id and is
// the only key that survives across sessions.
type User struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	Phone     *string   `db:"phone"`
	Email     *string   `db:"email"`
	Language  Language  `db:"language"`
	IsAdmin   bool      `db:"is_admin"`
	CreatedAt time.Time `db:"created_at"`
}

type Category struct {
	ID          int64  `db:"id" yaml:"id"`
	Name        string `db:"name" yaml:"name"`
	Description string `db:"description" yaml:"description"`
}

type Product struct {
	ID          int64           `db:"id" yaml:"id"`
	CategoryID  int64           `db:"category_id" yaml:"category_id"`
	Name        string          `db:"name" yaml:"name"`
	Description string          `db:"description" yaml:"description"`
	Price       decimal.Decimal `db:"price" yaml:"price"`
	ImageRef    string          `db:"image_ref" yaml:"image"`
	Active      bool            `db:"active" yaml:"active"`
}

// CartLine is one product line of a user's cart. Quantity is always positive.
type CartLine struct {
	ID        int64           `db:"id"`
	UserID    int64           `db:"user_id"`
	ProductID int64           `db:"product_id"`
	Name      string          `db:"name"`
	UnitPrice decimal.Decimal `db:"unit_price"`
	Quantity  int             `db:"quantity"`
}

// Subtotal is unit price times quantity.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// OrderItem is the price snapshot of a cart line taken at checkout.
type OrderItem struct {
	OrderID   int64           `db:"order_id"`
	ProductID int64           `db:"product_id"`
	Name      string          `db:"name"`
	UnitPrice decimal.Decimal `db:"unit_price"`
	Quantity  int             `db:"quantity"`
}

type Order struct {
	ID        int64           `db:"id"`
	Reference string          `db:"reference"`
	UserID    int64           `db:"user_id"`
	Status    OrderStatus     `db:"status"`
	Total     decimal.Decimal `db:"total"`
	Address   string          `db:"address"`
	Payment   PaymentMethod   `db:"payment"`
	Points    int64           `db:"points"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
	Items     []OrderItem     `db:"-"`
}

// OrderDraft carries everything needed to place an order atomically: the
// order row, its items, the cart wipe and the loyalty award.
type OrderDraft struct {
	IdempotencyKey string
	Reference      string
	UserID         int64
	Address        string
	Payment        PaymentMethod
	Items          []OrderItem
	Total          decimal.Decimal
	Points         int64
}

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
)

// PaymentMethods lists the methods offered at checkout, in display order.
var PaymentMethods = []PaymentMethod{PaymentCash, PaymentCard, PaymentTransfer}

type LoyaltyRecord struct {
	UserID      int64     `db:"user_id"`
	Points      int64     `db:"points"`
	TotalEarned int64     `db:"total_earned"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Tier derives the loyalty tier from lifetime points.
func (r LoyaltyRecord) Tier() LoyaltyTier {
	switch {
	case r.TotalEarned >= 5000:
		return TierGold
	case r.TotalEarned >= 1000:
		return TierSilver
	default:
		return TierBronze
	}
}

type LoyaltyTier string

const (
	TierBronze LoyaltyTier = "bronze"
	TierSilver LoyaltyTier = "silver"
	TierGold   LoyaltyTier = "gold"
)

type Promotion struct {
	Code            string          `db:"code" yaml:"code"`
	Description     string          `db:"description" yaml:"description"`
	DiscountPercent decimal.Decimal `db:"discount_percent" yaml:"discount_percent"`
	MinTotal        decimal.Decimal `db:"min_total" yaml:"min_total"`
	ValidFrom       time.Time       `db:"valid_from" yaml:"valid_from"`
	ValidUntil      time.Time       `db:"valid_until" yaml:"valid_until"`
	Active          bool            `db:"active" yaml:"active"`
}

// ActiveAt reports whether the promotion can be used at now.
func (p Promotion) ActiveAt(now time.Time) bool {
	return p.Active && !now.Before(p.ValidFrom) && now.Before(p.ValidUntil)
}

type Review struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	ProductID int64     `db:"product_id"`
	Stars     int       `db:"stars"`
	Comment   string    `db:"comment"`
	Author    string    `db:"author"`
	CreatedAt time.Time `db:"created_at"`
}

type Notification struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	Text      string    `db:"text"`
	Read      bool      `db:"is_read"`
	CreatedAt time.Time `db:"created_at"`
}

// OrderStats summarizes a user's order history for the profile view.
type OrderStats struct {
	Count int             `db:"count"`
	Spent decimal.Decimal `db:"spent"`
}

// ShopStats summarizes the shop for administrators.
type ShopStats struct {
	Users   int             `db:"users"`
	Orders  int             `db:"orders"`
	Pending int             `db:"pending"`
	Revenue decimal.Decimal `db:"revenue"`
}
