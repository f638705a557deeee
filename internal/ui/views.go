package ui

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/m3rciful/shopbot/core/telegram/format"
	"github.com/m3rciful/shopbot/internal/shop"
)

// View renders texts for one user.
type View struct {
	T        *Translator
	Currency string
}

// Price renders an amount with two decimals and the shop currency.
func Price(amount decimal.Decimal, currency string) string {
	s := amount.StringFixed(2)
	if currency == "" {
		return s
	}
	return s + " " + currency
}

func (v View) price(amount decimal.Decimal) string {
	return Price(amount, v.Currency)
}

// ProductButton is the reply caption of a product: "🛍 <name> - <price>".
func ProductButton(p shop.Product, currency string) string {
	return ProductBadge + p.Name + productSep + Price(p.Price, currency)
}

// ParseProductButton extracts the product name from a ProductButton caption.
func ParseProductButton(text string) (string, bool) {
	rest, ok := strings.CutPrefix(text, ProductBadge)
	if !ok {
		return "", false
	}
	i := strings.LastIndex(rest, productSep)
	if i <= 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:i]), true
}

// ProductCard is the caption of a product photo.
func (v View) ProductCard(p shop.Product) string {
	return format.Lines(
		format.Bold(p.Name),
		format.Escape(p.Description),
		"",
		"💰 "+format.Bold(v.price(p.Price)),
	)
}

// CartLine renders one cart line message.
func (v View) CartLine(l shop.CartLine) string {
	return v.T.T("cart.line", format.Bold(l.Name), l.Quantity, v.price(l.UnitPrice), v.price(l.Subtotal()))
}

// CartTotal renders the footer under the cart lines.
func (v View) CartTotal(lines []shop.CartLine) string {
	return v.T.T("cart.total", v.price(shop.CartTotal(lines)))
}

// PaymentName is the localized payment method.
func (v View) PaymentName(m shop.PaymentMethod) string {
	return v.T.T("payment." + string(m))
}

// StatusName is the localized order status.
func (v View) StatusName(s shop.OrderStatus) string {
	return v.T.T("status." + string(s))
}

// OrderPlaced confirms a checkout to the buyer.
func (v View) OrderPlaced(o *shop.Order) string {
	return v.T.T("checkout.complete", o.ID, v.price(o.Total), v.PaymentName(o.Payment), format.Escape(o.Address), o.Points)
}

// AdminOrderNotice announces a new order to administrators.
func (v View) AdminOrderNotice(o *shop.Order, customer string) string {
	return v.T.T("checkout.admin_notice", o.ID, format.Escape(customer), o.UserID,
		v.price(o.Total), v.PaymentName(o.Payment), format.Escape(o.Address))
}

// OrdersList renders the order history.
func (v View) OrdersList(orders []shop.Order) string {
	if len(orders) == 0 {
		return v.T.T("orders.empty")
	}
	lines := []string{v.T.T("orders.title"), ""}
	for _, o := range orders {
		lines = append(lines, v.T.T("orders.line", o.ID, v.date(o.CreatedAt), v.StatusName(o.Status), v.price(o.Total), o.ID))
	}
	return strings.Join(lines, "\n")
}

// OrderDetails renders one order with its items.
func (v View) OrderDetails(o *shop.Order) string {
	var b strings.Builder
	b.WriteString(v.T.T("orders.details", o.ID, v.StatusName(o.Status), v.price(o.Total),
		v.PaymentName(o.Payment), format.Escape(o.Address), v.date(o.CreatedAt)))
	if len(o.Items) > 0 {
		b.WriteString("\n")
	}
	for _, it := range o.Items {
		sub := it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
		b.WriteString("\n" + v.T.T("orders.item", format.Escape(it.Name), it.Quantity, v.price(sub)))
	}
	return b.String()
}

// Profile renders the user's profile with order stats and loyalty.
func (v View) Profile(u *shop.User, stats shop.OrderStats, rec *shop.LoyaltyRecord) string {
	unknown := v.T.T("profile.unknown")
	var points int64
	tier := shop.TierBronze
	if rec != nil {
		points = rec.Points
		tier = rec.Tier()
	}
	return v.T.T("profile.text",
		format.Escape(u.Name),
		format.Escape(format.DerefString(u.Phone, unknown)),
		format.Escape(format.DerefString(u.Email, unknown)),
		v.T.Caption("lang_"+string(u.Language)),
		stats.Count, v.price(stats.Spent), points, v.TierName(tier),
	)
}

// TierName is the localized loyalty tier.
func (v View) TierName(tier shop.LoyaltyTier) string {
	return v.T.T("tier." + string(tier))
}

// Loyalty renders the loyalty program card.
func (v View) Loyalty(rec *shop.LoyaltyRecord, rate decimal.Decimal) string {
	return v.T.T("loyalty.text", rec.Points, rec.TotalEarned, v.TierName(rec.Tier()),
		rate.Mul(decimal.NewFromInt(100)).String())
}

// Promotions renders the list of active promotions.
func (v View) Promotions(promos []shop.Promotion) string {
	if len(promos) == 0 {
		return v.T.T("promos.empty")
	}
	lines := []string{v.T.T("promos.title"), ""}
	for _, p := range promos {
		lines = append(lines, v.T.T("promos.line", format.Escape(p.Code), p.DiscountPercent.String(),
			format.Escape(p.Description), format.Escape(p.Code)))
	}
	return strings.Join(lines, "\n")
}

// Reviews renders product reviews.
func (v View) Reviews(product string, reviews []shop.Review) string {
	lines := []string{v.T.T("catalog.reviews_title", format.Escape(product)), ""}
	if len(reviews) == 0 {
		lines = append(lines, v.T.T("catalog.no_reviews"))
	}
	for _, r := range reviews {
		line := strings.Repeat("⭐", r.Stars) + " " + format.Bold(r.Author)
		if r.Comment != "" {
			line += "\n" + format.Escape(r.Comment)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// ProductList renders search results or suggestions as text lines.
func (v View) ProductList(header string, products []shop.Product) string {
	lines := []string{header}
	for _, p := range products {
		lines = append(lines, "• "+format.Escape(p.Name)+" - "+v.price(p.Price))
	}
	return strings.Join(lines, "\n")
}

func (v View) date(t time.Time) string {
	return t.Format("02.01.2006 15:04")
}
