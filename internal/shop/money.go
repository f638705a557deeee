package shop

import "github.com/shopspring/decimal"

// CartTotal sums unit price times quantity over lines.
func CartTotal(lines []CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// ItemsTotal sums an order snapshot.
func ItemsTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

// SnapshotItems freezes cart lines into order items.
func SnapshotItems(lines []CartLine) []OrderItem {
	items := make([]OrderItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, OrderItem{
			ProductID: l.ProductID,
			Name:      l.Name,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
		})
	}
	return items
}

// LoyaltyAward is floor(total x rate) points; never negative.
func LoyaltyAward(total, rate decimal.Decimal) int64 {
	if total.IsNegative() || rate.IsNegative() {
		return 0
	}
	return total.Mul(rate).Floor().IntPart()
}

// Discount returns the amount the promotion takes off total, or a
// ValidationError explaining why it does not apply.
func (p Promotion) Discount(total decimal.Decimal) (decimal.Decimal, error) {
	if total.LessThan(p.MinTotal) {
		return decimal.Zero, &ValidationError{Field: "promo", Reason: ReasonBelowMinimum}
	}
	return total.Mul(p.DiscountPercent).Div(decimal.NewFromInt(100)).Round(2), nil
}
