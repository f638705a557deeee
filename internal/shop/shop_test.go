package shop

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCartTotalAndAward(t *testing.T) {
	lines := []CartLine{
		{ProductID: 1, UnitPrice: dec("10.00"), Quantity: 2},
		{ProductID: 2, UnitPrice: dec("5.00"), Quantity: 1},
	}
	total := CartTotal(lines)
	assert.True(t, total.Equal(dec("25")), total.String())
	assert.True(t, ItemsTotal(SnapshotItems(lines)).Equal(total))

	assert.Equal(t, int64(1), LoyaltyAward(total, dec("0.05")))
	assert.Equal(t, int64(2), LoyaltyAward(total, dec("0.1")))
	assert.Equal(t, int64(0), LoyaltyAward(dec("19.99"), dec("0.05")))
	assert.Equal(t, int64(0), LoyaltyAward(total, dec("-1")))
	assert.True(t, CartTotal(nil).IsZero())
}

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusConfirmed, StatusShipped, true},
		{StatusShipped, StatusDelivered, true},
		{StatusPending, StatusShipped, false},
		{StatusShipped, StatusCancelled, true},
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		{StatusConfirmed, StatusPending, false},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s->%s", tc.from, tc.to), func(t *testing.T) {
			err := tc.from.Transition(tc.to)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			}
		})
	}

	_, err := ParseOrderStatus("lost")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, ReasonUnknownStatus, ve.Reason)
}

func TestErrorTaxonomy(t *testing.T) {
	nf := NotFound("order", 42)
	assert.ErrorIs(t, nf, ErrNotFound)
	assert.ErrorIs(t, fmt.Errorf("wrapped: %w", nf), ErrNotFound)

	assert.Same(t, nf, Transient("load", nf))
	assert.Equal(t, ErrEmptyCart, Transient("checkout", ErrEmptyCart))

	io := Transient("select", errors.New("connection reset"))
	assert.True(t, IsTransient(io))
	assert.False(t, IsTransient(nf))
	assert.Nil(t, Transient("noop", nil))
}

func TestPromotionRules(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	p := Promotion{
		Code:            "SPRING",
		DiscountPercent: dec("10"),
		MinTotal:        dec("50"),
		ValidFrom:       now.Add(-time.Hour),
		ValidUntil:      now.Add(time.Hour),
		Active:          true,
	}
	assert.True(t, p.ActiveAt(now))
	assert.False(t, p.ActiveAt(now.Add(2*time.Hour)))

	d, err := p.Discount(dec("80"))
	require.NoError(t, err)
	assert.True(t, d.Equal(dec("8")))

	_, err = p.Discount(dec("10"))
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, ReasonBelowMinimum, ve.Reason)
}

func TestLoyaltyTierAndLanguage(t *testing.T) {
	assert.Equal(t, TierBronze, LoyaltyRecord{TotalEarned: 10}.Tier())
	assert.Equal(t, TierSilver, LoyaltyRecord{TotalEarned: 1000}.Tier())
	assert.Equal(t, TierGold, LoyaltyRecord{TotalEarned: 7000}.Tier())

	assert.Equal(t, LangUZ, ParseLanguage("uz"))
	assert.Equal(t, LangRU, ParseLanguage("en-US"))
	assert.Equal(t, LangRU, ParseLanguage(""))
}
