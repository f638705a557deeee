package notify

import (
	"context"

	"github.com/m3rciful/shopbot/internal/flow"
	"github.com/m3rciful/shopbot/internal/shop"
)

// PopularSource ranks products by sales.
type PopularSource interface {
	PopularProducts(ctx context.Context, limit int) ([]shop.Product, error)
}

// Popular recommends best sellers. It is not personalised: every user gets
// the same list.
type Popular struct {
	src PopularSource
}

var _ flow.Recommender = (*Popular)(nil)

func NewPopular(src PopularSource) *Popular {
	return &Popular{src: src}
}

func (p *Popular) Recommend(ctx context.Context, _ int64, limit int) ([]shop.Product, error) {
	if limit <= 0 {
		limit = 3
	}
	return p.src.PopularProducts(ctx, limit)
}
