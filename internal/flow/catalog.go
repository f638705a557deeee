package flow

import (
	"context"
	"errors"

	"github.com/m3rciful/shopbot/core/telegram/format"
	"github.com/m3rciful/shopbot/internal/event"
	"github.com/m3rciful/shopbot/internal/reply"
	"github.com/m3rciful/shopbot/internal/shop"
	"github.com/m3rciful/shopbot/internal/ui"
)

// callbackID reads the numeric parameter of a button press; a malformed
// value is reported as a missing entity.
func callbackID(ev event.Classified, entity string) (int64, error) {
	id, ok := ev.Callback.Int64(0)
	if !ok {
		return 0, shop.NotFound(entity, ev.Callback.Data)
	}
	return id, nil
}

func (e *Engine) showCatalog(ctx context.Context, r *Request) ([]reply.Reply, error) {
	categories, err := e.catalog.Categories(ctx)
	if err != nil {
		return nil, err
	}
	if len(categories) == 0 {
		return []reply.Reply{r.MainMenu(r.T("catalog.empty"))}, nil
	}
	return []reply.Reply{r.Text(r.T("catalog.title"), ui.CategoriesKeyboard(categories))}, nil
}

func (e *Engine) categoryCallback(ctx context.Context, r *Request) ([]reply.Reply, error) {
	id, err := callbackID(r.Event, "category")
	if err != nil {
		return nil, err
	}
	c, err := e.catalog.Category(ctx, id)
	if err != nil {
		return nil, err
	}
	return e.showCategory(ctx, r, c)
}

func (e *Engine) showCategory(ctx context.Context, r *Request, c *shop.Category) ([]reply.Reply, error) {
	products, err := e.catalog.ProductsByCategory(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return []reply.Reply{r.Say("catalog.category_empty")}, nil
	}
	return []reply.Reply{r.Text(r.T("catalog.category", format.Escape(c.Name)),
		ui.ProductsKeyboard(r.View.T, products, e.cfg.Currency))}, nil
}

func (e *Engine) productCallback(ctx context.Context, r *Request) ([]reply.Reply, error) {
	id, err := callbackID(r.Event, "product")
	if err != nil {
		return nil, err
	}
	p, err := e.catalog.Product(ctx, id)
	if err != nil {
		return nil, err
	}
	return []reply.Reply{e.productCard(r, p)}, nil
}

func (e *Engine) productCard(r *Request, p *shop.Product) reply.Reply {
	kb := ui.ProductCardKeyboard(r.View.T, p.ID)
	if p.ImageRef != "" {
		return reply.Image(r.Event.ChatID, p.ImageRef, r.View.ProductCard(*p), kb)
	}
	return r.Text(r.View.ProductCard(*p), kb)
}

func (e *Engine) addToCart(ctx context.Context, r *Request) ([]reply.Reply, error) {
	id, err := callbackID(r.Event, "product")
	if err != nil {
		return nil, err
	}
	if err := e.store.AddToCart(ctx, r.UserID(), id, 1); err != nil {
		return nil, err
	}
	return []reply.Reply{r.Answer(r.T("catalog.added"))}, nil
}

func (e *Engine) addFavorite(ctx context.Context, r *Request) ([]reply.Reply, error) {
	id, err := callbackID(r.Event, "product")
	if err != nil {
		return nil, err
	}
	if _, err := e.catalog.Product(ctx, id); err != nil {
		return nil, err
	}
	added, err := e.store.AddFavorite(ctx, r.UserID(), id)
	if err != nil {
		return nil, err
	}
	if !added {
		return []reply.Reply{r.Answer(r.T("catalog.already_favorite"))}, nil
	}
	return []reply.Reply{r.Answer(r.T("catalog.favorited"))}, nil
}

func (e *Engine) showReviews(ctx context.Context, r *Request) ([]reply.Reply, error) {
	id, err := callbackID(r.Event, "product")
	if err != nil {
		return nil, err
	}
	p, err := e.catalog.Product(ctx, id)
	if err != nil {
		return nil, err
	}
	reviews, err := e.store.ProductReviews(ctx, id, e.cfg.ListLimit)
	if err != nil {
		return nil, err
	}
	return []reply.Reply{r.Text(r.View.Reviews(p.Name, reviews), nil)}, nil
}

func (e *Engine) rateProduct(ctx context.Context, r *Request) ([]reply.Reply, error) {
	id, err := callbackID(r.Event, "product")
	if err != nil {
		return nil, err
	}
	return e.beginRating(ctx, r, id)
}

// freeText recognizes product captions and category names typed or tapped
// outside any flow.
func (e *Engine) freeText(ctx context.Context, r *Request) ([]reply.Reply, error) {
	text, _ := r.Event.Input()
	if name, ok := ui.ParseProductButton(text); ok {
		p, err := e.catalog.ProductByName(ctx, name)
		if err != nil {
			return nil, err
		}
		return []reply.Reply{e.productCard(r, p)}, nil
	}
	c, err := e.catalog.CategoryByName(ctx, text)
	switch {
	case err == nil:
		return e.showCategory(ctx, r, c)
	case !errors.Is(err, shop.ErrNotFound):
		return nil, err
	}
	return []reply.Reply{r.MainMenu(r.T("common.unknown"))}, nil
}
