package flow

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/m3rciful/shopbot/core/telegram/format"
	"github.com/m3rciful/shopbot/internal/reply"
	"github.com/m3rciful/shopbot/internal/shop"
	"github.com/m3rciful/shopbot/internal/ui"
)

const feedbackMinRunes = 3

func (e *Engine) showOrders(ctx context.Context, r *Request) ([]reply.Reply, error) {
	orders, err := e.store.UserOrders(ctx, r.UserID(), e.cfg.ListLimit)
	if err != nil {
		return nil, err
	}
	return []reply.Reply{r.Text(r.View.OrdersList(orders), nil)}, nil
}

// showOrder serves /order_N.
func (e *Engine) showOrder(ctx context.Context, r *Request) ([]reply.Reply, error) {
	id, err := ParseOrderRef(r.Event.Command.Argument)
	if err != nil {
		return nil, err
	}
	order, err := e.ownOrder(ctx, r, id)
	if err != nil {
		return nil, err
	}
	return []reply.Reply{r.Text(r.View.OrderDetails(order), nil)}, nil
}

// track serves /track_N directly and starts the tracking flow without an
// argument.
func (e *Engine) track(ctx context.Context, r *Request) ([]reply.Reply, error) {
	if r.Event.Command.Argument == "" {
		return e.beginTracking(ctx, r)
	}
	return e.showOrder(ctx, r)
}

func (e *Engine) searchCommand(ctx context.Context, r *Request) ([]reply.Reply, error) {
	query := strings.TrimSpace(r.Event.Command.Argument)
	if query == "" {
		return e.beginSearch(ctx, r)
	}
	return e.search(ctx, r, query)
}

func (e *Engine) loyaltyRecord(ctx context.Context, userID int64) (*shop.LoyaltyRecord, error) {
	rec, err := e.store.Loyalty(ctx, userID)
	if !errors.Is(err, shop.ErrNotFound) {
		return rec, err
	}
	if err := e.store.EnsureLoyalty(ctx, userID); err != nil {
		return nil, err
	}
	return &shop.LoyaltyRecord{UserID: userID}, nil
}

func (e *Engine) showProfile(ctx context.Context, r *Request) ([]reply.Reply, error) {
	stats, err := e.store.OrderStats(ctx, r.UserID())
	if err != nil {
		return nil, err
	}
	rec, err := e.loyaltyRecord(ctx, r.UserID())
	if err != nil {
		return nil, err
	}
	return []reply.Reply{r.Text(r.View.Profile(r.User, stats, rec), nil)}, nil
}

func (e *Engine) showLoyalty(ctx context.Context, r *Request) ([]reply.Reply, error) {
	rec, err := e.loyaltyRecord(ctx, r.UserID())
	if err != nil {
		return nil, err
	}
	return []reply.Reply{r.Text(r.View.Loyalty(rec, e.cfg.AwardRate), nil)}, nil
}

func (e *Engine) showPromos(ctx context.Context, r *Request) ([]reply.Reply, error) {
	promos, err := e.store.ActivePromotions(ctx, e.now())
	if err != nil {
		return nil, err
	}
	return []reply.Reply{r.Text(r.View.Promotions(promos), nil)}, nil
}

// checkPromo serves /promo_CODE and previews the discount on the current cart.
func (e *Engine) checkPromo(ctx context.Context, r *Request) ([]reply.Reply, error) {
	code := strings.ToUpper(strings.TrimSpace(r.Event.Command.Argument))
	if code == "" {
		return e.showPromos(ctx, r)
	}
	promo, err := e.store.Promotion(ctx, code)
	if err != nil {
		return nil, err
	}
	if !promo.ActiveAt(e.now()) {
		return nil, invalid("promo", shop.ReasonExpired)
	}
	percent := promo.DiscountPercent.String()
	lines, err := e.store.CartLines(ctx, r.UserID())
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return []reply.Reply{r.Say("promos.valid_no_cart", format.Escape(promo.Code), percent)}, nil
	}
	total := shop.CartTotal(lines)
	discount, err := promo.Discount(total)
	if err != nil {
		return []reply.Reply{r.Say("invalid.promo.below_minimum", ui.Price(promo.MinTotal, e.cfg.Currency))}, nil
	}
	return []reply.Reply{r.Say("promos.valid", format.Escape(promo.Code), percent,
		ui.Price(total, e.cfg.Currency), ui.Price(discount, e.cfg.Currency))}, nil
}

func (e *Engine) feedback(ctx context.Context, r *Request) ([]reply.Reply, error) {
	text := strings.TrimSpace(r.Event.Command.Argument)
	if utf8.RuneCountInString(text) < feedbackMinRunes {
		return nil, invalid("feedback", shop.ReasonTooShort)
	}
	if err := e.store.AddFeedback(ctx, r.UserID(), text); err != nil {
		return nil, err
	}
	from := r.User
	e.async(ctx, "notify.feedback", func(ctx context.Context) error {
		return e.notifier.Feedback(ctx, from, text)
	})
	return []reply.Reply{r.Say("feedback.thanks")}, nil
}

func (e *Engine) showNotifications(ctx context.Context, r *Request) ([]reply.Reply, error) {
	items, err := e.store.UnreadNotifications(ctx, r.UserID())
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return []reply.Reply{r.Say("notifications.empty")}, nil
	}
	lines := []string{r.T("notifications.title"), ""}
	for _, n := range items {
		lines = append(lines, format.Italic(n.CreatedAt.Format("02.01 15:04"))+"\n"+n.Text)
	}
	if err := e.store.MarkNotificationsRead(ctx, r.UserID()); err != nil {
		return nil, err
	}
	return []reply.Reply{r.Text(strings.Join(lines, "\n\n"), nil)}, nil
}
