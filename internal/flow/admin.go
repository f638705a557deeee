package flow

import (
	"context"
	"log/slog"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/internal/reply"
	"github.com/m3rciful/shopbot/internal/shop"
	"github.com/m3rciful/shopbot/internal/ui"
)

func (e *Engine) adminStats(ctx context.Context, r *Request) ([]reply.Reply, error) {
	stats, err := e.store.ShopStats(ctx)
	if err != nil {
		return nil, err
	}
	return []reply.Reply{r.Say("admin.stats", stats.Users, stats.Orders, stats.Pending,
		ui.Price(stats.Revenue, e.cfg.Currency))}, nil
}

// setStatus serves /setstatus_N_status.
func (e *Engine) setStatus(ctx context.Context, r *Request) ([]reply.Reply, error) {
	args := r.Event.Command.Args()
	if len(args) != 2 {
		return nil, invalid("status", shop.ReasonUnknownStatus)
	}
	id, err := ParseOrderRef(args[0])
	if err != nil {
		return nil, err
	}
	to, err := shop.ParseOrderStatus(args[1])
	if err != nil {
		return nil, err
	}
	order, err := e.store.Order(ctx, id)
	if err != nil {
		return nil, err
	}
	from := order.Status
	if err := from.Transition(to); err != nil {
		return nil, err
	}
	if err := e.store.UpdateOrderStatus(ctx, id, from, to); err != nil {
		return nil, err
	}
	order.Status = to
	logger.LogEvent(ctx, logger.SVCOrders, slog.LevelInfo, "order.status_changed",
		slog.Int64("order_id", id),
		slog.String("from", string(from)),
		slog.String("to", string(to)),
	)

	if err := e.store.AddNotification(ctx, order.UserID, e.statusNotice(ctx, order)); err != nil {
		logger.Warn(ctx, "orders", "notification.save_failed", slog.String("err", err.Error()))
	}
	e.async(ctx, "notify.status_changed", func(ctx context.Context) error {
		return e.notifier.OrderStatusChanged(ctx, order, from)
	})
	return []reply.Reply{r.Say("admin.status_set", id, r.View.StatusName(from), r.View.StatusName(to))}, nil
}

// statusNotice renders the status change in the customer's language.
func (e *Engine) statusNotice(ctx context.Context, order *shop.Order) string {
	lang := shop.LangRU
	if customer, err := e.store.User(ctx, order.UserID); err == nil {
		lang = customer.Language
	}
	view := e.view(lang)
	return view.T.T("tracking.status_changed", order.ID, view.StatusName(order.Status))
}

func (e *Engine) reloadCatalog(ctx context.Context, r *Request) ([]reply.Reply, error) {
	categories, products, err := e.reloader.Reload(ctx)
	if err != nil {
		return nil, err
	}
	return []reply.Reply{r.Say("admin.reloaded", categories, products)}, nil
}
