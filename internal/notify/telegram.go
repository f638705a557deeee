package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/core/telegram/format"
	"github.com/m3rciful/shopbot/core/telegram/keyboard"
	tgsender "github.com/m3rciful/shopbot/core/telegram/sender"
	"github.com/m3rciful/shopbot/internal/flow"
	"github.com/m3rciful/shopbot/internal/shop"
	"github.com/m3rciful/shopbot/internal/ui"
)

// TextSender is the part of the gateway notifications need.
type TextSender interface {
	SendText(ctx context.Context, chatID int64, text string, kb *keyboard.Keyboard) error
}

// Queue runs sends in the background; *sender.Dispatcher implements it.
type Queue interface {
	Enqueue(ctx context.Context, job tgsender.Job) error
}

// Directory resolves recipients.
type Directory interface {
	User(ctx context.Context, id int64) (*shop.User, error)
	AdminIDs(ctx context.Context) ([]int64, error)
}

// TelegramOptions configures NewTelegram.
type TelegramOptions struct {
	Sender    TextSender
	Queue     Queue
	Directory Directory
	Locales   *ui.Locales
	Currency  string
	// AdminIDs are always notified, in addition to admins known to the store.
	AdminIDs []int64
}

// Telegram sends localized chat messages: order and feedback notices to
// administrators, status changes and onboarding tips to customers.
type Telegram struct {
	opts TelegramOptions
}

var (
	_ flow.Notifier   = (*Telegram)(nil)
	_ flow.Onboarding = (*Telegram)(nil)
)

// NewTelegram validates opts.
func NewTelegram(opts TelegramOptions) (*Telegram, error) {
	if opts.Sender == nil || opts.Queue == nil || opts.Directory == nil || opts.Locales == nil {
		return nil, errors.New("notify: sender, queue, directory and locales are required")
	}
	return &Telegram{opts: opts}, nil
}

func (n *Telegram) view(lang shop.Language) ui.View {
	return ui.View{T: n.opts.Locales.For(lang), Currency: n.opts.Currency}
}

// admins lists configured and stored administrators, each once.
func (n *Telegram) admins(ctx context.Context) ([]int64, error) {
	ids := slices.Clone(n.opts.AdminIDs)
	stored, err := n.opts.Directory.AdminIDs(ctx)
	if err != nil {
		if len(ids) == 0 {
			return nil, err
		}
		logger.Warn(ctx, "notify", "admins.lookup_failed", slog.String("err", err.Error()))
	}
	ids = append(ids, stored...)
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

// language returns the stored language of id; placeholders and unknown
// users get Russian.
func (n *Telegram) language(ctx context.Context, id int64) shop.Language {
	u, err := n.opts.Directory.User(ctx, id)
	if err != nil || u.Language == "" {
		return shop.LangRU
	}
	return u.Language
}

func (n *Telegram) send(ctx context.Context, action string, chatID int64, text string) error {
	err := n.opts.Queue.Enqueue(ctx, tgsender.Job{
		Action: action,
		ChatID: chatID,
		Run: func(ctx context.Context) error {
			return n.opts.Sender.SendText(ctx, chatID, text, nil)
		},
	})
	if err != nil {
		return fmt.Errorf("notify: %s to %d: %w", action, chatID, err)
	}
	return nil
}

// toAdmins renders one message per admin in the admin's language.
func (n *Telegram) toAdmins(ctx context.Context, action string, render func(v ui.View) string) error {
	ids, err := n.admins(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, id := range ids {
		errs = append(errs, n.send(ctx, action, id, render(n.view(n.language(ctx, id)))))
	}
	logger.LogEvent(ctx, logger.SVCNotify, slog.LevelInfo, "notify.admins",
		slog.String("action", action),
		slog.Int("recipients", len(ids)),
	)
	return errors.Join(errs...)
}

func (n *Telegram) OrderPlaced(ctx context.Context, order *shop.Order, customer *shop.User) error {
	name := ""
	if customer != nil {
		name = customer.Name
	}
	return n.toAdmins(ctx, "order_placed", func(v ui.View) string {
		return v.AdminOrderNotice(order, name)
	})
}

func (n *Telegram) OrderStatusChanged(ctx context.Context, order *shop.Order, from shop.OrderStatus) error {
	v := n.view(n.language(ctx, order.UserID))
	text := v.T.T("tracking.status_changed", order.ID, v.StatusName(order.Status))
	logger.LogEvent(ctx, logger.SVCNotify, slog.LevelInfo, "notify.customer",
		slog.Int64("order_id", order.ID),
		slog.String("from", string(from)),
		slog.String("to", string(order.Status)),
	)
	return n.send(ctx, "status_changed", order.UserID, text)
}

func (n *Telegram) Feedback(ctx context.Context, from *shop.User, text string) error {
	return n.toAdmins(ctx, "feedback", func(v ui.View) string {
		return v.T.T("feedback.admin_notice", format.Escape(from.Name), from.ID, format.Escape(text))
	})
}

// Welcome sends onboarding tips to a newly registered customer.
func (n *Telegram) Welcome(ctx context.Context, user *shop.User) error {
	return n.send(ctx, "onboarding", user.ID, n.view(user.Language).T.T("onboarding.tips"))
}

// DataRefreshed tells administrators that the catalog was reloaded.
func (n *Telegram) DataRefreshed(ctx context.Context, categories, products, promotions int) error {
	return n.toAdmins(ctx, "data_refreshed", func(v ui.View) string {
		return v.T.T("admin.data_refreshed", categories, products, promotions)
	})
}
