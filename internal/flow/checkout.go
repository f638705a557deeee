package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/core/telegram/state"
	"github.com/m3rciful/shopbot/internal/event"
	"github.com/m3rciful/shopbot/internal/reply"
	"github.com/m3rciful/shopbot/internal/shop"
	"github.com/m3rciful/shopbot/internal/ui"
)

const (
	FlowCheckingOut state.Flow = "checking_out"

	StepAddress state.Step = "collecting_address"
	StepPayment state.Step = "collecting_payment"
)

func (e *Engine) checkoutFlow() Flow {
	return Flow{
		Name: FlowCheckingOut,
		Steps: map[state.Step]StepFunc{
			StepAddress: e.checkoutAddress,
			StepPayment: e.checkoutPayment,
		},
		Finish: e.finishCheckout,
	}
}

func (e *Engine) beginCheckout(ctx context.Context, r *Request) ([]reply.Reply, error) {
	lines, err := e.store.CartLines(ctx, r.UserID())
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return []reply.Reply{r.MainMenu(r.T("checkout.empty_cart"))}, nil
	}
	e.states.Set(r.UserID(), state.Enter(FlowCheckingOut, StepAddress))
	return []reply.Reply{r.Text(r.T("checkout.ask_address"), ui.CancelOnly(r.View.T))}, nil
}

func (e *Engine) checkoutAddress(_ context.Context, r *Request, data state.Accumulator) Result {
	kb := ui.CancelOnly(r.View.T)
	text, ok := textInput(r.Event)
	if !ok {
		return Retry(r.Reprompt(invalid("address", shop.ReasonNotText), kb))
	}
	address, err := ValidateAddress(text)
	if err != nil {
		return Retry(r.Reprompt(err, kb))
	}
	return Advance(StepPayment, data.With(keyAddress, address),
		r.Text(r.T("checkout.ask_payment"), ui.PaymentKeyboard(r.View.T)))
}

func paymentChoice(ev event.Classified) (shop.PaymentMethod, bool) {
	if ev.Kind != event.KindMenu {
		return "", false
	}
	for _, m := range shop.PaymentMethods {
		if ev.Menu.Key == "pay_"+string(m) {
			return m, true
		}
	}
	return "", false
}

func (e *Engine) checkoutPayment(_ context.Context, r *Request, data state.Accumulator) Result {
	method, ok := paymentChoice(r.Event)
	if !ok {
		return Retry(r.Reprompt(invalid("payment", shop.ReasonUnknownOption), ui.PaymentKeyboard(r.View.T)))
	}
	return Complete(data.With(keyPayment, string(method)))
}

// checkoutKey makes a redelivered confirmation place the same order.
func checkoutKey(userID, updateID int64) string {
	return fmt.Sprintf("checkout:%d:%d", userID, updateID)
}

func (e *Engine) finishCheckout(ctx context.Context, r *Request, data state.Accumulator) ([]reply.Reply, error) {
	lines, err := e.store.CartLines(ctx, r.UserID())
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, shop.ErrEmptyCart
	}
	total := shop.CartTotal(lines)
	draft := shop.OrderDraft{
		IdempotencyKey: checkoutKey(r.UserID(), r.Event.UpdateID),
		Reference:      uuid.NewString(),
		UserID:         r.UserID(),
		Address:        data.Get(keyAddress),
		Payment:        shop.PaymentMethod(data.Get(keyPayment)),
		Items:          shop.SnapshotItems(lines),
		Total:          total,
		Points:         shop.LoyaltyAward(total, e.cfg.AwardRate),
	}
	order, created, err := e.store.CreateOrder(ctx, draft)
	if err != nil {
		return nil, err
	}
	if created {
		logger.LogEvent(ctx, logger.SVCOrders, slog.LevelInfo, "order.placed",
			slog.Int64("order_id", order.ID),
			slog.String("reference", order.Reference),
			slog.String("total", order.Total.StringFixed(2)),
			slog.Int("items", len(order.Items)),
		)
		customer := r.User
		e.async(ctx, "notify.order_placed", func(ctx context.Context) error {
			return e.notifier.OrderPlaced(ctx, order, customer)
		})
	}
	return []reply.Reply{r.MainMenu(r.View.OrderPlaced(order))}, nil
}
