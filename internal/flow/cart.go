package flow

import (
	"context"

	"github.com/m3rciful/shopbot/internal/reply"
	"github.com/m3rciful/shopbot/internal/ui"
)

// showCart sends one message per line so that each line's controls can be
// edited in place, followed by the total and the checkout button.
func (e *Engine) showCart(ctx context.Context, r *Request) ([]reply.Reply, error) {
	lines, err := e.store.CartLines(ctx, r.UserID())
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return []reply.Reply{r.MainMenu(r.T("cart.empty"))}, nil
	}
	replies := make([]reply.Reply, 0, len(lines)+2)
	replies = append(replies, r.Say("cart.title"))
	for _, l := range lines {
		replies = append(replies, r.Text(r.View.CartLine(l), ui.CartLineKeyboard(l.ID, l.Quantity)))
	}
	return append(replies, r.Text(r.View.CartTotal(lines), ui.CheckoutKeyboard(r.View.T))), nil
}

// lineControls re-renders the controls of the pressed cart line message. A
// zero quantity removes them.
func (e *Engine) lineControls(r *Request, lineID int64, qty int) []reply.Reply {
	if qty <= 0 {
		return []reply.Reply{
			r.Answer(r.T("cart.removed")),
			reply.EditControls(r.Event.ChatID, r.Event.MessageID, nil),
		}
	}
	return []reply.Reply{
		r.Answer(r.T("cart.updated", qty)),
		reply.EditControls(r.Event.ChatID, r.Event.MessageID, ui.CartLineKeyboard(lineID, qty)),
	}
}

func (e *Engine) cartIncrement(ctx context.Context, r *Request) ([]reply.Reply, error) {
	lineID, err := callbackID(r.Event, "cart line")
	if err != nil {
		return nil, err
	}
	qty, err := e.store.IncrementCartLine(ctx, r.UserID(), lineID)
	if err != nil {
		return nil, err
	}
	return e.lineControls(r, lineID, qty), nil
}

func (e *Engine) cartDecrement(ctx context.Context, r *Request) ([]reply.Reply, error) {
	lineID, err := callbackID(r.Event, "cart line")
	if err != nil {
		return nil, err
	}
	qty, err := e.store.DecrementCartLine(ctx, r.UserID(), lineID)
	if err != nil {
		return nil, err
	}
	return e.lineControls(r, lineID, qty), nil
}

func (e *Engine) cartRemove(ctx context.Context, r *Request) ([]reply.Reply, error) {
	lineID, err := callbackID(r.Event, "cart line")
	if err != nil {
		return nil, err
	}
	if err := e.store.RemoveCartLine(ctx, r.UserID(), lineID); err != nil {
		return nil, err
	}
	return e.lineControls(r, lineID, 0), nil
}
