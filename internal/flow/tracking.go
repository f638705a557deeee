package flow

import (
	"context"
	"strconv"

	"github.com/m3rciful/shopbot/core/telegram/state"
	"github.com/m3rciful/shopbot/internal/reply"
	"github.com/m3rciful/shopbot/internal/shop"
	"github.com/m3rciful/shopbot/internal/ui"
)

const (
	FlowTracking state.Flow = "tracking"

	StepOrderRef state.Step = "awaiting_order_ref"
)

func (e *Engine) trackingFlow() Flow {
	return Flow{
		Name:  FlowTracking,
		Steps: map[state.Step]StepFunc{StepOrderRef: e.trackRef},
		Finish: func(ctx context.Context, r *Request, data state.Accumulator) ([]reply.Reply, error) {
			id, _ := strconv.ParseInt(data.Get(keyOrderRef), 10, 64)
			order, err := e.ownOrder(ctx, r, id)
			if err != nil {
				return nil, err
			}
			return []reply.Reply{r.MainMenu(r.View.OrderDetails(order))}, nil
		},
	}
}

func (e *Engine) beginTracking(_ context.Context, r *Request) ([]reply.Reply, error) {
	e.states.Set(r.UserID(), state.Enter(FlowTracking, StepOrderRef))
	return []reply.Reply{r.Text(r.T("tracking.ask"), ui.CancelOnly(r.View.T))}, nil
}

func (e *Engine) trackRef(_ context.Context, r *Request, data state.Accumulator) Result {
	kb := ui.CancelOnly(r.View.T)
	text, ok := textInput(r.Event)
	if !ok {
		return Retry(r.Reprompt(invalid("order_ref", shop.ReasonNotNumber), kb))
	}
	id, err := ParseOrderRef(text)
	if err != nil {
		return Retry(r.Reprompt(err, kb))
	}
	return Complete(data.With(keyOrderRef, strconv.FormatInt(id, 10)))
}

// ownOrder loads an order the sender may see. Orders of other customers are
// reported as missing unless the sender is an administrator.
func (e *Engine) ownOrder(ctx context.Context, r *Request, id int64) (*shop.Order, error) {
	order, err := e.store.Order(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != r.UserID() && !r.IsAdmin() {
		return nil, shop.NotFound("order", id)
	}
	return order, nil
}
