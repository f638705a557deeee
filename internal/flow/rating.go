package flow

import (
	"context"
	"strconv"

	"github.com/m3rciful/shopbot/core/telegram/format"
	"github.com/m3rciful/shopbot/core/telegram/state"
	"github.com/m3rciful/shopbot/internal/event"
	"github.com/m3rciful/shopbot/internal/reply"
	"github.com/m3rciful/shopbot/internal/shop"
	"github.com/m3rciful/shopbot/internal/ui"
)

const (
	FlowRating state.Flow = "rating"

	StepStars   state.Step = "collecting_stars"
	StepComment state.Step = "collecting_comment"
)

func (e *Engine) ratingFlow() Flow {
	return Flow{
		Name: FlowRating,
		Steps: map[state.Step]StepFunc{
			StepStars:   e.rateStars,
			StepComment: e.rateComment,
		},
		Finish: e.finishRating,
	}
}

func (e *Engine) beginRating(ctx context.Context, r *Request, productID int64) ([]reply.Reply, error) {
	p, err := e.catalog.Product(ctx, productID)
	if err != nil {
		return nil, err
	}
	st := state.Enter(FlowRating, StepStars)
	st.Data = st.Data.With(keyProduct, strconv.FormatInt(p.ID, 10))
	e.states.Set(r.UserID(), st)
	return []reply.Reply{r.Text(r.T("rating.ask_stars", format.Escape(p.Name)), ui.StarsKeyboard(p.ID))}, nil
}

// rateCallback reads "rate_<product>_<stars>".
func rateCallback(ev event.Classified) (productID int64, stars int, err error) {
	productID, ok := ev.Callback.Int64(0)
	if !ok || len(ev.Callback.Params) != 2 {
		return 0, 0, invalid("stars", shop.ReasonOutOfRange)
	}
	stars, err = ParseStars(ev.Callback.Params[1])
	return productID, stars, err
}

func (e *Engine) rateStars(_ context.Context, r *Request, data state.Accumulator) Result {
	productID, _ := strconv.ParseInt(data.Get(keyProduct), 10, 64)
	kb := ui.StarsKeyboard(productID)

	var stars int
	var err error
	switch ev := r.Event; {
	case ev.Kind == event.KindCallback && ev.Callback.Prefix == ui.CBRate:
		var pid int64
		pid, stars, err = rateCallback(ev)
		if err == nil && pid != productID {
			err = invalid("stars", shop.ReasonOutOfRange)
		}
	case ev.Kind == event.KindFreeText:
		stars, err = ParseStars(ev.Text)
	default:
		err = invalid("stars", shop.ReasonOutOfRange)
	}
	if err != nil {
		return Retry(r.Reprompt(err, kb))
	}
	return Advance(StepComment, data.With(keyStars, strconv.Itoa(stars)),
		r.Text(r.T("rating.ask_comment"), ui.SkipCancel(r.View.T)))
}

func (e *Engine) rateComment(_ context.Context, r *Request, data state.Accumulator) Result {
	if r.Event.IsMenu(ui.MenuSkip) {
		return Complete(data)
	}
	text, ok := textInput(r.Event)
	if !ok {
		return Retry(r.Reprompt(invalid("comment", shop.ReasonNotText), ui.SkipCancel(r.View.T)))
	}
	comment, err := ValidateComment(text)
	if err != nil {
		return Retry(r.Reprompt(err, ui.SkipCancel(r.View.T)))
	}
	return Complete(data.With(keyComment, comment))
}

func (e *Engine) finishRating(ctx context.Context, r *Request, data state.Accumulator) ([]reply.Reply, error) {
	productID, _ := strconv.ParseInt(data.Get(keyProduct), 10, 64)
	stars, _ := strconv.Atoi(data.Get(keyStars))
	review := &shop.Review{
		UserID:    r.UserID(),
		ProductID: productID,
		Stars:     stars,
		Comment:   data.Get(keyComment),
	}
	if err := e.store.AddReview(ctx, review); err != nil {
		return nil, err
	}
	return []reply.Reply{r.MainMenu(r.T("rating.complete"))}, nil
}

// rateDirect handles a star button pressed outside the flow: the rating
// starts at the comment step with the stars already chosen.
func (e *Engine) rateDirect(ctx context.Context, r *Request) ([]reply.Reply, error) {
	productID, stars, err := rateCallback(r.Event)
	if err != nil {
		return nil, err
	}
	if _, err := e.catalog.Product(ctx, productID); err != nil {
		return nil, err
	}
	st := state.Enter(FlowRating, StepComment)
	st.Data = st.Data.With(keyProduct, strconv.FormatInt(productID, 10), keyStars, strconv.Itoa(stars))
	e.states.Set(r.UserID(), st)
	return []reply.Reply{
		r.Answer(strconv.Itoa(stars) + "⭐"),
		r.Text(r.T("rating.ask_comment"), ui.SkipCancel(r.View.T)),
	}, nil
}
