package flow

import (
	"context"

	"github.com/m3rciful/shopbot/core/telegram/format"
	"github.com/m3rciful/shopbot/core/telegram/state"
	"github.com/m3rciful/shopbot/internal/reply"
	"github.com/m3rciful/shopbot/internal/shop"
	"github.com/m3rciful/shopbot/internal/ui"
)

const (
	FlowSearching state.Flow = "searching"

	StepQuery state.Step = "awaiting_query"
)

func (e *Engine) searchFlow() Flow {
	return Flow{
		Name:  FlowSearching,
		Steps: map[state.Step]StepFunc{StepQuery: e.searchQuery},
	}
}

func (e *Engine) beginSearch(_ context.Context, r *Request) ([]reply.Reply, error) {
	e.states.Set(r.UserID(), state.Enter(FlowSearching, StepQuery))
	return []reply.Reply{r.Text(r.T("search.ask"), ui.CancelOnly(r.View.T))}, nil
}

func (e *Engine) searchQuery(ctx context.Context, r *Request, data state.Accumulator) Result {
	query, ok := textInput(r.Event)
	if !ok {
		return Retry(r.Reprompt(invalid("query", shop.ReasonNotText), ui.CancelOnly(r.View.T)))
	}
	replies, err := e.search(ctx, r, query)
	if err != nil {
		return Retry(r.Text(e.failureText(r, err), ui.CancelOnly(r.View.T)))
	}
	return Complete(data, append(replies, r.MainMenu(r.T("common.main_menu")))...)
}

// search answers query with matching products, or with suggestions when
// nothing matches.
func (e *Engine) search(ctx context.Context, r *Request, query string) ([]reply.Reply, error) {
	e.logActivity(ctx, r, "search", query)
	products, err := e.store.SearchProducts(ctx, query, e.cfg.ListLimit)
	if err != nil {
		return nil, err
	}
	if len(products) > 0 {
		header := r.T("search.results", format.Escape(query))
		return []reply.Reply{r.Text(header, ui.ProductLinksKeyboard(products, e.cfg.Currency))}, nil
	}

	replies := []reply.Reply{r.Say("search.no_results", format.Escape(query))}
	suggestions, err := e.recommender.Recommend(ctx, r.UserID(), e.cfg.RecommendLimit)
	if err != nil || len(suggestions) == 0 {
		return replies, nil
	}
	return append(replies, r.Text(r.View.ProductList(r.T("search.suggestions"), suggestions),
		ui.ProductLinksKeyboard(suggestions, e.cfg.Currency))), nil
}
