package flow

import (
	"context"

	"github.com/m3rciful/shopbot/core/telegram/state"
	"github.com/m3rciful/shopbot/internal/reply"
	"github.com/m3rciful/shopbot/internal/shop"
	"github.com/m3rciful/shopbot/internal/ui"
)

const FlowChangingLanguage state.Flow = "changing_language"

func (e *Engine) languageFlow() Flow {
	return Flow{
		Name: FlowChangingLanguage,
		Steps: map[state.Step]StepFunc{
			StepLanguage: func(_ context.Context, r *Request, data state.Accumulator) Result {
				lang, ok := languageChoice(r.Event)
				if !ok {
					return Retry(r.Reprompt(invalid("language", shop.ReasonUnknownOption), ui.LanguageKeyboard(r.View.T)))
				}
				return Complete(data.With(keyLanguage, string(lang)))
			},
		},
		Finish: func(ctx context.Context, r *Request, data state.Accumulator) ([]reply.Reply, error) {
			lang := shop.Language(data.Get(keyLanguage))
			if err := e.store.SetLanguage(ctx, r.UserID(), lang); err != nil {
				return nil, err
			}
			view := e.view(lang)
			return []reply.Reply{reply.Text(r.Event.ChatID, view.T.T("language.set"), ui.MainMenu(view.T))}, nil
		},
	}
}

func (e *Engine) beginLanguage(_ context.Context, r *Request) ([]reply.Reply, error) {
	e.states.Set(r.UserID(), state.Enter(FlowChangingLanguage, StepLanguage))
	return []reply.Reply{r.Text(r.T("language.ask"), ui.LanguageKeyboard(r.View.T))}, nil
}
