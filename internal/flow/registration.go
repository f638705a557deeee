package flow

import (
	"context"

	"github.com/m3rciful/shopbot/core/telegram/format"
	"github.com/m3rciful/shopbot/core/telegram/keyboard"
	"github.com/m3rciful/shopbot/core/telegram/state"
	"github.com/m3rciful/shopbot/internal/event"
	"github.com/m3rciful/shopbot/internal/reply"
	"github.com/m3rciful/shopbot/internal/shop"
	"github.com/m3rciful/shopbot/internal/ui"
)

const (
	FlowRegistering state.Flow = "registering"

	StepName     state.Step = "collecting_name"
	StepPhone    state.Step = "collecting_phone"
	StepEmail    state.Step = "collecting_email"
	StepLanguage state.Step = "collecting_language"
)

// Accumulator keys.
const (
	keyName     = "name"
	keyPhone    = "phone"
	keyEmail    = "email"
	keyLanguage = "language"
	keyAddress  = "address"
	keyPayment  = "payment"
	keyProduct  = "product_id"
	keyStars    = "stars"
	keyComment  = "comment"
	keyOrderRef = "order_ref"
)

func (e *Engine) registrationFlow() Flow {
	return Flow{
		Name: FlowRegistering,
		Steps: map[state.Step]StepFunc{
			StepName:     e.regName,
			StepPhone:    e.regPhone,
			StepEmail:    e.regEmail,
			StepLanguage: e.regLanguage,
		},
		Finish: e.finishRegistration,
		Cancelled: func(r *Request) []reply.Reply {
			return []reply.Reply{r.Text(r.T("reg.cancelled"), keyboard.RemoveKeyboard())}
		},
	}
}

func (e *Engine) beginRegistration(r *Request) []reply.Reply {
	e.states.Set(r.UserID(), state.Enter(FlowRegistering, StepName))
	return []reply.Reply{
		r.Say("reg.welcome_new"),
		r.Text(r.T("reg.ask_name"), ui.NameKeyboard(r.View.T, r.Event.Profile.DisplayName())),
	}
}

// textInput is the trimmed text of a free-text event. Menu captions and
// attachments are not accepted as field values.
func textInput(ev event.Classified) (string, bool) {
	if ev.Kind != event.KindFreeText {
		return "", false
	}
	return ev.Input()
}

func (e *Engine) regName(_ context.Context, r *Request, data state.Accumulator) Result {
	kb := ui.NameKeyboard(r.View.T, r.Event.Profile.DisplayName())
	text, ok := textInput(r.Event)
	if !ok {
		return Retry(r.Reprompt(invalid("name", shop.ReasonNotText), kb))
	}
	name, err := ValidateName(text)
	if err != nil {
		return Retry(r.Reprompt(err, kb))
	}
	return Advance(StepPhone, data.With(keyName, name),
		r.Text(r.T("reg.ask_phone"), ui.PhoneKeyboard(r.View.T)))
}

func (e *Engine) regPhone(_ context.Context, r *Request, data state.Accumulator) Result {
	kb := ui.PhoneKeyboard(r.View.T)
	ev := r.Event
	next := r.Text(r.T("reg.ask_email"), ui.SkipCancel(r.View.T))

	var raw string
	switch {
	case ev.IsMenu(ui.MenuSkip):
		return Advance(StepEmail, data, next)
	case ev.Kind == event.KindAttachment && ev.Attachment.Contact != nil:
		raw = ev.Attachment.Contact.Phone
	default:
		text, ok := textInput(ev)
		if !ok {
			return Retry(r.Reprompt(invalid("phone", shop.ReasonNotText), kb))
		}
		raw = text
	}
	phone, err := NormalizePhone(raw)
	if err != nil {
		return Retry(r.Reprompt(err, kb))
	}
	return Advance(StepEmail, data.With(keyPhone, phone), next)
}

func (e *Engine) regEmail(_ context.Context, r *Request, data state.Accumulator) Result {
	kb := ui.SkipCancel(r.View.T)
	next := r.Text(r.T("reg.ask_language"), ui.LanguageKeyboard(r.View.T))
	if r.Event.IsMenu(ui.MenuSkip) {
		return Advance(StepLanguage, data, next)
	}
	text, ok := textInput(r.Event)
	if !ok {
		return Retry(r.Reprompt(invalid("email", shop.ReasonNotText), kb))
	}
	email, err := ValidateEmail(text)
	if err != nil {
		return Retry(r.Reprompt(err, kb))
	}
	return Advance(StepLanguage, data.With(keyEmail, email), next)
}

// languageChoice maps a language caption to its language.
func languageChoice(ev event.Classified) (shop.Language, bool) {
	switch {
	case ev.IsMenu(ui.MenuLangRU):
		return shop.LangRU, true
	case ev.IsMenu(ui.MenuLangUZ):
		return shop.LangUZ, true
	}
	return "", false
}

func (e *Engine) regLanguage(_ context.Context, r *Request, data state.Accumulator) Result {
	lang, ok := languageChoice(r.Event)
	if !ok {
		return Retry(r.Reprompt(invalid("language", shop.ReasonUnknownOption), ui.LanguageKeyboard(r.View.T)))
	}
	return Complete(data.With(keyLanguage, string(lang)))
}

func (e *Engine) finishRegistration(ctx context.Context, r *Request, data state.Accumulator) ([]reply.Reply, error) {
	user := &shop.User{
		ID:       r.UserID(),
		Name:     data.Get(keyName),
		Language: shop.Language(data.Get(keyLanguage)),
	}
	if v := data.Get(keyPhone); v != "" {
		user.Phone = format.StringPtr(v)
	}
	if v := data.Get(keyEmail); v != "" {
		user.Email = format.StringPtr(v)
	}
	if err := e.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	if err := e.store.EnsureLoyalty(ctx, user.ID); err != nil {
		return nil, err
	}
	e.async(ctx, "onboarding.welcome", func(ctx context.Context) error {
		return e.onboarding.Welcome(ctx, user)
	})

	view := e.view(user.Language)
	return []reply.Reply{reply.Text(r.Event.ChatID, view.T.T("reg.complete", format.Escape(user.Name)), ui.MainMenu(view.T))}, nil
}
