package app

import (
	"context"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/shopbot/core/telegram/middleware"
	"github.com/m3rciful/shopbot/internal/event"
	"github.com/m3rciful/shopbot/internal/reply"
	"github.com/m3rciful/shopbot/internal/shop"
)

// Router decides the replies to one inbound update.
type Router interface {
	Handle(ctx context.Context, raw event.Raw) []reply.Reply
}

// Emitter delivers replies in order.
type Emitter interface {
	Emit(ctx context.Context, replies []reply.Reply) int
}

// newHandler is the innermost update handler: translate, route, deliver.
// Updates the bot does not consume (no sender, unsupported kinds) are
// dropped silently.
func newHandler(router Router, emitter Emitter) tele.HandlerFunc {
	return func(c tele.Context) error {
		raw, ok := event.FromUpdate(c.Update())
		if !ok {
			return nil
		}
		ctx := middleware.Context(c)
		emitter.Emit(ctx, router.Handle(ctx, raw))
		return nil
	}
}

func (a *App) onLimited(c tele.Context) error {
	a.notice(c, "common.slow_down")
	return nil
}

func (a *App) onPanic(c tele.Context, _ any) {
	a.notice(c, "common.apology")
}

// notice tells the sender about an update that was not processed. Button
// presses get a toast so the client stops its spinner.
func (a *App) notice(c tele.Context, key string) {
	sender := c.Sender()
	if sender == nil {
		return
	}
	ctx := middleware.Context(c)
	text := a.locales.For(a.language(ctx, sender)).T(key)

	var r reply.Reply
	switch {
	case c.Callback() != nil:
		r = reply.Answer(c.Callback().ID, text)
	case c.Chat() != nil:
		r = reply.Text(c.Chat().ID, text, nil)
	default:
		return
	}
	a.emitter.Emit(ctx, []reply.Reply{r})
}

func (a *App) language(ctx context.Context, sender *tele.User) shop.Language {
	if u, err := a.store.User(ctx, sender.ID); err == nil && u.Language != "" {
		return u.Language
	}
	return shop.ParseLanguage(sender.LanguageCode)
}
