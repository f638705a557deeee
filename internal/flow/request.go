package flow

import (
	"errors"

	"github.com/m3rciful/shopbot/core/telegram/keyboard"
	"github.com/m3rciful/shopbot/core/telegram/state"
	"github.com/m3rciful/shopbot/internal/event"
	"github.com/m3rciful/shopbot/internal/reply"
	"github.com/m3rciful/shopbot/internal/shop"
	"github.com/m3rciful/shopbot/internal/ui"
)

// Request is one classified event together with what the engine knows about
// its sender.
type Request struct {
	Event event.Classified
	State state.FlowState
	// User is nil until registration completes.
	User *shop.User
	View ui.View
}

// UserID is the sender id.
func (r *Request) UserID() int64 { return r.Event.UserID }

// Registered reports whether the sender completed registration.
func (r *Request) Registered() bool { return r.User != nil }

// IsAdmin reports whether the sender is a shop administrator.
func (r *Request) IsAdmin() bool { return r.User != nil && r.User.IsAdmin }

// T translates key in the sender's language.
func (r *Request) T(key string, args ...any) string {
	return r.View.T.T(key, args...)
}

// Text replies in the sender's chat.
func (r *Request) Text(text string, kb *keyboard.Keyboard) reply.Reply {
	return reply.Text(r.Event.ChatID, text, kb)
}

// Say replies with the translated key.
func (r *Request) Say(key string, args ...any) reply.Reply {
	return r.Text(r.T(key, args...), nil)
}

// Answer acknowledges the pressed button, if any.
func (r *Request) Answer(text string) reply.Reply {
	return reply.Answer(r.Event.CallbackID, text)
}

// MainMenu renders the top level menu with text.
func (r *Request) MainMenu(text string) reply.Reply {
	return r.Text(text, ui.MainMenu(r.View.T))
}

// Reprompt names the defect of a rejected input and shows kb again.
func (r *Request) Reprompt(err error, kb *keyboard.Keyboard) reply.Reply {
	var ve *shop.ValidationError
	if errors.As(err, &ve) {
		return r.Text(r.T("invalid."+ve.Field+"."+ve.Reason), kb)
	}
	return r.Text(r.T("common.apology"), kb)
}
