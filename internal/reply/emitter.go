package reply

import (
	"context"
	"errors"
	"log/slog"

	"github.com/m3rciful/shopbot/core/logger"
)

// ErrUnknownKind is reported for a reply the emitter cannot deliver.
var ErrUnknownKind = errors.New("reply: unknown kind")

// Gateway is the outbound half of the messaging platform.
type Gateway interface {
	SendText(ctx context.Context, chatID int64, text string, kb *Keyboard) error
	SendImage(ctx context.Context, chatID int64, imageRef, caption string, kb *Keyboard) error
	EditControls(ctx context.Context, chatID int64, messageID int, kb *Keyboard) error
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
}

// Observer is told about every delivery attempt.
type Observer interface {
	ObserveReply(kind string, err error)
}

// Emitter delivers replies in order. Failures are logged and counted but
// never retried or returned; the next reply is still attempted.
type Emitter struct {
	gw       Gateway
	observer Observer
}

// NewEmitter wraps gw. observer may be nil.
func NewEmitter(gw Gateway, observer Observer) *Emitter {
	return &Emitter{gw: gw, observer: observer}
}

// Emit sends replies and reports how many were delivered.
func (e *Emitter) Emit(ctx context.Context, replies []Reply) int {
	sent := 0
	for _, r := range replies {
		err := e.deliver(ctx, r)
		if e.observer != nil {
			e.observer.ObserveReply(r.Kind.String(), err)
		}
		if err != nil {
			logger.Warn(ctx, "reply", "reply.failed",
				slog.String("status", "fail"),
				slog.String("kind", r.Kind.String()),
				slog.Int64("chat_id", r.ChatID),
				slog.String("err", err.Error()),
			)
			continue
		}
		sent++
	}
	return sent
}

func (e *Emitter) deliver(ctx context.Context, r Reply) error {
	switch r.Kind {
	case KindText:
		return e.gw.SendText(ctx, r.ChatID, r.Text, r.Keyboard)
	case KindImage:
		return e.gw.SendImage(ctx, r.ChatID, r.ImageRef, r.Text, r.Keyboard)
	case KindEditControls:
		return e.gw.EditControls(ctx, r.ChatID, r.MessageID, r.Keyboard)
	case KindAnswer:
		return e.gw.AnswerCallback(ctx, r.CallbackID, r.Text, r.Alert)
	}
	return ErrUnknownKind
}
