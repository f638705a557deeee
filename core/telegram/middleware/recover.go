package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/shopbot/core/logger"
)

// Recover catches handler panics so one update cannot take a worker down.
// onPanic, when set, runs after logging, typically to apologise to the user.
func Recover(onPanic func(c tele.Context, v any)) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				logger.TG.LogAttrs(Context(c), slog.LevelError, "update.panic",
					slog.String("status", "fail"),
					slog.Any("err", r),
					slog.String("stack", string(debug.Stack())),
				)
				if onPanic != nil {
					onPanic(c, r)
				}
				err = fmt.Errorf("telegram: handler panic: %v", r)
			}()
			return next(c)
		}
	}
}
