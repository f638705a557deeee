package middleware

import (
	"time"

	tele "gopkg.in/telebot.v4"
)

// UpdateObserver records end-to-end handling of one update.
type UpdateObserver interface {
	ObserveUpdate(kind string, took time.Duration, err error)
}

// Metrics times the rest of the chain for every update.
func Metrics(obs UpdateObserver) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		if obs == nil {
			return next
		}
		return func(c tele.Context) error {
			start := time.Now()
			err := next(c)
			obs.ObserveUpdate(UpdateKind(c.Update()), time.Since(start), err)
			return err
		}
	}
}
