package telegram

import (
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/shopbot/core/config"
	"github.com/m3rciful/shopbot/core/telegram/middleware"
)

// Middleware is one named layer of the update handling chain.
type Middleware struct {
	Name string
	Use  tele.MiddlewareFunc
}

// MiddlewareHooks plugs application behaviour into DefaultMiddlewares.
type MiddlewareHooks struct {
	OnPanic   func(c tele.Context, v any)
	OnLimited tele.HandlerFunc
	// Limiter overrides the in-process limiter built from the config.
	Limiter  middleware.Limiter
	Observer middleware.UpdateObserver
}

// DefaultMiddlewares builds the shared chain, outermost first.
func DefaultMiddlewares(cfg *coreconfig.Config, hooks MiddlewareHooks) []Middleware {
	mws := []Middleware{
		{Name: "recover", Use: middleware.Recover(hooks.OnPanic)},
		{Name: "logger", Use: middleware.Logging},
	}
	if hooks.Observer != nil {
		mws = append(mws, Middleware{Name: "metrics", Use: middleware.Metrics(hooks.Observer)})
	}

	limiter := hooks.Limiter
	if limiter == nil && cfg != nil && cfg.RateLimit.PerSecond > 0 {
		limiter = middleware.NewLocalLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst)
	}
	if limiter != nil {
		exclude := make(map[string]struct{})
		if cfg != nil {
			for _, kind := range cfg.RateLimit.ExcludeUpdates {
				exclude[kind] = struct{}{}
			}
		}
		mws = append(mws, Middleware{
			Name: "rate_limit",
			Use: middleware.RateLimit(middleware.RateLimitOptions{
				Limiter:   limiter,
				Exclude:   exclude,
				OnLimited: hooks.OnLimited,
			}),
		})
	}
	return mws
}

// Chain wraps h so that mws[0] runs first.
func Chain(h tele.HandlerFunc, mws []Middleware) tele.HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i].Use == nil {
			continue
		}
		h = mws[i].Use(h)
	}
	return h
}

// pollRetry is the first backoff after a failed getUpdates call.
const pollRetry = time.Second
