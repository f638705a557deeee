// Package flow routes classified events through the global rules, the
// per-user conversation flows and the stateless dispatch tables, and decides
// the replies.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/core/telegram/keyboard"
	"github.com/m3rciful/shopbot/core/telegram/state"
	"github.com/m3rciful/shopbot/internal/event"
	"github.com/m3rciful/shopbot/internal/reply"
	"github.com/m3rciful/shopbot/internal/shop"
	"github.com/m3rciful/shopbot/internal/store"
	"github.com/m3rciful/shopbot/internal/ui"
)

// Config tunes the engine.
type Config struct {
	Currency string
	// AwardRate is the share of an order total credited as loyalty points.
	AwardRate decimal.Decimal
	// ListLimit caps orders, search results and reviews per message.
	ListLimit int
	// RecommendLimit caps suggestions shown when a search finds nothing.
	RecommendLimit int
	// AsyncTimeout bounds background notifications.
	AsyncTimeout time.Duration
}

func (c *Config) normalize() {
	if c.ListLimit <= 0 {
		c.ListLimit = 10
	}
	if c.RecommendLimit <= 0 {
		c.RecommendLimit = 3
	}
	if c.AsyncTimeout <= 0 {
		c.AsyncTimeout = 30 * time.Second
	}
	if c.AwardRate.IsZero() {
		c.AwardRate = decimal.RequireFromString("0.05")
	}
}

// Deps are the collaborators of the engine. Store, States, Locales and
// Catalog are required; the rest default to no-ops.
type Deps struct {
	Store       store.Store
	States      state.Manager
	Locales     *ui.Locales
	Catalog     Catalog
	Notifier    Notifier
	Recommender Recommender
	Onboarding  Onboarding
	Observer    Observer
	Reloader    Reloader
	Clock       func() time.Time
}

// Engine is the conversation router.
type Engine struct {
	cfg         Config
	store       store.Store
	states      state.Manager
	locales     *ui.Locales
	catalog     Catalog
	notifier    Notifier
	recommender Recommender
	onboarding  Onboarding
	observer    Observer
	reloader    Reloader
	now         func() time.Time

	registry   *Registry
	flows      map[state.Flow]Flow
	classifier *event.Classifier

	wg sync.WaitGroup
}

// New wires the engine and its dispatch tables.
func New(cfg Config, deps Deps) (*Engine, error) {
	if deps.Store == nil || deps.States == nil || deps.Locales == nil || deps.Catalog == nil {
		return nil, errors.New("flow: store, states, locales and catalog are required")
	}
	cfg.normalize()
	e := &Engine{
		cfg:         cfg,
		store:       deps.Store,
		states:      deps.States,
		locales:     deps.Locales,
		catalog:     deps.Catalog,
		notifier:    deps.Notifier,
		recommender: deps.Recommender,
		onboarding:  deps.Onboarding,
		observer:    deps.Observer,
		reloader:    deps.Reloader,
		now:         deps.Clock,
		registry:    NewRegistry(),
	}
	if e.notifier == nil {
		e.notifier = noopNotifier{}
	}
	if e.recommender == nil {
		e.recommender = noopRecommender{}
	}
	if e.onboarding == nil {
		e.onboarding = noopOnboarding{}
	}
	if e.observer == nil {
		e.observer = noopObserver{}
	}
	if e.reloader == nil {
		e.reloader = noopReloader{}
	}
	if e.now == nil {
		e.now = time.Now
	}
	if err := e.registerHandlers(); err != nil {
		return nil, err
	}
	e.flows = make(map[state.Flow]Flow)
	for _, f := range []Flow{
		e.registrationFlow(),
		e.checkoutFlow(),
		e.searchFlow(),
		e.ratingFlow(),
		e.trackingFlow(),
		e.languageFlow(),
	} {
		e.flows[f.Name] = f
	}
	e.classifier = event.NewClassifier(e.registry.Prefixes(), e.locales.Captions())
	return e, nil
}

// Registry exposes the dispatch tables, e.g. for publishing the command menu.
func (e *Engine) Registry() *Registry { return e.registry }

// Classify turns a raw update into a typed event.
func (e *Engine) Classify(raw event.Raw) event.Classified {
	return e.classifier.Classify(raw)
}

// Handle classifies and routes one inbound update. The caller delivers the
// replies in order.
func (e *Engine) Handle(ctx context.Context, raw event.Raw) []reply.Reply {
	return e.HandleEvent(ctx, e.Classify(raw))
}

// HandleEvent routes a classified event. Events of one user must not be
// handled concurrently.
func (e *Engine) HandleEvent(ctx context.Context, ev event.Classified) []reply.Reply {
	start := time.Now()
	ctx = logger.WithUpdateMeta(ctx, ev.UpdateID, ev.UserID, ev.ChatID)

	var res routed
	r, err := e.request(ctx, ev)
	if err != nil {
		r = e.fallbackRequest(ev)
		res = routed{handler: "load", err: err, replies: e.failure(r, err)}
	} else {
		ctx = logger.WithFlow(ctx, string(r.State.Flow), string(r.State.Step))
		res = e.route(ctx, r)
	}
	res.replies = ensureAnswer(ev, res.replies)

	outcome := res.outcome
	if outcome == "" {
		outcome = logger.Status(res.err)
	}
	e.observer.ObserveEvent(ev.Kind.String(), res.handler, outcome, time.Since(start))
	logHandlerSummary(ctx, res.handler, start, outcome, len(res.replies), res.err,
		slog.String("event_kind", ev.Summary()))
	return res.replies
}

// Wait blocks until background notifications finish.
func (e *Engine) Wait() { e.wg.Wait() }

type routed struct {
	handler string
	outcome string
	replies []reply.Reply
	err     error
}

func (e *Engine) request(ctx context.Context, ev event.Classified) (*Request, error) {
	user, err := e.store.User(ctx, ev.UserID)
	switch {
	case err == nil:
	case errors.Is(err, shop.ErrNotFound):
		user = nil
	default:
		return nil, err
	}
	st := e.states.Get(ev.UserID)
	lang := shop.ParseLanguage(ev.Profile.LanguageCode)
	if user != nil {
		lang = user.Language
	} else if code := st.Data.Get(keyLanguage); code != "" {
		lang = shop.Language(code)
	}
	return &Request{Event: ev, State: st, User: user, View: e.view(lang)}, nil
}

func (e *Engine) fallbackRequest(ev event.Classified) *Request {
	return &Request{Event: ev, State: state.Idle(), View: e.view(shop.ParseLanguage(ev.Profile.LanguageCode))}
}

func (e *Engine) view(lang shop.Language) ui.View {
	return ui.View{T: e.locales.For(lang), Currency: e.cfg.Currency}
}

func (e *Engine) route(ctx context.Context, r *Request) routed {
	ev := r.Event
	switch {
	case ev.IsMenu(ui.MenuCancel) || ev.IsCommand("cancel"):
		return routed{handler: "global.cancel", outcome: "cancel", replies: e.cancel(r)}
	case ev.IsMenu(ui.MenuHome) || ev.IsCommand("menu"):
		return routed{handler: "global.home", replies: e.home(r)}
	case ev.IsCommand("start"):
		replies, err := e.start(ctx, r)
		return routed{handler: "global.start", replies: replies, err: err}
	case r.State.Active():
		if res, ok := e.step(ctx, r); ok {
			return res
		}
		r.State = state.Idle()
	}
	return e.dispatch(ctx, r)
}

func (e *Engine) cancel(r *Request) []reply.Reply {
	st := r.State
	e.states.Clear(r.UserID())
	if st.Active() {
		if f, ok := e.flows[st.Flow]; ok && f.Cancelled != nil {
			return f.Cancelled(r)
		}
	}
	if !r.Registered() {
		return []reply.Reply{r.Text(r.T("common.register_first"), keyboard.RemoveKeyboard())}
	}
	return []reply.Reply{r.MainMenu(r.T("common.cancelled"))}
}

func (e *Engine) home(r *Request) []reply.Reply {
	e.states.Clear(r.UserID())
	if !r.Registered() {
		return []reply.Reply{r.Text(r.T("common.register_first"), keyboard.RemoveKeyboard())}
	}
	return []reply.Reply{r.MainMenu(r.T("common.main_menu"))}
}

func (e *Engine) start(ctx context.Context, r *Request) ([]reply.Reply, error) {
	e.states.Clear(r.UserID())
	if r.Registered() {
		return []reply.Reply{r.MainMenu(r.T("reg.welcome_back", r.User.Name))}, nil
	}
	return e.beginRegistration(r), nil
}

// step feeds the event to the active flow. ok is false when the stored
// position no longer exists, in which case the state was dropped.
func (e *Engine) step(ctx context.Context, r *Request) (routed, bool) {
	st := r.State
	f, ok := e.flows[st.Flow]
	var fn StepFunc
	if ok {
		fn, ok = f.Steps[st.Step]
	}
	if !ok {
		e.states.Clear(r.UserID())
		logger.LogEvent(ctx, logger.SVCFlow, slog.LevelWarn, "state.dropped",
			slog.String("cause", "unknown_step"))
		return routed{}, false
	}

	name := "flow." + string(st.Flow) + "." + string(st.Step)
	res := fn(ctx, r, st.Data)
	out := routed{handler: name, outcome: res.Outcome.String(), replies: res.Replies}

	switch res.Outcome {
	case OutcomeAdvance:
		e.states.Set(r.UserID(), state.FlowState{Flow: st.Flow, Step: res.Next, Data: res.Data})
	case OutcomeRetry:
		e.states.Set(r.UserID(), st)
	case OutcomeCancel:
		e.states.Clear(r.UserID())
	case OutcomeComplete:
		if f.Finish == nil {
			e.states.Clear(r.UserID())
			break
		}
		replies, err := f.Finish(ctx, r, res.Data)
		if err != nil {
			out.err = err
			out.outcome, out.replies = e.finishFailed(r, err)
			return out, true
		}
		e.states.Clear(r.UserID())
		out.replies = append(out.replies, replies...)
	}
	return out, true
}

// finishFailed decides what happens to a flow whose side effect failed.
// Rejected input keeps the step; a missing entity or an empty cart ends the
// flow; anything else keeps the position so the user can resend.
func (e *Engine) finishFailed(r *Request, err error) (string, []reply.Reply) {
	var ve *shop.ValidationError
	switch {
	case errors.As(err, &ve):
		e.states.Set(r.UserID(), r.State)
		return OutcomeRetry.String(), []reply.Reply{r.Reprompt(err, nil)}
	case errors.Is(err, shop.ErrNotFound), errors.Is(err, shop.ErrEmptyCart):
		e.states.Clear(r.UserID())
		return OutcomeCancel.String(), []reply.Reply{r.Text(e.failureText(r, err), ui.MainMenu(r.View.T))}
	default:
		e.states.Set(r.UserID(), r.State)
		return "fail", []reply.Reply{r.Say("common.apology")}
	}
}

func (e *Engine) dispatch(ctx context.Context, r *Request) routed {
	ev := r.Event
	switch ev.Kind {
	case event.KindCommand:
		name, cmd, ok := e.registry.LookupCommand(ev.Command.Name)
		if !ok {
			return e.unknown(r, "command.unknown")
		}
		handler := "command." + normalizeHandlerName(name)
		if !r.Registered() && !cmd.Public {
			return e.registerFirst(r, handler)
		}
		if cmd.AdminOnly && !r.IsAdmin() {
			return routed{handler: handler, outcome: "fail", replies: []reply.Reply{r.Say("common.admin_only")}}
		}
		return e.run(ctx, r, handler, cmd.Handler)

	case event.KindMenu:
		handler := "menu." + ev.Menu.Key
		if !r.Registered() {
			return e.registerFirst(r, handler)
		}
		h, ok := e.registry.Menu(ev.Menu.Key)
		if !ok {
			return e.unknown(r, handler)
		}
		return e.run(ctx, r, handler, h)

	case event.KindCallback:
		if ev.Callback.Prefix == "" {
			return routed{handler: "callback.unknown", replies: []reply.Reply{r.Answer(r.T("common.unknown_action"))}}
		}
		handler := "callback." + normalizeHandlerName(ev.Callback.Prefix)
		if !r.Registered() {
			return e.registerFirst(r, handler)
		}
		h, _ := e.registry.Callback(ev.Callback.Prefix)
		e.logActivity(ctx, r, "callback", ev.Callback.Data)
		return e.run(ctx, r, handler, h)

	case event.KindAttachment:
		if !r.Registered() {
			return e.registerFirst(r, "attachment")
		}
		return e.unknown(r, "attachment."+string(ev.Attachment.Kind))
	}

	if !r.Registered() {
		return e.registerFirst(r, "text")
	}
	return e.run(ctx, r, "text", e.freeText)
}

func (e *Engine) run(ctx context.Context, r *Request, handler string, h Handler) routed {
	ctx = logger.WithHandler(ctx, handler)
	replies, err := h(ctx, r)
	if err != nil {
		return routed{handler: handler, replies: e.failure(r, err), err: err}
	}
	return routed{handler: handler, replies: replies}
}

func (e *Engine) unknown(r *Request, handler string) routed {
	return routed{handler: handler, outcome: "fail", replies: []reply.Reply{r.MainMenu(r.T("common.unknown"))}}
}

func (e *Engine) registerFirst(r *Request, handler string) routed {
	replies := []reply.Reply{r.Text(r.T("common.register_first"), keyboard.RemoveKeyboard())}
	if r.Event.Kind == event.KindCallback {
		replies = append([]reply.Reply{r.Answer(r.T("common.register_first"))}, replies...)
	}
	return routed{handler: handler, outcome: "fail", replies: replies}
}

// failure turns a handler error into user-facing replies. Button presses get
// a toast, other events a message.
func (e *Engine) failure(r *Request, err error) []reply.Reply {
	text := e.failureText(r, err)
	if r.Event.Kind == event.KindCallback {
		return []reply.Reply{{Kind: reply.KindAnswer, CallbackID: r.Event.CallbackID, Text: text, Alert: shop.IsTransient(err)}}
	}
	return []reply.Reply{r.Text(text, nil)}
}

func (e *Engine) failureText(r *Request, err error) string {
	var nf *shop.NotFoundError
	var ve *shop.ValidationError
	switch {
	case errors.As(err, &nf):
		return r.T("common.not_found", r.T("entity."+strings.ReplaceAll(nf.Entity, " ", "_")))
	case errors.As(err, &ve):
		return r.T("invalid." + ve.Field + "." + ve.Reason)
	case errors.Is(err, shop.ErrEmptyCart):
		return r.T("checkout.empty_cart")
	case errors.Is(err, shop.ErrInvalidTransition):
		return r.T("invalid.status.invalid_transition")
	}
	return r.T("common.apology")
}

func ensureAnswer(ev event.Classified, replies []reply.Reply) []reply.Reply {
	if ev.Kind != event.KindCallback || ev.CallbackID == "" {
		return replies
	}
	for _, rp := range replies {
		if rp.Kind == reply.KindAnswer {
			return replies
		}
	}
	return append([]reply.Reply{reply.Answer(ev.CallbackID, "")}, replies...)
}

// async runs fn detached from the event, bounded by AsyncTimeout.
func (e *Engine) async(ctx context.Context, op string, fn func(ctx context.Context) error) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.AsyncTimeout)
		defer cancel()
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error(ctx, "notify", "notify.panic",
					slog.String("op", op),
					slog.String("err", fmt.Sprint(rec)),
				)
			}
		}()
		if err := fn(ctx); err != nil {
			logger.Warn(ctx, "notify", "notify.failed",
				slog.String("op", op),
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
				slog.String("err_code", deriveErrorCode(err)),
			)
		}
	}()
}

func (e *Engine) logActivity(ctx context.Context, r *Request, action, payload string) {
	if err := e.store.LogActivity(ctx, r.UserID(), action, payload); err != nil {
		logger.Debug(ctx, "flow", "activity.log_failed", slog.String("err", err.Error()))
	}
}
