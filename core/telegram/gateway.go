package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/core/telegram/keyboard"
)

// allowedUpdates restricts getUpdates to the update kinds the bot consumes.
var allowedUpdates = []string{"message", "callback_query"}

// GatewayOptions configures NewGateway.
type GatewayOptions struct {
	Token    string
	APIURL   string
	LongPoll time.Duration
	// Offline skips the getMe handshake; used by tests.
	Offline bool
}

// Gateway is the Bot API adapter: it pulls updates with an explicit offset
// cursor and performs the outbound calls replies are made of.
type Gateway struct {
	bot      *tele.Bot
	longPoll time.Duration
}

// NewGateway builds the telebot client without starting its poller.
func NewGateway(opts GatewayOptions) (*Gateway, error) {
	if strings.TrimSpace(opts.Token) == "" {
		return nil, errors.New("telegram: empty token")
	}
	if opts.LongPoll <= 0 {
		opts.LongPoll = 25 * time.Second
	}
	bot, err := tele.NewBot(tele.Settings{
		Token:     opts.Token,
		URL:       opts.APIURL,
		Client:    BuildHTTPClient(opts.LongPoll),
		ParseMode: tele.ModeHTML,
		Offline:   opts.Offline,
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	return &Gateway{bot: bot, longPoll: opts.LongPoll}, nil
}

// Bot exposes the underlying client for context construction.
func (g *Gateway) Bot() *tele.Bot { return g.bot }

// Username returns the bot account name; empty when offline.
func (g *Gateway) Username() string {
	if g.bot.Me == nil {
		return ""
	}
	return g.bot.Me.Username
}

type updatesResponse struct {
	Result []tele.Update `json:"result"`
}

// Updates long-polls for updates with id >= offset. Cancelling ctx abandons
// the in-flight poll; its updates are delivered again by the next call.
func (g *Gateway) Updates(ctx context.Context, offset int) ([]tele.Update, error) {
	return g.getUpdates(ctx, map[string]any{
		"offset":          offset,
		"timeout":         int(g.longPoll / time.Second),
		"allowed_updates": allowedUpdates,
	})
}

// Commit confirms every update below offset without waiting for new ones,
// so a restart does not receive them again. At most one newer update is
// fetched and left unconfirmed.
func (g *Gateway) Commit(ctx context.Context, offset int) error {
	_, err := g.getUpdates(ctx, map[string]any{
		"offset":          offset,
		"timeout":         0,
		"limit":           1,
		"allowed_updates": allowedUpdates,
	})
	return err
}

func (g *Gateway) getUpdates(ctx context.Context, params map[string]any) ([]tele.Update, error) {
	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		data, err := g.bot.Raw("getUpdates", params)
		done <- result{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		var resp updatesResponse
		if err := json.Unmarshal(res.data, &resp); err != nil {
			return nil, fmt.Errorf("telegram: decode updates: %w", err)
		}
		return resp.Result, nil
	}
}

func sendOptions(kb *keyboard.Keyboard) *tele.SendOptions {
	return &tele.SendOptions{
		ParseMode:             tele.ModeHTML,
		ReplyMarkup:           keyboard.Markup(kb),
		DisableWebPagePreview: true,
	}
}

// SendText sends an HTML message to chatID.
func (g *Gateway) SendText(ctx context.Context, chatID int64, text string, kb *keyboard.Keyboard) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := g.bot.Send(tele.ChatID(chatID), text, sendOptions(kb))
	return err
}

// SendImage sends a photo with caption. A local path that does not exist
// degrades to a text message so the caption still reaches the user.
func (g *Gateway) SendImage(ctx context.Context, chatID int64, imageRef, caption string, kb *keyboard.Keyboard) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	file, ok := fileFromRef(imageRef)
	if !ok {
		logger.Warn(ctx, "tg", "send.image_missing", slog.String("image", logger.SanitizeLimit(imageRef, 128)))
		return g.SendText(ctx, chatID, caption, kb)
	}
	photo := &tele.Photo{File: file, Caption: caption}
	_, err := g.bot.Send(tele.ChatID(chatID), photo, sendOptions(kb))
	return err
}

// fileFromRef maps an image reference onto a telebot file: http(s) URLs are
// fetched by the API, existing local paths are uploaded, anything else is
// treated as a file id.
func fileFromRef(ref string) (tele.File, bool) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return tele.File{}, false
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return tele.FromURL(ref), true
	case strings.ContainsAny(ref, `/\`) || strings.Contains(ref, "."):
		if _, err := os.Stat(ref); err != nil {
			return tele.File{}, false
		}
		return tele.FromDisk(ref), true
	default:
		return tele.File{FileID: ref}, true
	}
}

// EditControls replaces the inline keyboard of a sent message; a nil keyboard
// removes it.
func (g *Gateway) EditControls(ctx context.Context, chatID int64, messageID int, kb *keyboard.Keyboard) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tele.StoredMessage{MessageID: strconv.Itoa(messageID), ChatID: chatID}
	_, err := g.bot.EditReplyMarkup(msg, keyboard.Markup(kb))
	if err != nil && isNotModified(err) {
		return nil
	}
	return err
}

func isNotModified(err error) bool {
	return strings.Contains(err.Error(), "message is not modified")
}

// AnswerCallback acknowledges a button press, optionally with a toast.
func (g *Gateway) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return g.bot.Respond(&tele.Callback{ID: callbackID}, &tele.CallbackResponse{Text: text, ShowAlert: alert})
}

// SetCommands publishes the command menu.
func (g *Gateway) SetCommands(ctx context.Context, cmds []tele.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return g.bot.SetCommands(cmds)
}

// DeleteWebhook detaches a previously configured webhook so getUpdates works.
func (g *Gateway) DeleteWebhook(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return g.bot.RemoveWebhook(false)
}
