package flow

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/internal/event"
	"github.com/m3rciful/shopbot/internal/reply"
)

// Handler serves a stateless event.
type Handler func(ctx context.Context, r *Request) ([]reply.Reply, error)

// Command describes a slash command.
type Command struct {
	Handler     Handler
	Description string
	// AdminOnly rejects senders that are not shop administrators.
	AdminOnly bool
	// Hidden keeps the command out of the client's command menu.
	Hidden bool
	// Public lets unregistered users run the command.
	Public  bool
	Aliases []string
}

// BotCommand is an entry of the client's command menu.
type BotCommand struct {
	Text        string
	Description string
}

// Registry holds the stateless dispatch tables: commands, menu captions and
// callback prefixes.
type Registry struct {
	commands  map[string]Command
	aliases   map[string]string
	menus     map[string]Handler
	callbacks map[string]Handler
	prefixes  *event.PrefixTable
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]Command),
		aliases:   make(map[string]string),
		menus:     make(map[string]Handler),
		callbacks: make(map[string]Handler),
		prefixes:  event.NewPrefixTable(),
	}
}

// RegisterCommand adds a command under name, without the leading slash.
// Names and aliases may not contain an underscore: the classifier treats
// everything after the first one as the argument ("/order_42").
func (r *Registry) RegisterCommand(name string, cmd Command) error {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if name == "" || strings.Contains(name, "_") || cmd.Handler == nil || cmd.Description == "" {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.command.skip",
			slog.String("name", name),
			slog.String("reason", "invalid"),
		)
		return fmt.Errorf("invalid command registration: %q", name)
	}
	if _, exists := r.commands[name]; exists {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.command.duplicate",
			slog.String("name", name),
		)
		return fmt.Errorf("command already registered: %s", name)
	}
	aliases := make([]string, 0, len(cmd.Aliases))
	for _, alias := range cmd.Aliases {
		alias = strings.TrimPrefix(strings.TrimSpace(alias), "/")
		if alias == "" || strings.Contains(alias, "_") {
			logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.command.skip",
				slog.String("name", name),
				slog.String("alias", alias),
				slog.String("reason", "unreachable alias"),
			)
			return fmt.Errorf("command %s: unreachable alias %q", name, alias)
		}
		aliases = append(aliases, alias)
	}
	r.commands[name] = cmd
	for _, alias := range aliases {
		r.aliases[alias] = name
	}
	return nil
}

// LookupCommand resolves name or one of its aliases to the canonical name.
func (r *Registry) LookupCommand(name string) (string, Command, bool) {
	name = strings.TrimPrefix(name, "/")
	if cmd, ok := r.commands[name]; ok {
		return name, cmd, true
	}
	if canonical, ok := r.aliases[name]; ok {
		return canonical, r.commands[canonical], true
	}
	return "", Command{}, false
}

// ListCommands returns the command menu sorted by name, optionally without
// hidden and admin-only commands.
func (r *Registry) ListCommands(visibleOnly bool) []BotCommand {
	list := make([]BotCommand, 0, len(r.commands))
	for name, meta := range r.commands {
		if visibleOnly && (meta.Hidden || meta.AdminOnly) {
			continue
		}
		list = append(list, BotCommand{Text: "/" + name, Description: meta.Description})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Text < list[j].Text })
	return list
}

// RegisterMenu maps a menu caption key to h.
func (r *Registry) RegisterMenu(key string, h Handler) error {
	if key == "" || h == nil {
		return fmt.Errorf("invalid menu registration: %q", key)
	}
	if _, exists := r.menus[key]; exists {
		return fmt.Errorf("menu already registered: %s", key)
	}
	r.menus[key] = h
	return nil
}

// Menu returns the handler of a menu key.
func (r *Registry) Menu(key string) (Handler, bool) {
	h, ok := r.menus[key]
	return h, ok
}

// RegisterCallback maps callback data to h. A key ending in "_" matches every
// callback starting with it; other keys match exactly.
func (r *Registry) RegisterCallback(key string, h Handler) error {
	if key == "" || h == nil {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.callback.skip",
			slog.String("key", key),
			slog.Bool("handler_nil", h == nil),
		)
		return fmt.Errorf("invalid callback registration: %q", key)
	}
	if _, exists := r.callbacks[key]; exists {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.callback.duplicate",
			slog.String("key", key),
		)
		return fmt.Errorf("callback already registered: %s", key)
	}
	r.callbacks[key] = h
	r.prefixes.Add(key)
	return nil
}

// Callback returns the handler registered for a matched prefix.
func (r *Registry) Callback(prefix string) (Handler, bool) {
	h, ok := r.callbacks[prefix]
	return h, ok
}

// Prefixes is the callback table the classifier matches against.
func (r *Registry) Prefixes() *event.PrefixTable {
	return r.prefixes
}

// ListCallbacks returns sorted callback keys for diagnostics.
func (r *Registry) ListCallbacks() []string {
	names := make([]string, 0, len(r.callbacks))
	for k := range r.callbacks {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
