// Package event turns raw inbound updates into typed events the conversation
// engine can route on.
package event

import (
	"strconv"
	"strings"
)

// AttachmentKind names a non-text payload.
type AttachmentKind string

const (
	AttachContact  AttachmentKind = "contact"
	AttachPhoto    AttachmentKind = "photo"
	AttachVoice    AttachmentKind = "voice"
	AttachDocument AttachmentKind = "document"
	AttachLocation AttachmentKind = "location"
	AttachSticker  AttachmentKind = "sticker"
)

// Contact is a platform-native shared contact.
type Contact struct {
	Phone     string
	FirstName string
	LastName  string
	UserID    int64
}

// Profile is what the platform tells us about the sender.
type Profile struct {
	FirstName    string
	LastName     string
	Username     string
	LanguageCode string
}

// DisplayName joins first and last name.
func (p Profile) DisplayName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Raw is an inbound update reduced to the fields the bot uses.
type Raw struct {
	UpdateID  int64
	UserID    int64
	ChatID    int64
	MessageID int

	Text string

	CallbackID   string
	CallbackData string

	Contact    *Contact
	Attachment AttachmentKind

	Profile Profile
}

// Kind tags the variant of a Classified event.
type Kind int

const (
	KindFreeText Kind = iota
	KindCommand
	KindCallback
	KindMenu
	KindAttachment
)

func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindCallback:
		return "callback"
	case KindMenu:
		return "menu"
	case KindAttachment:
		return "attachment"
	default:
		return "text"
	}
}

// Command is a slash command: /order_42 has Name "order" and Argument "42".
type Command struct {
	Name     string
	Argument string
}

// Args splits Argument on underscores.
func (c Command) Args() []string {
	if c.Argument == "" {
		return nil
	}
	return strings.Split(c.Argument, "_")
}

// Menu is an exact match of a known menu caption. Key is locale independent.
type Menu struct {
	Label string
	Key   string
}

// Callback is a button press split into the longest registered prefix and
// the remaining underscore separated parameters. Prefix is empty when no
// registered prefix matched.
type Callback struct {
	Data   string
	Prefix string
	Params []string
}

// Int64 parses parameter i.
func (c Callback) Int64(i int) (int64, bool) {
	if i < 0 || i >= len(c.Params) {
		return 0, false
	}
	v, err := strconv.ParseInt(c.Params[i], 10, 64)
	return v, err == nil
}

// Attachment is a non-text message.
type Attachment struct {
	Kind    AttachmentKind
	Contact *Contact
}

// Classified is the tagged union produced by the classifier. Only the field
// matching Kind is meaningful.
type Classified struct {
	Kind Kind

	UpdateID   int64
	UserID     int64
	ChatID     int64
	MessageID  int
	CallbackID string
	Profile    Profile

	Command    Command
	Menu       Menu
	Callback   Callback
	Attachment Attachment
	Text       string
}

// IsCommand reports whether the event is the command name.
func (c Classified) IsCommand(name string) bool {
	return c.Kind == KindCommand && c.Command.Name == name
}

// IsMenu reports whether the event is the menu caption with key.
func (c Classified) IsMenu(key string) bool {
	return c.Kind == KindMenu && c.Menu.Key == key
}

// Input returns the user-typed text of text and menu events, trimmed.
func (c Classified) Input() (string, bool) {
	switch c.Kind {
	case KindFreeText:
		s := strings.TrimSpace(c.Text)
		return s, s != ""
	case KindMenu:
		return c.Menu.Label, true
	}
	return "", false
}

// Summary describes the event for logs without echoing long user input.
func (c Classified) Summary() string {
	switch c.Kind {
	case KindCommand:
		return "command:/" + c.Command.Name
	case KindCallback:
		if c.Callback.Prefix == "" {
			return "callback:?"
		}
		return "callback:" + c.Callback.Prefix
	case KindMenu:
		return "menu:" + c.Menu.Key
	case KindAttachment:
		return "attachment:" + string(c.Attachment.Kind)
	default:
		return "text:" + strconv.Itoa(len([]rune(c.Text)))
	}
}
