package event

import (
	"strings"
)

// Captions maps every known menu caption, in every locale, to its key.
type Captions map[string]string

// Classifier applies the fixed precedence: commands, callback actions, menu
// selections, attachments, then free text. The first match wins.
type Classifier struct {
	prefixes *PrefixTable
	captions Captions
}

// NewClassifier returns a classifier over the registered callback prefixes
// and menu captions.
func NewClassifier(prefixes *PrefixTable, captions Captions) *Classifier {
	if prefixes == nil {
		prefixes = NewPrefixTable()
	}
	return &Classifier{prefixes: prefixes, captions: captions}
}

// Classify converts raw into a Classified event.
func (c *Classifier) Classify(raw Raw) Classified {
	ev := Classified{
		UpdateID:   raw.UpdateID,
		UserID:     raw.UserID,
		ChatID:     raw.ChatID,
		MessageID:  raw.MessageID,
		CallbackID: raw.CallbackID,
		Profile:    raw.Profile,
		Text:       raw.Text,
	}

	if cmd, ok := parseCommand(raw.Text); ok {
		ev.Kind = KindCommand
		ev.Command = cmd
		return ev
	}
	if raw.CallbackID != "" || raw.CallbackData != "" {
		ev.Kind = KindCallback
		ev.Callback = c.parseCallback(raw.CallbackData)
		return ev
	}
	if key, ok := c.captions[strings.TrimSpace(raw.Text)]; ok {
		ev.Kind = KindMenu
		ev.Menu = Menu{Label: strings.TrimSpace(raw.Text), Key: key}
		return ev
	}
	if raw.Contact != nil {
		ev.Kind = KindAttachment
		ev.Attachment = Attachment{Kind: AttachContact, Contact: raw.Contact}
		return ev
	}
	if raw.Attachment != "" {
		ev.Kind = KindAttachment
		ev.Attachment = Attachment{Kind: raw.Attachment}
		return ev
	}
	ev.Kind = KindFreeText
	return ev
}

// parseCommand splits "/name@bot_arg rest" into name and argument. The name
// ends at the first underscore or whitespace.
func parseCommand(text string) (Command, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return Command{}, false
	}
	body := text[1:]
	head, tail, _ := strings.Cut(body, " ")
	if at := strings.IndexByte(head, '@'); at >= 0 {
		head = head[:at]
	}
	name, arg, _ := strings.Cut(head, "_")
	if name == "" {
		return Command{}, false
	}
	tail = strings.TrimSpace(tail)
	switch {
	case arg == "":
		arg = tail
	case tail != "":
		arg = arg + " " + tail
	}
	return Command{Name: strings.ToLower(name), Argument: arg}, true
}

func (c *Classifier) parseCallback(data string) Callback {
	data = normalizeCallbackData(data)
	prefix, rest, ok := c.prefixes.Match(data)
	if !ok {
		return Callback{Data: data}
	}
	cb := Callback{Data: data, Prefix: prefix}
	if rest != "" {
		cb.Params = strings.Split(rest, "_")
	}
	return cb
}

// normalizeCallbackData folds telebot's "\f<unique>|<payload>" encoding into
// the plain "<unique>_<payload>" form.
func normalizeCallbackData(data string) string {
	data = strings.TrimSpace(data)
	if !strings.HasPrefix(data, "\f") {
		return data
	}
	unique, payload, found := strings.Cut(strings.TrimPrefix(data, "\f"), "|")
	if !found || payload == "" {
		return unique
	}
	if strings.HasSuffix(unique, "_") {
		return unique + payload
	}
	return unique + "_" + payload
}
