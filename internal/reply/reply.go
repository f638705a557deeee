// Package reply holds the outbound side of a conversation step: the replies
// a handler decided on and the emitter that hands them to the gateway.
package reply

import "github.com/m3rciful/shopbot/core/telegram/keyboard"

type (
	Keyboard = keyboard.Keyboard
	Button   = keyboard.Button
)

// Kind tags the variant of a Reply.
type Kind int

const (
	KindText Kind = iota
	KindImage
	KindEditControls
	KindAnswer
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindEditControls:
		return "edit_controls"
	case KindAnswer:
		return "answer"
	default:
		return "text"
	}
}

// Reply is one outbound call. Text is HTML formatted.
type Reply struct {
	Kind       Kind
	ChatID     int64
	MessageID  int
	Text       string
	ImageRef   string
	Keyboard   *Keyboard
	CallbackID string
	Alert      bool
}

// Text sends a message.
func Text(chatID int64, text string, kb *Keyboard) Reply {
	return Reply{Kind: KindText, ChatID: chatID, Text: text, Keyboard: kb}
}

// Image sends a picture with a caption. ImageRef is a URL, a local path or a
// platform file id.
func Image(chatID int64, imageRef, caption string, kb *Keyboard) Reply {
	return Reply{Kind: KindImage, ChatID: chatID, ImageRef: imageRef, Text: caption, Keyboard: kb}
}

// EditControls replaces the inline keyboard of an existing message. A nil
// keyboard removes the controls.
func EditControls(chatID int64, messageID int, kb *Keyboard) Reply {
	return Reply{Kind: KindEditControls, ChatID: chatID, MessageID: messageID, Keyboard: kb}
}

// Answer acknowledges a button press, optionally with a toast.
func Answer(callbackID, text string) Reply {
	return Reply{Kind: KindAnswer, CallbackID: callbackID, Text: text}
}
