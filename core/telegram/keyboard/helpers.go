// Package keyboard describes on-screen controls independently of the
// transport and converts them to telebot markup at the edge.
package keyboard

// Button is one control. Data makes it an inline callback button, URL a link
// button; otherwise it is a reply keyboard caption.
type Button struct {
	Text           string
	Data           string
	URL            string
	RequestContact bool
}

// Keyboard is either an inline keyboard attached to a message or a persistent
// reply keyboard. Remove hides a previously shown reply keyboard.
type Keyboard struct {
	Inline bool
	Rows   [][]Button
	Remove bool
}

// Empty reports whether the keyboard carries nothing to render.
func (k *Keyboard) Empty() bool {
	return k == nil || (!k.Remove && len(k.Rows) == 0)
}

// RemoveKeyboard hides the reply keyboard.
func RemoveKeyboard() *Keyboard {
	return &Keyboard{Remove: true}
}

// ReplyButtons builds a reply keyboard from rows of captions.
func ReplyButtons(rows ...[]string) *Keyboard {
	kb := &Keyboard{}
	for _, row := range rows {
		r := make([]Button, 0, len(row))
		for _, label := range row {
			r = append(r, Button{Text: label})
		}
		kb.Rows = append(kb.Rows, r)
	}
	return kb
}

// Data creates an inline callback button.
func Data(text, data string) Button {
	return Button{Text: text, Data: data}
}

// Contact creates a reply button that shares the user's phone number.
func Contact(text string) Button {
	return Button{Text: text, RequestContact: true}
}

// InlineRows builds an inline keyboard from rows.
func InlineRows(rows ...[]Button) *Keyboard {
	return &Keyboard{Inline: true, Rows: rows}
}

// InlineButtons places each button on its own row.
func InlineButtons(buttons []Button) *Keyboard {
	return InlineButtonsNPerRow(buttons, 1)
}

// InlineButtonsNPerRow splits buttons into rows of up to n buttons.
func InlineButtonsNPerRow(buttons []Button, n int) *Keyboard {
	return InlineRows(Chunk(buttons, n)...)
}

// Chunk splits a flat list into rows with up to n buttons per row.
func Chunk(buttons []Button, n int) [][]Button {
	if n < 1 {
		n = 1
	}
	rows := make([][]Button, 0, (len(buttons)+n-1)/n)
	for i := 0; i < len(buttons); i += n {
		end := min(i+n, len(buttons))
		rows = append(rows, buttons[i:end])
	}
	return rows
}
