package keyboard

import tele "gopkg.in/telebot.v4"

// Markup converts kb to telebot reply markup; nil for an empty keyboard.
func Markup(kb *Keyboard) *tele.ReplyMarkup {
	if kb.Empty() {
		return nil
	}
	if kb.Remove {
		return &tele.ReplyMarkup{RemoveKeyboard: true}
	}
	if kb.Inline {
		markup := &tele.ReplyMarkup{}
		inline := make([][]tele.InlineButton, 0, len(kb.Rows))
		for _, row := range kb.Rows {
			r := make([]tele.InlineButton, 0, len(row))
			for _, b := range row {
				r = append(r, tele.InlineButton{Text: b.Text, Data: b.Data, URL: b.URL})
			}
			inline = append(inline, r)
		}
		markup.InlineKeyboard = inline
		return markup
	}
	markup := &tele.ReplyMarkup{ResizeKeyboard: true}
	rows := make([][]tele.ReplyButton, 0, len(kb.Rows))
	for _, row := range kb.Rows {
		r := make([]tele.ReplyButton, 0, len(row))
		for _, b := range row {
			r = append(r, tele.ReplyButton{Text: b.Text, Contact: b.RequestContact})
		}
		rows = append(rows, r)
	}
	markup.ReplyKeyboard = rows
	return markup
}
