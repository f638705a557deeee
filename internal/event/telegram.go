package event

import tele "gopkg.in/telebot.v4"

// FromUpdate reduces a Bot API update to a Raw event. Updates that carry
// neither a message nor a button press, or have no sender, are rejected.
func FromUpdate(u tele.Update) (Raw, bool) {
	switch {
	case u.Callback != nil:
		cb := u.Callback
		if cb.Sender == nil {
			return Raw{}, false
		}
		raw := Raw{
			UpdateID:     int64(u.ID),
			UserID:       cb.Sender.ID,
			ChatID:       cb.Sender.ID,
			CallbackID:   cb.ID,
			CallbackData: cb.Data,
			Profile:      profileOf(cb.Sender),
		}
		if cb.Message != nil {
			raw.MessageID = cb.Message.ID
			if cb.Message.Chat != nil {
				raw.ChatID = cb.Message.Chat.ID
			}
		}
		return raw, true

	case u.Message != nil:
		m := u.Message
		if m.Sender == nil {
			return Raw{}, false
		}
		raw := Raw{
			UpdateID:  int64(u.ID),
			UserID:    m.Sender.ID,
			ChatID:    m.Sender.ID,
			MessageID: m.ID,
			Text:      m.Text,
			Profile:   profileOf(m.Sender),
		}
		if m.Chat != nil {
			raw.ChatID = m.Chat.ID
		}
		if m.Contact != nil {
			raw.Contact = &Contact{
				Phone:     m.Contact.PhoneNumber,
				FirstName: m.Contact.FirstName,
				LastName:  m.Contact.LastName,
				UserID:    m.Contact.UserID,
			}
			raw.Attachment = AttachContact
		} else {
			raw.Attachment = attachmentOf(m)
		}
		return raw, true
	}
	return Raw{}, false
}

func profileOf(u *tele.User) Profile {
	return Profile{
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Username:     u.Username,
		LanguageCode: u.LanguageCode,
	}
}

func attachmentOf(m *tele.Message) AttachmentKind {
	switch {
	case m.Photo != nil:
		return AttachPhoto
	case m.Voice != nil:
		return AttachVoice
	case m.Document != nil:
		return AttachDocument
	case m.Location != nil:
		return AttachLocation
	case m.Sticker != nil:
		return AttachSticker
	}
	return ""
}
