package ui

import (
	"fmt"
	"strconv"

	"github.com/m3rciful/shopbot/core/telegram/keyboard"
	"github.com/m3rciful/shopbot/internal/shop"
)

// MainMenu is the persistent reply keyboard of an idle user.
func MainMenu(t *Translator) *keyboard.Keyboard {
	return keyboard.ReplyButtons(
		[]string{t.Caption(MenuCatalog), t.Caption(MenuCart)},
		[]string{t.Caption(MenuOrders), t.Caption(MenuProfile)},
		[]string{t.Caption(MenuSearch), t.Caption(MenuPromos)},
		[]string{t.Caption(MenuLoyalty), t.Caption(MenuHelp)},
		[]string{t.Caption(MenuLanguage)},
	)
}

// CancelOnly offers a single cancel caption.
func CancelOnly(t *Translator) *keyboard.Keyboard {
	return keyboard.ReplyButtons([]string{t.Caption(MenuCancel)})
}

// NameKeyboard proposes the profile name as a one-tap answer.
func NameKeyboard(t *Translator, suggested string) *keyboard.Keyboard {
	if suggested == "" {
		return CancelOnly(t)
	}
	return keyboard.ReplyButtons([]string{suggested}, []string{t.Caption(MenuCancel)})
}

// PhoneKeyboard offers contact sharing, skip and cancel.
func PhoneKeyboard(t *Translator) *keyboard.Keyboard {
	return &keyboard.Keyboard{Rows: [][]keyboard.Button{
		{keyboard.Contact(t.Caption(MenuShareContact))},
		{{Text: t.Caption(MenuSkip)}, {Text: t.Caption(MenuCancel)}},
	}}
}

// SkipCancel offers skip and cancel.
func SkipCancel(t *Translator) *keyboard.Keyboard {
	return keyboard.ReplyButtons([]string{t.Caption(MenuSkip), t.Caption(MenuCancel)})
}

// LanguageKeyboard lists the language captions.
func LanguageKeyboard(t *Translator) *keyboard.Keyboard {
	return keyboard.ReplyButtons(
		[]string{t.Caption(MenuLangRU), t.Caption(MenuLangUZ)},
		[]string{t.Caption(MenuCancel)},
	)
}

// PaymentKeyboard lists payment captions in display order.
func PaymentKeyboard(t *Translator) *keyboard.Keyboard {
	row := make([]string, 0, len(shop.PaymentMethods))
	for _, m := range shop.PaymentMethods {
		row = append(row, t.Caption("pay_"+string(m)))
	}
	return keyboard.ReplyButtons(row, []string{t.Caption(MenuCancel)})
}

// StarsKeyboard offers 1 to 5 stars for productID.
func StarsKeyboard(productID int64) *keyboard.Keyboard {
	buttons := make([]keyboard.Button, 0, 5)
	for stars := 1; stars <= 5; stars++ {
		buttons = append(buttons, keyboard.Data(
			strconv.Itoa(stars)+"⭐",
			fmt.Sprintf("%s%d_%d", CBRate, productID, stars),
		))
	}
	return keyboard.InlineRows(buttons)
}

// CategoriesKeyboard lists categories as inline buttons, two per row.
func CategoriesKeyboard(categories []shop.Category) *keyboard.Keyboard {
	buttons := make([]keyboard.Button, 0, len(categories))
	for _, c := range categories {
		buttons = append(buttons, keyboard.Data(c.Name, CBCategory+strconv.FormatInt(c.ID, 10)))
	}
	return keyboard.InlineButtonsNPerRow(buttons, 2)
}

// ProductsKeyboard shows product captions as reply buttons. Tapping one sends
// its caption back, which ParseProductButton recognizes.
func ProductsKeyboard(t *Translator, products []shop.Product, currency string) *keyboard.Keyboard {
	rows := make([][]string, 0, len(products)+1)
	for _, p := range products {
		rows = append(rows, []string{ProductButton(p, currency)})
	}
	rows = append(rows, []string{t.Caption(MenuCart), t.Caption(MenuHome)})
	return keyboard.ReplyButtons(rows...)
}

// ProductCardKeyboard carries the actions of one product card.
func ProductCardKeyboard(t *Translator, productID int64) *keyboard.Keyboard {
	id := strconv.FormatInt(productID, 10)
	return keyboard.InlineRows(
		[]keyboard.Button{keyboard.Data(t.Caption("add_to_cart"), CBAddToCart+id)},
		[]keyboard.Button{
			keyboard.Data(t.Caption("favorite"), CBFavorite+id),
			keyboard.Data(t.Caption("reviews"), CBReviews+id),
			keyboard.Data(t.Caption("rate"), CBRateProd+id),
		},
	)
}

// CartLineKeyboard holds the controls of one cart line message.
func CartLineKeyboard(lineID int64, qty int) *keyboard.Keyboard {
	id := strconv.FormatInt(lineID, 10)
	return keyboard.InlineRows([]keyboard.Button{
		keyboard.Data("➖", CBCartDec+id),
		keyboard.Data(strconv.Itoa(qty), CBNoop),
		keyboard.Data("➕", CBCartInc+id),
		keyboard.Data("🗑", CBCartDel+id),
	})
}

// CheckoutKeyboard holds the checkout button under the cart total.
func CheckoutKeyboard(t *Translator) *keyboard.Keyboard {
	return keyboard.InlineRows([]keyboard.Button{keyboard.Data(t.Caption(MenuCheckout), CBCheckout)})
}

// ProductLinksKeyboard lists products as inline buttons opening their cards.
func ProductLinksKeyboard(products []shop.Product, currency string) *keyboard.Keyboard {
	buttons := make([]keyboard.Button, 0, len(products))
	for _, p := range products {
		buttons = append(buttons, keyboard.Data(p.Name+productSep+Price(p.Price, currency), CBProduct+strconv.FormatInt(p.ID, 10)))
	}
	return keyboard.InlineButtons(buttons)
}
