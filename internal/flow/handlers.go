package flow

import (
	"context"
	"errors"

	"github.com/m3rciful/shopbot/internal/reply"
	"github.com/m3rciful/shopbot/internal/ui"
)

// registerHandlers fills the dispatch tables.
func (e *Engine) registerHandlers() error {
	reg := e.registry
	commands := map[string]Command{
		"start":         {Handler: e.start, Description: "Начать работу", Public: true},
		"menu":          {Handler: e.homeHandler, Description: "Главное меню"},
		"cancel":        {Handler: e.homeHandler, Description: "Отменить действие", Public: true},
		"help":          {Handler: e.help, Description: "Помощь", Public: true},
		"catalog":       {Handler: e.showCatalog, Description: "Каталог"},
		"cart":          {Handler: e.showCart, Description: "Корзина"},
		"checkout":      {Handler: e.beginCheckout, Description: "Оформить заказ"},
		"orders":        {Handler: e.showOrders, Description: "Мои заказы", Aliases: []string{"myorders"}},
		"order":         {Handler: e.showOrder, Description: "Заказ по номеру", Hidden: true},
		"track":         {Handler: e.track, Description: "Отследить заказ"},
		"profile":       {Handler: e.showProfile, Description: "Профиль"},
		"loyalty":       {Handler: e.showLoyalty, Description: "Программа лояльности"},
		"promos":        {Handler: e.showPromos, Description: "Промокоды"},
		"promo":         {Handler: e.checkPromo, Description: "Проверить промокод", Hidden: true},
		"search":        {Handler: e.searchCommand, Description: "Поиск товаров", Aliases: []string{"find"}},
		"feedback":      {Handler: e.feedback, Description: "Оставить отзыв"},
		"notifications": {Handler: e.showNotifications, Description: "Уведомления"},
		"language":      {Handler: e.beginLanguage, Description: "Сменить язык", Aliases: []string{"lang"}},
		"admin":         {Handler: e.adminStats, Description: "Статистика магазина", AdminOnly: true},
		"setstatus":     {Handler: e.setStatus, Description: "Сменить статус заказа", AdminOnly: true},
		"reload":        {Handler: e.reloadCatalog, Description: "Перечитать каталог", AdminOnly: true},
	}
	menus := map[string]Handler{
		ui.MenuCatalog:  e.showCatalog,
		ui.MenuCart:     e.showCart,
		ui.MenuCheckout: e.beginCheckout,
		ui.MenuOrders:   e.showOrders,
		ui.MenuProfile:  e.showProfile,
		ui.MenuSearch:   e.beginSearch,
		ui.MenuHelp:     e.help,
		ui.MenuLoyalty:  e.showLoyalty,
		ui.MenuPromos:   e.showPromos,
		ui.MenuLanguage: e.beginLanguage,
	}
	callbacks := map[string]Handler{
		ui.CBCategory:  e.categoryCallback,
		ui.CBProduct:   e.productCallback,
		ui.CBAddToCart: e.addToCart,
		ui.CBFavorite:  e.addFavorite,
		ui.CBReviews:   e.showReviews,
		ui.CBRateProd:  e.rateProduct,
		ui.CBRate:      e.rateDirect,
		ui.CBCartInc:   e.cartIncrement,
		ui.CBCartDec:   e.cartDecrement,
		ui.CBCartDel:   e.cartRemove,
		ui.CBCheckout:  e.beginCheckout,
		ui.CBNoop:      e.noop,
	}

	var errs []error
	for name, cmd := range commands {
		errs = append(errs, reg.RegisterCommand(name, cmd))
	}
	for key, h := range menus {
		errs = append(errs, reg.RegisterMenu(key, h))
	}
	for key, h := range callbacks {
		errs = append(errs, reg.RegisterCallback(key, h))
	}
	return errors.Join(errs...)
}

func (e *Engine) homeHandler(_ context.Context, r *Request) ([]reply.Reply, error) {
	return e.home(r), nil
}

func (e *Engine) help(_ context.Context, r *Request) ([]reply.Reply, error) {
	if !r.Registered() {
		return []reply.Reply{r.Say("help.text")}, nil
	}
	return []reply.Reply{r.MainMenu(r.T("help.text"))}, nil
}

func (e *Engine) noop(_ context.Context, r *Request) ([]reply.Reply, error) {
	return []reply.Reply{r.Answer("")}, nil
}
