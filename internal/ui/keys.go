package ui

// Menu caption keys shared by every locale.
const (
	MenuCatalog      = "catalog"
	MenuCart         = "cart"
	MenuOrders       = "orders"
	MenuProfile      = "profile"
	MenuSearch       = "search"
	MenuHelp         = "help"
	MenuLoyalty      = "loyalty"
	MenuPromos       = "promos"
	MenuHome         = "home"
	MenuLanguage     = "language"
	MenuCancel       = "cancel"
	MenuSkip         = "skip"
	MenuLangRU       = "lang_ru"
	MenuLangUZ       = "lang_uz"
	MenuPayCash      = "pay_cash"
	MenuPayCard      = "pay_card"
	MenuPayTransfer  = "pay_transfer"
	MenuShareContact = "share_contact"
	MenuCheckout     = "checkout"
)

// Callback data prefixes.
const (
	CBCategory   = "category_"
	CBProduct    = "product_"
	CBAddToCart  = "add_to_cart_"
	CBFavorite   = "fav_"
	CBReviews    = "reviews_"
	CBRateProd   = "rate_product_"
	CBRate       = "rate_"
	CBCartInc    = "cart_inc_"
	CBCartDec    = "cart_dec_"
	CBCartDel    = "cart_del_"
	CBCheckout   = "checkout"
	CBNoop       = "noop"
	ProductBadge = "🛍 "
	productSep   = " - "
)
