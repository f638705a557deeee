// Package memory implements store.Store in process memory. It backs the
// "memory" database driver and the engine tests.
package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/m3rciful/shopbot/internal/shop"
	"github.com/m3rciful/shopbot/internal/store"
)

var _ store.Store = (*Store)(nil)

type cartEntry struct {
	id        int64
	productID int64
	qty       int
}

// Activity is one entry of the user activity log.
type Activity struct {
	UserID  int64
	Action  string
	Payload string
	At      time.Time
}

type Store struct {
	mu  sync.Mutex
	now func() time.Time

	users      map[int64]*shop.User
	categories map[int64]shop.Category
	products   map[int64]shop.Product
	promos     map[string]shop.Promotion

	carts    map[int64][]*cartEntry
	nextLine int64

	orders    map[int64]*shop.Order
	orderKeys map[string]int64
	nextOrder int64

	loyalty       map[int64]*shop.LoyaltyRecord
	favorites     map[[2]int64]struct{}
	reviews       []shop.Review
	feedback      []Activity
	activity      []Activity
	notifications []shop.Notification
}

// New returns an empty store.
func New() *Store {
	return &Store{
		now:        time.Now,
		users:      make(map[int64]*shop.User),
		categories: make(map[int64]shop.Category),
		products:   make(map[int64]shop.Product),
		promos:     make(map[string]shop.Promotion),
		carts:      make(map[int64][]*cartEntry),
		orders:     make(map[int64]*shop.Order),
		orderKeys:  make(map[string]int64),
		loyalty:    make(map[int64]*shop.LoyaltyRecord),
		favorites:  make(map[[2]int64]struct{}),
	}
}

// WithClock overrides the time source.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// Users

func (s *Store) User(_ context.Context, id int64) (*shop.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok || u.Name == "" {
		return nil, shop.NotFound("user", id)
	}
	cp := *u
	return &cp, nil
}

func (s *Store) CreateUser(_ context.Context, u *shop.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	if prev, ok := s.users[u.ID]; ok {
		cp.IsAdmin = cp.IsAdmin || prev.IsAdmin
		cp.CreatedAt = prev.CreatedAt
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = s.now()
	}
	s.users[u.ID] = &cp
	u.CreatedAt, u.IsAdmin = cp.CreatedAt, cp.IsAdmin
	return nil
}

func (s *Store) SetLanguage(_ context.Context, id int64, lang shop.Language) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return shop.NotFound("user", id)
	}
	u.Language = lang
	return nil
}

func (s *Store) PromoteAdmin(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		u = &shop.User{ID: id, Language: shop.LangRU, CreatedAt: s.now()}
		s.users[id] = u
	}
	u.IsAdmin = true
	return nil
}

func (s *Store) AdminIDs(context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for id, u := range s.users {
		if u.IsAdmin {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// Catalog

func (s *Store) Categories(context.Context) ([]shop.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]shop.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) activeProducts(match func(shop.Product) bool) []shop.Product {
	var out []shop.Product
	for _, p := range s.products {
		if p.Active && match(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func limited[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

func (s *Store) ProductsByCategory(_ context.Context, categoryID int64, limit int) ([]shop.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return limited(s.activeProducts(func(p shop.Product) bool { return p.CategoryID == categoryID }), limit), nil
}

func (s *Store) Product(_ context.Context, id int64) (*shop.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok || !p.Active {
		return nil, shop.NotFound("product", id)
	}
	return &p, nil
}

func (s *Store) SearchProducts(_ context.Context, query string, limit int) ([]shop.Product, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	s.mu.Lock()
	defer s.mu.Unlock()
	return limited(s.activeProducts(func(p shop.Product) bool {
		return strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Description), q)
	}), limit), nil
}

func (s *Store) PopularProducts(_ context.Context, limit int) ([]shop.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	units := make(map[int64]int)
	for _, o := range s.orders {
		for _, it := range o.Items {
			units[it.ProductID] += it.Quantity
		}
	}
	out := s.activeProducts(func(shop.Product) bool { return true })
	sort.SliceStable(out, func(i, j int) bool { return units[out[i].ID] > units[out[j].ID] })
	return limited(out, limit), nil
}

func (s *Store) UpsertCategory(_ context.Context, c shop.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[c.ID] = c
	return nil
}

func (s *Store) UpsertProduct(_ context.Context, p shop.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
	return nil
}

func (s *Store) UpsertPromotion(_ context.Context, p shop.Promotion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.promos[strings.ToUpper(p.Code)] = p
	return nil
}

// Carts

func (s *Store) AddToCart(_ context.Context, userID, productID int64, qty int) error {
	if qty <= 0 {
		return &shop.ValidationError{Field: "quantity", Reason: shop.ReasonOutOfRange}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.products[productID]; !ok || !p.Active {
		return shop.NotFound("product", productID)
	}
	for _, e := range s.carts[userID] {
		if e.productID == productID {
			e.qty += qty
			return nil
		}
	}
	s.nextLine++
	s.carts[userID] = append(s.carts[userID], &cartEntry{id: s.nextLine, productID: productID, qty: qty})
	return nil
}

func (s *Store) line(userID int64, e *cartEntry) (shop.CartLine, bool) {
	p, ok := s.products[e.productID]
	if !ok {
		return shop.CartLine{}, false
	}
	return shop.CartLine{
		ID:        e.id,
		UserID:    userID,
		ProductID: e.productID,
		Name:      p.Name,
		UnitPrice: p.Price,
		Quantity:  e.qty,
	}, true
}

func (s *Store) CartLines(_ context.Context, userID int64) ([]shop.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []shop.CartLine
	for _, e := range s.carts[userID] {
		if l, ok := s.line(userID, e); ok {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *Store) findLine(userID, lineID int64) (int, *cartEntry) {
	for i, e := range s.carts[userID] {
		if e.id == lineID {
			return i, e
		}
	}
	return -1, nil
}

func (s *Store) CartLine(_ context.Context, userID, lineID int64) (*shop.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, e := s.findLine(userID, lineID); e != nil {
		if l, ok := s.line(userID, e); ok {
			return &l, nil
		}
	}
	return nil, shop.NotFound("cart line", lineID)
}

func (s *Store) IncrementCartLine(_ context.Context, userID, lineID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, e := s.findLine(userID, lineID)
	if e == nil {
		return 0, shop.NotFound("cart line", lineID)
	}
	e.qty++
	return e.qty, nil
}

func (s *Store) DecrementCartLine(_ context.Context, userID, lineID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, e := s.findLine(userID, lineID)
	if e == nil {
		return 0, shop.NotFound("cart line", lineID)
	}
	if e.qty <= 1 {
		s.carts[userID] = slices.Delete(s.carts[userID], i, i+1)
		return 0, nil
	}
	e.qty--
	return e.qty, nil
}

func (s *Store) RemoveCartLine(_ context.Context, userID, lineID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, e := s.findLine(userID, lineID)
	if e == nil {
		return shop.NotFound("cart line", lineID)
	}
	s.carts[userID] = slices.Delete(s.carts[userID], i, i+1)
	return nil
}

// Orders

func (s *Store) CreateOrder(_ context.Context, d shop.OrderDraft) (*shop.Order, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.orderKeys[d.IdempotencyKey]; ok && d.IdempotencyKey != "" {
		cp := cloneOrder(s.orders[id])
		return cp, false, nil
	}
	if len(d.Items) == 0 {
		return nil, false, shop.ErrEmptyCart
	}
	now := s.now()
	s.nextOrder++
	o := &shop.Order{
		ID:        s.nextOrder,
		Reference: d.Reference,
		UserID:    d.UserID,
		Status:    shop.StatusPending,
		Total:     d.Total,
		Address:   d.Address,
		Payment:   d.Payment,
		Points:    d.Points,
		CreatedAt: now,
		UpdatedAt: now,
		Items:     make([]shop.OrderItem, len(d.Items)),
	}
	for i, it := range d.Items {
		it.OrderID = o.ID
		o.Items[i] = it
	}
	s.orders[o.ID] = o
	if d.IdempotencyKey != "" {
		s.orderKeys[d.IdempotencyKey] = o.ID
	}
	delete(s.carts, d.UserID)

	rec := s.loyaltyRecord(d.UserID)
	rec.Points += d.Points
	rec.TotalEarned += d.Points
	rec.UpdatedAt = now
	return cloneOrder(o), true, nil
}

func cloneOrder(o *shop.Order) *shop.Order {
	cp := *o
	cp.Items = append([]shop.OrderItem(nil), o.Items...)
	return &cp
}

func (s *Store) Order(_ context.Context, id int64) (*shop.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, shop.NotFound("order", id)
	}
	return cloneOrder(o), nil
}

func (s *Store) UserOrders(_ context.Context, userID int64, limit int) ([]shop.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []shop.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, *cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return limited(out, limit), nil
}

func (s *Store) UpdateOrderStatus(_ context.Context, id int64, from, to shop.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return shop.NotFound("order", id)
	}
	if o.Status != from {
		return shop.ErrInvalidTransition
	}
	o.Status = to
	o.UpdatedAt = s.now()
	return nil
}

func (s *Store) OrderStats(_ context.Context, userID int64) (shop.OrderStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := shop.OrderStats{Spent: decimal.Zero}
	for _, o := range s.orders {
		if o.UserID == userID && o.Status != shop.StatusCancelled {
			st.Count++
			st.Spent = st.Spent.Add(o.Total)
		}
	}
	return st, nil
}

func (s *Store) ShopStats(context.Context) (shop.ShopStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := shop.ShopStats{Revenue: decimal.Zero}
	for _, u := range s.users {
		if u.Name != "" {
			st.Users++
		}
	}
	for _, o := range s.orders {
		st.Orders++
		if o.Status == shop.StatusPending {
			st.Pending++
		}
		if o.Status != shop.StatusCancelled {
			st.Revenue = st.Revenue.Add(o.Total)
		}
	}
	return st, nil
}

// Loyalty

func (s *Store) loyaltyRecord(userID int64) *shop.LoyaltyRecord {
	rec, ok := s.loyalty[userID]
	if !ok {
		rec = &shop.LoyaltyRecord{UserID: userID, UpdatedAt: s.now()}
		s.loyalty[userID] = rec
	}
	return rec
}

func (s *Store) EnsureLoyalty(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loyaltyRecord(userID)
	return nil
}

func (s *Store) Loyalty(_ context.Context, userID int64) (*shop.LoyaltyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.loyalty[userID]
	if !ok {
		return nil, shop.NotFound("loyalty", userID)
	}
	cp := *rec
	return &cp, nil
}

// Promotions

func (s *Store) ActivePromotions(_ context.Context, now time.Time) ([]shop.Promotion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []shop.Promotion
	for _, p := range s.promos {
		if p.ActiveAt(now) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *Store) Promotion(_ context.Context, code string) (*shop.Promotion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.promos[strings.ToUpper(code)]
	if !ok {
		return nil, shop.NotFound("promotion", code)
	}
	return &p, nil
}

// Engagement

func (s *Store) AddFavorite(_ context.Context, userID, productID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[productID]; !ok {
		return false, shop.NotFound("product", productID)
	}
	key := [2]int64{userID, productID}
	if _, ok := s.favorites[key]; ok {
		return false, nil
	}
	s.favorites[key] = struct{}{}
	return true, nil
}

func (s *Store) AddReview(_ context.Context, r *shop.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[r.ProductID]; !ok {
		return shop.NotFound("product", r.ProductID)
	}
	r.ID = int64(len(s.reviews) + 1)
	r.CreatedAt = s.now()
	if u, ok := s.users[r.UserID]; ok {
		r.Author = u.Name
	}
	s.reviews = append(s.reviews, *r)
	return nil
}

func (s *Store) ProductReviews(_ context.Context, productID int64, limit int) ([]shop.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []shop.Review
	for i := len(s.reviews) - 1; i >= 0; i-- {
		if s.reviews[i].ProductID == productID {
			out = append(out, s.reviews[i])
		}
	}
	return limited(out, limit), nil
}

func (s *Store) AddFeedback(_ context.Context, userID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedback = append(s.feedback, Activity{UserID: userID, Action: "feedback", Payload: text, At: s.now()})
	return nil
}

func (s *Store) LogActivity(_ context.Context, userID int64, action, payload string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activity = append(s.activity, Activity{UserID: userID, Action: action, Payload: payload, At: s.now()})
	return nil
}

// Activities returns the activity log of userID in insertion order.
func (s *Store) Activities(userID int64) []Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Activity
	for _, a := range s.activity {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out
}

// Notifications

func (s *Store) AddNotification(_ context.Context, userID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, shop.Notification{
		ID:        int64(len(s.notifications) + 1),
		UserID:    userID,
		Text:      text,
		CreatedAt: s.now(),
	})
	return nil
}

func (s *Store) UnreadNotifications(_ context.Context, userID int64) ([]shop.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []shop.Notification
	for _, n := range s.notifications {
		if n.UserID == userID && !n.Read {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *Store) MarkNotificationsRead(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		if s.notifications[i].UserID == userID {
			s.notifications[i].Read = true
		}
	}
	return nil
}
