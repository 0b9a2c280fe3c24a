package httpserver

import (
	"encoding/json"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/alunashop/tienda/internal/adapters/kv"
	"github.com/alunashop/tienda/internal/adapters/notify"
	"github.com/alunashop/tienda/internal/cart"
	"github.com/alunashop/tienda/internal/domain"
	"github.com/alunashop/tienda/internal/kit"
	"github.com/alunashop/tienda/internal/shipping"
	"github.com/alunashop/tienda/internal/usecase"
)

// Claves del storage del cliente. Estables entre recargas.
const (
	kitKey        = "aluna_kit"
	postalKey     = "aluna_postal_code"
	shipOptionKey = "aluna_shipping_option"
)

type Server struct {
	mux       *http.ServeMux
	catalog   *usecase.CatalogUC
	orders    *usecase.OrderUC
	payments  *usecase.PaymentUC
	shipping  *shipping.Resolver
	kitCfg    kit.Config
	kitIDs    *kit.IDAllocator
	customers domain.CustomerRepo
	oauthCfg  *oauth2.Config

	secret       []byte
	adminAllowed map[string]struct{}
	adminSecret  []byte
}

var (
	emailRe = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	dniRe   = regexp.MustCompile(`^\d{7,8}$`)
)

func New(catalog *usecase.CatalogUC, orders *usecase.OrderUC, payments *usecase.PaymentUC, resolver *shipping.Resolver, kitCfg kit.Config, kitIDs *kit.IDAllocator, customers domain.CustomerRepo, oauthCfg *oauth2.Config) http.Handler {
	s := &Server{
		catalog:   catalog,
		orders:    orders,
		payments:  payments,
		shipping:  resolver,
		kitCfg:    kitCfg,
		kitIDs:    kitIDs,
		customers: customers,
		oauthCfg:  oauthCfg,
		mux:       http.NewServeMux(),
	}

	sec := os.Getenv("SESSION_KEY")
	if sec == "" {
		sec = "dev-insecure"
	}
	s.secret = []byte(sec)

	allowed := map[string]struct{}{}
	if raw := os.Getenv("ADMIN_ALLOWED_EMAILS"); raw != "" {
		for _, e := range strings.Split(raw, ",") {
			e = strings.ToLower(strings.TrimSpace(e))
			if e != "" {
				allowed[e] = struct{}{}
			}
		}
	}
	s.adminAllowed = allowed
	asec := os.Getenv("JWT_ADMIN_SECRET")
	if asec == "" {
		asec = sec
	}
	s.adminSecret = []byte(asec)

	s.routes()
	return Chain(s.mux,
		RateLimit(120),
		SecurityHeaders,
		Gzip,
		RequestID,
		Recovery,
		Logging,
	)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/products", s.apiProducts)
	s.mux.HandleFunc("/api/products/", s.apiProductBySlug)

	s.mux.HandleFunc("/api/cart", s.apiCart)
	s.mux.HandleFunc("/api/cart/add", s.apiCartAdd)
	s.mux.HandleFunc("/api/cart/increase", s.apiCartIncrease)
	s.mux.HandleFunc("/api/cart/decrease", s.apiCartDecrease)
	s.mux.HandleFunc("/api/cart/remove", s.apiCartRemove)
	s.mux.HandleFunc("/api/cart/clear", s.apiCartClear)

	s.mux.HandleFunc("/api/kit", s.apiKit)
	s.mux.HandleFunc("/api/kit/items", s.apiKitItems)
	s.mux.HandleFunc("/api/kit/name", s.apiKitName)
	s.mux.HandleFunc("/api/kit/add", s.apiKitAdd)
	s.mux.HandleFunc("/api/kit/quantity", s.apiKitQuantity)
	s.mux.HandleFunc("/api/kit/next", s.apiKitNext)
	s.mux.HandleFunc("/api/kit/prev", s.apiKitPrev)
	s.mux.HandleFunc("/api/kit/cancel", s.apiKitCancel)
	s.mux.HandleFunc("/api/kit/finalize", s.apiKitFinalize)

	s.mux.HandleFunc("/api/shipping/quote", s.apiShippingQuote)
	s.mux.HandleFunc("/api/shipping/pickup", s.apiShippingPickup)

	s.mux.HandleFunc("/api/checkout", s.apiCheckout)
	s.mux.HandleFunc("/pay/", s.handlePayReturn)
	s.mux.HandleFunc("/webhooks/mp", s.webhookMP)

	s.mux.HandleFunc("/auth/google/login", s.handleGoogleLogin)
	s.mux.HandleFunc("/auth/google/callback", s.handleGoogleCallback)
	s.mux.HandleFunc("/logout", s.handleLogout)

	s.mux.HandleFunc("/admin/login", s.handleAdminLogin)
	s.mux.HandleFunc("/admin/orders", s.handleAdminOrders)
	s.mux.HandleFunc("/admin/export/orders", s.handleAdminExportOrders)
	s.mux.HandleFunc("/admin/products/describe", s.handleAdminDescribe)
}

// session junta lo que cada handler de carrito/kit necesita por request:
// storage con cookies firmadas, colector de avisos y el carrito ya
// rehidratado.
type session struct {
	storage  *kv.CookieStore
	notices  *notify.Collector
	notifier domain.Notifier
	cart     *cart.Store
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) *session {
	storage := kv.NewCookieStore(w, r, s.secret)
	collector := &notify.Collector{}
	sink := notify.Tee(collector, notify.Log{})
	find := func(id int64) (domain.Product, bool) {
		p, err := s.catalog.GetByID(r.Context(), id)
		if err != nil || p == nil {
			return domain.Product{}, false
		}
		return *p, true
	}
	return &session{
		storage:  storage,
		notices:  collector,
		notifier: sink,
		cart:     cart.Load(storage, sink, find),
	}
}

func (s *Server) kitBuilder(ss *session) *kit.Builder {
	raw, ok := ss.storage.Get(kitKey)
	if !ok || raw == "" {
		return kit.NewBuilder(s.kitCfg, s.kitIDs, ss.notifier)
	}
	var st kit.State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		log.Warn().Err(err).Msg("estado de kit ilegible, se descarta")
		return kit.NewBuilder(s.kitCfg, s.kitIDs, ss.notifier)
	}
	return kit.Restore(s.kitCfg, s.kitIDs, ss.notifier, st)
}

func (s *Server) saveKit(ss *session, b *kit.Builder) {
	bts, err := json.Marshal(b.Snapshot())
	if err != nil {
		log.Error().Err(err).Msg("serializar kit")
		return
	}
	if err := ss.storage.Set(kitKey, string(bts)); err != nil {
		log.Warn().Err(err).Msg("persistir kit")
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// --- Catálogo ---

func (s *Server) apiProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", 405)
		return
	}
	qv := r.URL.Query()
	page, _ := strconv.Atoi(qv.Get("page"))
	if page < 1 {
		page = 1
	}
	f := domain.ProductFilter{
		Page:     page,
		PageSize: 24,
		Sort:     qv.Get("sort"),
		Query:    qv.Get("q"),
		Category: qv.Get("category"),
	}
	list, total, err := s.catalog.List(r.Context(), f)
	if err != nil {
		log.Error().Err(err).Msg("listar productos")
		// degradar a lista vacía, nunca tirar el error al cliente
		writeJSON(w, 200, map[string]any{"products": []domain.Product{}, "total": 0, "page": page})
		return
	}
	writeJSON(w, 200, map[string]any{"products": list, "total": total, "page": page})
}

func (s *Server) apiProductBySlug(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", 405)
		return
	}
	slug := strings.TrimPrefix(r.URL.Path, "/api/products/")
	if slug == "" {
		http.NotFound(w, r)
		return
	}
	p, err := s.catalog.GetBySlug(r.Context(), slug)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, 200, p)
}

// --- Carrito ---

type cartLineView struct {
	Product      domain.Product           `json:"product"`
	Variant      domain.VariantSelection  `json:"variant"`
	VariantLabel string                   `json:"variant_label,omitempty"`
	Quantity     int                      `json:"quantity"`
	Subtotal     float64                  `json:"subtotal"`
	Selected     []domain.SelectedKitItem `json:"selected_items,omitempty"`
}

func cartView(ss *session) map[string]any {
	items := ss.cart.Items()
	lines := make([]cartLineView, 0, len(items))
	for _, it := range items {
		lines = append(lines, cartLineView{
			Product:      it.Product,
			Variant:      it.Variant,
			VariantLabel: cart.VariantLabel(it.Variant),
			Quantity:     it.Quantity,
			Subtotal:     it.Subtotal(),
			Selected:     it.Selected,
		})
	}
	return map[string]any{
		"items":       lines,
		"total_items": ss.cart.TotalItems(),
		"total_price": ss.cart.TotalPrice(),
		"notices":     ss.notices.Notices,
	}
}

func (s *Server) apiCart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", 405)
		return
	}
	ss := s.session(w, r)
	writeJSON(w, 200, cartView(ss))
}

type cartLineReq struct {
	ProductID int64                    `json:"product_id"`
	Slug      string                   `json:"slug"`
	Quantity  int                      `json:"quantity"`
	Variant   domain.VariantSelection  `json:"variant"`
	Selected  []domain.SelectedKitItem `json:"selected_items"`
}

func decodeLineReq(r *http.Request) (cartLineReq, error) {
	var req cartLineReq
	err := json.NewDecoder(r.Body).Decode(&req)
	return req, err
}

func (s *Server) apiCartAdd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	req, err := decodeLineReq(r)
	if err != nil {
		http.Error(w, "json", 400)
		return
	}
	var p *domain.Product
	if req.Slug != "" {
		p, err = s.catalog.GetBySlug(r.Context(), req.Slug)
	} else {
		p, err = s.catalog.GetByID(r.Context(), req.ProductID)
	}
	if err != nil {
		http.Error(w, "producto", 404)
		return
	}
	ss := s.session(w, r)
	addErr := ss.cart.Add(*p, req.Quantity, req.Variant, req.Selected)
	view := cartView(ss)
	if addErr != nil {
		view["error"] = "stock"
		writeJSON(w, 409, view)
		return
	}
	writeJSON(w, 200, view)
}

func (s *Server) apiCartIncrease(w http.ResponseWriter, r *http.Request) {
	s.cartMutation(w, r, func(ss *session, req cartLineReq) {
		ss.cart.Increase(req.ProductID, req.Variant, req.Selected)
	})
}

func (s *Server) apiCartDecrease(w http.ResponseWriter, r *http.Request) {
	s.cartMutation(w, r, func(ss *session, req cartLineReq) {
		ss.cart.Decrease(req.ProductID, req.Variant, req.Selected)
	})
}

func (s *Server) apiCartRemove(w http.ResponseWriter, r *http.Request) {
	s.cartMutation(w, r, func(ss *session, req cartLineReq) {
		ss.cart.Remove(req.ProductID, req.Variant, req.Selected)
	})
}

func (s *Server) cartMutation(w http.ResponseWriter, r *http.Request, fn func(*session, cartLineReq)) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	req, err := decodeLineReq(r)
	if err != nil {
		http.Error(w, "json", 400)
		return
	}
	ss := s.session(w, r)
	fn(ss, req)
	writeJSON(w, 200, cartView(ss))
}

func (s *Server) apiCartClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	ss := s.session(w, r)
	ss.cart.Clear()
	writeJSON(w, 200, cartView(ss))
}

// --- Armador de kits ---

func kitView(ss *session, b *kit.Builder) map[string]any {
	t := b.Totals()
	return map[string]any{
		"name":         b.Name(),
		"step":         b.Step().String(),
		"can_continue": b.CanContinue(),
		"selections":   b.Selections(),
		"totals":       t,
		"notices":      ss.notices.Notices,
	}
}

func (s *Server) apiKit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", 405)
		return
	}
	ss := s.session(w, r)
	writeJSON(w, 200, kitView(ss, s.kitBuilder(ss)))
}

func (s *Server) apiKitItems(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", 405)
		return
	}
	writeJSON(w, 200, map[string]any{"items": s.catalog.KitItems(r.Context())})
}

func (s *Server) apiKitName(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "json", 400)
		return
	}
	ss := s.session(w, r)
	b := s.kitBuilder(ss)
	b.SetName(req.Name)
	s.saveKit(ss, b)
	writeJSON(w, 200, kitView(ss, b))
}

func (s *Server) apiKitAdd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	var req struct {
		ItemID int64 `json:"item_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "json", 400)
		return
	}
	var item *domain.KitItem
	for _, it := range s.catalog.KitItems(r.Context()) {
		if it.ID == req.ItemID {
			item = &it
			break
		}
	}
	if item == nil {
		http.Error(w, "item", 404)
		return
	}
	ss := s.session(w, r)
	b := s.kitBuilder(ss)
	if err := b.AddItem(*item); err != nil {
		view := kitView(ss, b)
		view["error"] = "limite"
		writeJSON(w, 409, view)
		return
	}
	s.saveKit(ss, b)
	writeJSON(w, 200, kitView(ss, b))
}

func (s *Server) apiKitQuantity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	var req struct {
		ItemID   int64 `json:"item_id"`
		Quantity int   `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "json", 400)
		return
	}
	ss := s.session(w, r)
	b := s.kitBuilder(ss)
	if err := b.SetQuantity(req.ItemID, req.Quantity); err != nil {
		view := kitView(ss, b)
		view["error"] = "limite"
		writeJSON(w, 409, view)
		return
	}
	s.saveKit(ss, b)
	writeJSON(w, 200, kitView(ss, b))
}

func (s *Server) apiKitNext(w http.ResponseWriter, r *http.Request) {
	s.kitStep(w, r, func(b *kit.Builder) bool { return b.Next() })
}

func (s *Server) apiKitPrev(w http.ResponseWriter, r *http.Request) {
	s.kitStep(w, r, func(b *kit.Builder) bool { return b.Prev() })
}

func (s *Server) kitStep(w http.ResponseWriter, r *http.Request, fn func(*kit.Builder) bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	ss := s.session(w, r)
	b := s.kitBuilder(ss)
	moved := fn(b)
	s.saveKit(ss, b)
	view := kitView(ss, b)
	view["moved"] = moved
	writeJSON(w, 200, view)
}

// apiKitCancel descarta el kit a medio armar. Nada parcial persiste.
func (s *Server) apiKitCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	ss := s.session(w, r)
	ss.storage.Remove(kitKey)
	b := kit.NewBuilder(s.kitCfg, s.kitIDs, ss.notifier)
	writeJSON(w, 200, kitView(ss, b))
}

func (s *Server) apiKitFinalize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	ss := s.session(w, r)
	b := s.kitBuilder(ss)
	if err := b.Finalize(ss.cart); err != nil {
		view := kitView(ss, b)
		view["error"] = "minimo"
		writeJSON(w, 409, view)
		return
	}
	s.saveKit(ss, b)
	view := kitView(ss, b)
	view["cart"] = cartView(ss)
	writeJSON(w, 200, view)
}

// --- Envío ---

// apiShippingQuote resuelve el código postal y cachea el último resultado
// en el storage del cliente para pre-cargar la próxima visita. Un código
// vacío invalida el caché de inmediato.
func (s *Server) apiShippingQuote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", 405)
		return
	}
	ss := s.session(w, r)
	code := strings.TrimSpace(r.URL.Query().Get("postal_code"))
	if code == "" {
		ss.storage.Remove(postalKey)
		ss.storage.Remove(shipOptionKey)
		writeJSON(w, 400, map[string]any{"error": "código postal vacío"})
		return
	}
	opt := s.shipping.Calculate(code)
	if opt == nil {
		ss.storage.Remove(postalKey)
		ss.storage.Remove(shipOptionKey)
		writeJSON(w, 422, map[string]any{"error": "código postal inválido"})
		return
	}
	_ = ss.storage.Set(postalKey, strings.ToUpper(code))
	if b, err := json.Marshal(opt); err == nil {
		_ = ss.storage.Set(shipOptionKey, string(b))
	}
	writeJSON(w, 200, map[string]any{"option": opt, "pickup": s.shipping.Pickup()})
}

func (s *Server) apiShippingPickup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", 405)
		return
	}
	writeJSON(w, 200, s.shipping.Pickup())
}

// --- Checkout ---

type checkoutReq struct {
	Email          string `json:"email"`
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	DNI            string `json:"dni"`
	Address        string `json:"address"`
	PostalCode     string `json:"postal_code"`
	Province       string `json:"province"`
	DeliveryNotes  string `json:"delivery_notes"`
	ShippingMethod string `json:"shipping_method"`
}

func (s *Server) apiCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	var req checkoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "json", 400)
		return
	}
	if !emailRe.MatchString(req.Email) || strings.TrimSpace(req.Name) == "" {
		writeJSON(w, 400, map[string]any{"error": "datos de contacto incompletos"})
		return
	}
	if req.ShippingMethod == "" {
		req.ShippingMethod = "retiro"
	}

	ss := s.session(w, r)
	if ss.cart.Len() == 0 {
		writeJSON(w, 400, map[string]any{"error": "carrito vacío"})
		return
	}

	var opt *domain.ShippingOption
	if req.ShippingMethod == "envio" {
		if req.Address == "" || req.Phone == "" || !dniRe.MatchString(req.DNI) {
			writeJSON(w, 400, map[string]any{"error": "faltan datos de envío"})
			return
		}
		opt = s.shipping.Calculate(req.PostalCode)
		if opt == nil {
			writeJSON(w, 422, map[string]any{"error": "código postal inválido"})
			return
		}
		_ = ss.storage.Set(postalKey, strings.ToUpper(strings.TrimSpace(req.PostalCode)))
		if b, err := json.Marshal(opt); err == nil {
			_ = ss.storage.Set(shipOptionKey, string(b))
		}
	}

	o, err := s.orders.BuildOrder(r.Context(), ss.cart.Items(), usecase.CheckoutInput{
		Email:          req.Email,
		Name:           req.Name,
		Phone:          req.Phone,
		DNI:            req.DNI,
		Address:        req.Address,
		PostalCode:     req.PostalCode,
		Province:       req.Province,
		DeliveryNotes:  req.DeliveryNotes,
		ShippingMethod: req.ShippingMethod,
		Shipping:       opt,
	})
	if err != nil {
		log.Error().Err(err).Msg("armar orden")
		writeJSON(w, 500, map[string]any{"error": "no pudimos crear la orden"})
		return
	}

	initPoint, err := s.payments.StartCheckout(r.Context(), o)
	if err != nil {
		// el carrito queda intacto para reintentar
		log.Error().Err(err).Str("order", o.ID.String()).Msg("crear preferencia")
		writeJSON(w, 502, map[string]any{
			"error":    "no pudimos iniciar el pago",
			"fallback": "Escribinos a ventas@aluna.com.ar citando la orden " + o.ID.String(),
			"order_id": o.ID.String(),
		})
		return
	}
	writeJSON(w, 200, map[string]any{"order_id": o.ID.String(), "init_point": initPoint})
}

// handlePayReturn atiende la vuelta desde el gateway. Con el pago
// aprobado recién ahí se vacía el carrito.
func (s *Server) handlePayReturn(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/pay/")
	orderID, err := uuid.Parse(idStr)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	o, err := s.orders.Orders.FindByID(r.Context(), orderID)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	ss := s.session(w, r)
	if o.Status == domain.OrderStatusApproved {
		ss.cart.Clear()
	}
	writeJSON(w, 200, map[string]any{
		"order_id": o.ID.String(),
		"status":   o.Status,
		"total":    o.Total,
		"notices":  ss.notices.Notices,
	})
}

func (s *Server) webhookMP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	qv := r.URL.Query()
	topic := qv.Get("type")
	if topic == "" {
		topic = qv.Get("topic")
	}
	paymentID := qv.Get("data.id")
	if paymentID == "" {
		paymentID = qv.Get("id")
	}
	if topic != "payment" || paymentID == "" {
		w.WriteHeader(200)
		return
	}
	if err := s.payments.HandlePaymentEvent(r.Context(), paymentID); err != nil {
		log.Error().Err(err).Str("payment", paymentID).Msg("webhook mp")
	}
	w.WriteHeader(200)
}
