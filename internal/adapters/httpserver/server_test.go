package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alunashop/tienda/internal/domain"
	"github.com/alunashop/tienda/internal/kit"
	"github.com/alunashop/tienda/internal/shipping"
	"github.com/alunashop/tienda/internal/usecase"
)

type productRepoFake struct {
	products map[int64]domain.Product
}

func (r *productRepoFake) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, int64, error) {
	out := make([]domain.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p)
	}
	return out, int64(len(out)), nil
}

func (r *productRepoFake) FindBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	for _, p := range r.products {
		if p.Slug == slug {
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *productRepoFake) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	if p, ok := r.products[id]; ok {
		return &p, nil
	}
	return nil, domain.ErrNotFound
}

func (r *productRepoFake) Save(ctx context.Context, p *domain.Product) error { return nil }

func (r *productRepoFake) KitItems(ctx context.Context) ([]domain.KitItem, error) {
	return []domain.KitItem{}, nil
}

type orderRepoFake struct {
	orders map[uuid.UUID]*domain.Order
}

func (r *orderRepoFake) Save(ctx context.Context, o *domain.Order) error {
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *orderRepoFake) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	if o, ok := r.orders[id]; ok {
		return o, nil
	}
	return nil, domain.ErrNotFound
}

func (r *orderRepoFake) List(ctx context.Context, limit int) ([]domain.Order, error) {
	return nil, nil
}

type customerRepoFake struct{}

func (customerRepoFake) Save(ctx context.Context, c *domain.Customer) error { return nil }
func (customerRepoFake) FindByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	return nil, domain.ErrNotFound
}

type gatewayFake struct {
	initPoint string
	err       error
}

func (g *gatewayFake) CreatePreference(ctx context.Context, o *domain.Order) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return g.initPoint, nil
}

func (g *gatewayFake) PaymentInfo(ctx context.Context, paymentID string) (string, string, error) {
	return "", "", errors.New("sin pagos en este fake")
}

func newTestServer(t *testing.T, gw domain.PaymentGateway) (http.Handler, *orderRepoFake) {
	t.Helper()
	products := &productRepoFake{products: map[int64]domain.Product{
		7: {ID: 7, Slug: "serum-niacinamida", Name: "Sérum de niacinamida", Price: 14500, Active: true},
	}}
	ordersRepo := &orderRepoFake{orders: map[uuid.UUID]*domain.Order{}}
	catalog := &usecase.CatalogUC{Products: products}
	orders := &usecase.OrderUC{Orders: ordersRepo}
	payments := &usecase.PaymentUC{Orders: ordersRepo, Gateway: gw}
	cfg := kit.DefaultConfig()
	h := New(catalog, orders, payments, shipping.NewResolver(shipping.DefaultZones()),
		cfg, kit.NewIDAllocator(cfg.IDBase), customerRepoFake{}, nil)
	return h, ordersRepo
}

func do(t *testing.T, h http.Handler, method, path, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestCheckoutGatewayFailureKeepsCartIntact(t *testing.T) {
	h, _ := newTestServer(t, &gatewayFake{err: errors.New("mp caído")})

	w := do(t, h, "POST", "/api/cart/add", `{"product_id":7,"quantity":2}`, nil)
	require.Equal(t, 200, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	w = do(t, h, "POST", "/api/checkout",
		`{"email":"ana@example.com","name":"Ana López","shipping_method":"retiro"}`, cookies)
	require.Equal(t, 502, w.Code)

	var resp struct {
		Error    string `json:"error"`
		Fallback string `json:"fallback"`
		OrderID  string `json:"order_id"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "no pudimos iniciar el pago", resp.Error)
	assert.Contains(t, resp.Fallback, "ventas@aluna.com.ar")
	require.NotEmpty(t, resp.OrderID)
	assert.Contains(t, resp.Fallback, resp.OrderID, "el fallback manual cita la orden creada")

	// el comprador reintenta con el carrito tal como estaba
	w = do(t, h, "GET", "/api/cart", "", cookies)
	require.Equal(t, 200, w.Code)
	var view struct {
		TotalItems int     `json:"total_items"`
		TotalPrice float64 `json:"total_price"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&view))
	assert.Equal(t, 2, view.TotalItems)
	assert.Equal(t, 29000.0, view.TotalPrice)
}

func TestCheckoutRedirectsToGateway(t *testing.T) {
	h, ordersRepo := newTestServer(t, &gatewayFake{initPoint: "https://mp.example/init/abc"})

	w := do(t, h, "POST", "/api/cart/add", `{"slug":"serum-niacinamida"}`, nil)
	require.Equal(t, 200, w.Code)
	cookies := w.Result().Cookies()

	w = do(t, h, "POST", "/api/checkout",
		`{"email":"ana@example.com","name":"Ana López","shipping_method":"retiro"}`, cookies)
	require.Equal(t, 200, w.Code)

	var resp struct {
		OrderID   string `json:"order_id"`
		InitPoint string `json:"init_point"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "https://mp.example/init/abc", resp.InitPoint)

	id, err := uuid.Parse(resp.OrderID)
	require.NoError(t, err)
	o, err := ordersRepo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusAwaitingPay, o.Status)
	assert.Equal(t, 14500.0, o.Total)
}
