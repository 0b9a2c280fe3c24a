package mercadopago

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/alunashop/tienda/internal/domain"
)

type Gateway struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

func NewGateway(token, baseURL string) *Gateway {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &Gateway{token: token, baseURL: baseURL, httpClient: &http.Client{Timeout: 10 * time.Second}}
}

type mpItem struct {
	ID         string  `json:"id,omitempty"`
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id"`
}

type mpPrefReq struct {
	Items               []mpItem          `json:"items"`
	Payer               map[string]string `json:"payer,omitempty"`
	BackURLs            map[string]string `json:"back_urls,omitempty"`
	AutoReturn          string            `json:"auto_return,omitempty"`
	NotificationURL     string            `json:"notification_url,omitempty"`
	StatementDescriptor string            `json:"statement_descriptor,omitempty"`
	ExternalReference   string            `json:"external_reference,omitempty"`
}

type mpPrefResp struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

type mpPaymentResp struct {
	ID                int64  `json:"id"`
	Status            string `json:"status"`
	ExternalReference string `json:"external_reference"`
}

func signExternal(orderID string) string {
	key := os.Getenv("SECRET_KEY")
	if key == "" {
		key = "dev"
	}
	h := hmac.New(sha256.New, []byte(key))
	h.Write([]byte(orderID))
	return hex.EncodeToString(h.Sum(nil))[:24]
}

// CreatePreference arma la preferencia de pago con las líneas de la
// orden, el envío como ítem aparte y el descuento como ítem negativo.
// Devuelve la URL de redirección (init point).
func (g *Gateway) CreatePreference(ctx context.Context, o *domain.Order) (string, error) {
	if g.token == "" {
		return "", errors.New("MP token faltante (MP_ACCESS_TOKEN)")
	}
	if o == nil {
		return "", errors.New("orden nil")
	}

	items := make([]mpItem, 0, len(o.Items)+2)
	subtotal := 0.0
	for _, it := range o.Items {
		items = append(items, mpItem{
			ID:         fmt.Sprintf("%d", it.ProductID),
			Title:      it.Title,
			Quantity:   it.Qty,
			UnitPrice:  it.UnitPrice,
			CurrencyID: "ARS",
		})
		subtotal += it.UnitPrice * float64(it.Qty)
	}
	if o.ShippingCost > 0 {
		label := "Envío"
		if o.ShippingZone != "" {
			label = "Envío (" + o.ShippingZone + ")"
		}
		items = append(items, mpItem{Title: label, Quantity: 1, UnitPrice: o.ShippingCost, CurrencyID: "ARS"})
	}
	if o.DiscountAmount > 0 {
		items = append(items, mpItem{Title: "Descuento", Quantity: 1, UnitPrice: -o.DiscountAmount, CurrencyID: "ARS"})
	}
	calcTotal := subtotal + o.ShippingCost - o.DiscountAmount
	if diff := o.Total - calcTotal; diff > 0.01 || diff < -0.01 {
		o.Total = calcTotal
	}

	// external_reference firmado: idempotente por orden y verificable en
	// el webhook.
	extRef := fmt.Sprintf("%s|%s", o.ID.String(), signExternal(o.ID.String()))

	// Credenciales de producción rechazan auto_return con back_urls en
	// localhost.
	autoReturn := "approved"
	if !strings.HasPrefix(g.token, "TEST-") && strings.Contains(g.baseURL, "localhost") {
		autoReturn = ""
	}

	payload := mpPrefReq{
		Items: items,
		Payer: map[string]string{"email": o.Email},
		BackURLs: map[string]string{
			"success": g.baseURL + "/pay/" + o.ID.String(),
			"pending": g.baseURL + "/pay/" + o.ID.String(),
			"failure": g.baseURL + "/pay/" + o.ID.String(),
		},
		AutoReturn:          autoReturn,
		NotificationURL:     g.baseURL + "/webhooks/mp",
		StatementDescriptor: "ALUNA",
		ExternalReference:   extRef,
	}

	buf, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("serializar payload MP: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.mercadopago.com/checkout/preferences", bytes.NewReader(buf))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.token)
	httpReq.Header.Set("Content-Type", "application/json")
	res, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("conexión con MercadoPago: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)
		var mpError struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(body, &mpError); err == nil && mpError.Message != "" {
			if res.StatusCode == 401 || res.StatusCode == 403 {
				return "", fmt.Errorf("credenciales de MercadoPago inválidas (status %d): %s", res.StatusCode, mpError.Message)
			}
			return "", fmt.Errorf("error de MercadoPago (status %d): %s", res.StatusCode, mpError.Message)
		}
		return "", fmt.Errorf("mp pref status %d: %s", res.StatusCode, string(body))
	}
	var pref mpPrefResp
	if err := json.NewDecoder(res.Body).Decode(&pref); err != nil {
		return "", err
	}
	if pref.ID == "" {
		return "", errors.New("respuesta MP incompleta")
	}
	initPoint := pref.InitPoint
	appEnv := strings.ToLower(os.Getenv("APP_ENV"))
	if strings.HasPrefix(g.token, "TEST-") && appEnv != "production" && appEnv != "prod" && pref.SandboxInitPoint != "" {
		initPoint = pref.SandboxInitPoint
	}
	o.MPPreferenceID = pref.ID
	return initPoint, nil
}

// PaymentInfo consulta estado y external_reference de un pago.
func (g *Gateway) PaymentInfo(ctx context.Context, paymentID string) (string, string, error) {
	if g.token == "" || paymentID == "" {
		return "", "", errors.New("params")
	}
	url := "https://api.mercadopago.com/v1/payments/" + paymentID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Authorization", "Bearer "+g.token)
	res, err := g.httpClient.Do(req)
	if err != nil {
		return "", "", err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		b, _ := io.ReadAll(res.Body)
		return "", "", fmt.Errorf("mp payment status %d: %s", res.StatusCode, string(b))
	}
	var pr mpPaymentResp
	if err := json.NewDecoder(res.Body).Decode(&pr); err != nil {
		return "", "", err
	}
	return pr.Status, pr.ExternalReference, nil
}

// VerifyExternalRef valida la firma del external_reference que vuelve en
// el webhook y devuelve el id de orden.
func VerifyExternalRef(ext string) (string, bool) {
	parts := strings.Split(ext, "|")
	if len(parts) != 2 {
		return "", false
	}
	orderID, sig := parts[0], parts[1]
	return orderID, hmac.Equal([]byte(signExternal(orderID)), []byte(sig))
}
