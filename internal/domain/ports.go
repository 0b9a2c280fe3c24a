package domain

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("no encontrado")
	// ErrStockLimit: agregar al carrito superaría el stock del producto.
	ErrStockLimit = errors.New("stock insuficiente")
	// ErrKitLimit: el kit ya está en el tope de ítems.
	ErrKitLimit = errors.New("límite de ítems del kit alcanzado")
	// ErrMinOrder: el kit no llega al monto mínimo para comprarse.
	ErrMinOrder = errors.New("monto mínimo no alcanzado")
)

type ProductFilter struct {
	Page     int
	PageSize int
	Sort     string
	Query    string
	Category string
}

type ProductRepo interface {
	List(ctx context.Context, f ProductFilter) ([]Product, int64, error)
	FindBySlug(ctx context.Context, slug string) (*Product, error)
	FindByID(ctx context.Context, id int64) (*Product, error)
	Save(ctx context.Context, p *Product) error
	// KitItems devuelve sólo ítems con stock, ordenados por categoría y nombre.
	KitItems(ctx context.Context) ([]KitItem, error)
}

type OrderRepo interface {
	Save(ctx context.Context, o *Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	List(ctx context.Context, limit int) ([]Order, error)
}

type CustomerRepo interface {
	Save(ctx context.Context, c *Customer) error
	FindByEmail(ctx context.Context, email string) (*Customer, error)
}

// PaymentGateway es el proveedor externo de pagos, visto sólo desde su
// borde: arma una preferencia y consulta el estado de un pago.
type PaymentGateway interface {
	CreatePreference(ctx context.Context, o *Order) (string, error)
	PaymentInfo(ctx context.Context, paymentID string) (status, externalRef string, err error)
}

// KVStorage es el almacenamiento durable del cliente: get/set/remove
// sincrónico de strings. Entre requests es la única copia de lo que el
// cliente tiene a medio hacer (carrito, kit); un Set que no entra
// devuelve error y no voltea la mutación en memoria.
type KVStorage interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Remove(key string)
}

type NotifyKind string

const (
	NotifySuccess NotifyKind = "success"
	NotifyError   NotifyKind = "error"
	NotifyInfo    NotifyKind = "info"
	NotifyWarning NotifyKind = "warning"
)

// Notifier recibe el resultado de cada regla de negocio (stock, mínimos,
// topes, carrito vaciado). Fire-and-forget: nadie lee un retorno.
type Notifier interface {
	Notify(kind NotifyKind, title, message string)
}

// Mailer manda el aviso de orden confirmada detrás del webhook de pago.
type Mailer interface {
	SendOrderConfirmation(o *Order) error
}
