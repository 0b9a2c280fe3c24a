package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/alunashop/tienda/internal/cart"
	"github.com/alunashop/tienda/internal/domain"
)

type OrderUC struct {
	Orders domain.OrderRepo
}

// CheckoutInput son los datos del comprador más el envío elegido.
type CheckoutInput struct {
	Email          string
	Name           string
	Phone          string
	DNI            string
	Address        string
	PostalCode     string
	Province       string
	DeliveryNotes  string
	ShippingMethod string // "envio" | "retiro"
	Shipping       *domain.ShippingOption
}

// BuildOrder arma una orden desde las líneas del carrito. El carrito no
// se toca: si el pago falla, el comprador reintenta con todo intacto.
func (uc *OrderUC) BuildOrder(ctx context.Context, items []cart.Item, in CheckoutInput) (*domain.Order, error) {
	if len(items) == 0 {
		return nil, errors.New("carrito vacío")
	}
	if strings.TrimSpace(in.Email) == "" || strings.TrimSpace(in.Name) == "" {
		return nil, errors.New("faltan datos de contacto")
	}

	o := &domain.Order{
		ID:             uuid.New(),
		Status:         domain.OrderStatusAwaitingPay,
		Email:          strings.TrimSpace(in.Email),
		Name:           strings.TrimSpace(in.Name),
		Phone:          in.Phone,
		DNI:            in.DNI,
		Address:        in.Address,
		PostalCode:     in.PostalCode,
		Province:       in.Province,
		DeliveryNotes:  in.DeliveryNotes,
		ShippingMethod: in.ShippingMethod,
	}

	subtotal := 0.0
	for _, it := range items {
		o.Items = append(o.Items, domain.OrderItem{
			ID:          uuid.New(),
			ProductID:   it.Product.ID,
			Title:       it.Product.Name,
			ModelNumber: it.Variant.ModelNumber,
			Size:        it.Variant.Size,
			Color:       it.Variant.Color,
			Tone:        it.Variant.Tone,
			Qty:         it.Quantity,
			UnitPrice:   it.Product.Price,
			KitContents: it.Selected,
		})
		subtotal += it.Subtotal()
	}
	o.Subtotal = subtotal

	if in.ShippingMethod == "envio" && in.Shipping != nil {
		o.ShippingZone = in.Shipping.Name
		o.ShippingCost = in.Shipping.Cost
	}
	o.Total = subtotal + o.ShippingCost

	if err := uc.Orders.Save(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// MarkPayment actualiza el estado de pago reportado por el gateway.
func (uc *OrderUC) MarkPayment(ctx context.Context, orderID uuid.UUID, mpStatus string) (*domain.Order, error) {
	o, err := uc.Orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	o.MPStatus = mpStatus
	switch mpStatus {
	case "approved":
		o.Status = domain.OrderStatusApproved
	case "pending", "in_process":
		o.Status = domain.OrderStatusPending
	case "rejected", "cancelled":
		o.Status = domain.OrderStatusRejected
	}
	if err := uc.Orders.Save(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}
