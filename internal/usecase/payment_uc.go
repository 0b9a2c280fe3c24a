package usecase

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/alunashop/tienda/internal/adapters/payments/mercadopago"
	"github.com/alunashop/tienda/internal/domain"
)

type PaymentUC struct {
	Orders  domain.OrderRepo
	Gateway domain.PaymentGateway
	Mailer  domain.Mailer
}

// StartCheckout crea la preferencia de pago y devuelve la URL de
// redirección. La orden queda con el id de preferencia guardado.
func (uc *PaymentUC) StartCheckout(ctx context.Context, o *domain.Order) (string, error) {
	if o == nil {
		return "", errors.New("orden nil")
	}
	initPoint, err := uc.Gateway.CreatePreference(ctx, o)
	if err != nil {
		return "", err
	}
	if err := uc.Orders.Save(ctx, o); err != nil {
		log.Error().Err(err).Str("order", o.ID.String()).Msg("guardar preferencia")
	}
	return initPoint, nil
}

// HandlePaymentEvent procesa un aviso de pago del webhook: consulta el
// pago, verifica la firma del external_reference, actualiza la orden y
// manda el mail de confirmación una sola vez.
func (uc *PaymentUC) HandlePaymentEvent(ctx context.Context, paymentID string) error {
	status, extRef, err := uc.Gateway.PaymentInfo(ctx, paymentID)
	if err != nil {
		return err
	}
	orderIDStr, ok := mercadopago.VerifyExternalRef(extRef)
	if !ok {
		return errors.New("external_reference con firma inválida")
	}
	orderID, err := uuid.Parse(orderIDStr)
	if err != nil {
		return err
	}
	o, err := uc.Orders.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	o.MPStatus = status
	switch status {
	case "approved":
		o.Status = domain.OrderStatusApproved
	case "pending", "in_process":
		o.Status = domain.OrderStatusPending
	case "rejected", "cancelled":
		o.Status = domain.OrderStatusRejected
	}

	notify := o.Status == domain.OrderStatusApproved && !o.Notified
	if notify {
		o.Notified = true
	}
	if err := uc.Orders.Save(ctx, o); err != nil {
		return err
	}
	if notify && uc.Mailer != nil {
		go func(ord domain.Order) {
			if err := uc.Mailer.SendOrderConfirmation(&ord); err != nil {
				log.Warn().Err(err).Str("order", ord.ID.String()).Msg("mail de confirmación")
			}
		}(*o)
	}
	return nil
}
