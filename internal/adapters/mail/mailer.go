// Package mail manda los avisos de orden confirmada por SMTP.
package mail

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/alunashop/tienda/internal/domain"
)

type Mailer struct {
	host string
	port int
	user string
	pass string
	from string
	bcc  string
}

func New(host string, port int, user, pass, from, bcc string) *Mailer {
	return &Mailer{host: host, port: port, user: user, pass: pass, from: from, bcc: bcc}
}

// Configured indica si hay SMTP cargado; sin host el mailer queda mudo.
func (m *Mailer) Configured() bool { return m != nil && m.host != "" }

func (m *Mailer) SendOrderConfirmation(o *domain.Order) error {
	if !m.Configured() {
		return errors.New("smtp sin configurar")
	}
	if o == nil || o.Email == "" {
		return errors.New("orden sin email")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hola %s,\n\n¡Gracias por tu compra en Aluna!\n\n", o.Name)
	fmt.Fprintf(&b, "Orden %s\n\n", o.ID.String())
	for _, it := range o.Items {
		fmt.Fprintf(&b, "  %d x %s — $%.2f\n", it.Qty, it.Title, it.UnitPrice*float64(it.Qty))
		for _, k := range it.KitContents {
			fmt.Fprintf(&b, "      incluye %d x %s\n", k.Qty(), k.Name)
		}
	}
	if o.ShippingCost > 0 {
		fmt.Fprintf(&b, "  Envío (%s) — $%.2f\n", o.ShippingZone, o.ShippingCost)
	}
	if o.DiscountAmount > 0 {
		fmt.Fprintf(&b, "  Descuento — -$%.2f\n", o.DiscountAmount)
	}
	fmt.Fprintf(&b, "\nTotal: $%.2f\n", o.Total)
	if o.ShippingMethod == "retiro" {
		b.WriteString("\nRetirás por el local una vez que te avisemos que está listo.\n")
	} else if o.Address != "" {
		fmt.Fprintf(&b, "\nEnviamos a: %s, CP %s, %s\n", o.Address, o.PostalCode, o.Province)
	}
	b.WriteString("\nCualquier duda, respondé este mail.\n")

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", o.Email)
	if m.bcc != "" {
		msg.SetHeader("Bcc", m.bcc)
	}
	msg.SetHeader("Subject", "Confirmamos tu compra — Aluna")
	msg.SetBody("text/plain", b.String())

	d := gomail.NewDialer(m.host, m.port, m.user, m.pass)
	return d.DialAndSend(msg)
}
