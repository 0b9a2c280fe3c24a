// Package shipping resuelve código postal → zona de envío con tarifas
// fijas, más la alternativa de retiro gratis en el local.
package shipping

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/alunashop/tienda/internal/domain"
)

// Acepta 4-5 dígitos o el formato argentino CPA: letra + 4 dígitos + 3
// letras, sin distinguir mayúsculas.
var postalRe = regexp.MustCompile(`^(\d{4,5}|[A-Za-z]\d{4}[A-Za-z]{3})$`)

func ValidatePostalCode(code string) bool {
	return postalRe.MatchString(strings.TrimSpace(code))
}

// Resolver busca el código postal en una tabla ordenada de zonas. Gana el
// primer match; sin match, devuelve la opción estándar de fallback en vez
// de nil: un código válido siempre tiene costo de envío.
type Resolver struct {
	zones    []domain.ShippingZone
	fallback domain.ShippingOption
	pickup   domain.PickupInfo
}

func NewResolver(zones []domain.ShippingZone) *Resolver {
	return &Resolver{
		zones: zones,
		fallback: domain.ShippingOption{
			ID:          "standard-shipping",
			Name:        "Envío estándar",
			Cost:        7900,
			ETA:         "5 a 8 días hábiles",
			Description: "Correo a todo el país",
		},
		pickup: domain.PickupInfo{
			ID:       "pickup-local",
			Name:     "Retiro en el local",
			Cost:     0,
			Address:  "Av. Pellegrini 1234, Rosario",
			Hours:    "Lunes a viernes de 10 a 18, sábados de 10 a 13",
			PrepTime: "Listo en 24 hs hábiles",
		},
	}
}

// DefaultZones es la tabla de zonas de referencia del negocio. El orden
// importa: la búsqueda es lineal y corta en el primer match, así que los
// códigos no deberían repetirse entre zonas.
func DefaultZones() []domain.ShippingZone {
	return []domain.ShippingZone{
		{
			Name:        "CABA Centro",
			PostalCodes: codeRange(1000, 1199),
			Cost:        4500,
			ETA:         "24 a 48 hs",
			Description: "Mensajería propia",
		},
		{
			Name:        "CABA",
			PostalCodes: codeRange(1200, 1499),
			Cost:        5200,
			ETA:         "48 hs",
			Description: "Mensajería propia",
		},
		{
			Name:        "GBA",
			PostalCodes: codeRange(1600, 1900),
			Cost:        6400,
			ETA:         "2 a 4 días hábiles",
			Description: "Correo zona GBA",
		},
		{
			Name:        "Rosario y alrededores",
			PostalCodes: codeRange(2000, 2152),
			Cost:        3900,
			ETA:         "24 hs",
			Description: "Cadete local",
		},
	}
}

// Calculate resuelve el código postal a una opción de envío. Devuelve nil
// sólo cuando el código no valida; un código válido sin zona cae en la
// opción estándar.
func (r *Resolver) Calculate(code string) *domain.ShippingOption {
	if !ValidatePostalCode(code) {
		return nil
	}
	normalized := strings.ToUpper(strings.TrimSpace(code))
	for _, z := range r.zones {
		for _, pc := range z.PostalCodes {
			if pc == normalized {
				opt := domain.ShippingOption{
					ID:          "zone-" + slugify(z.Name),
					Name:        z.Name,
					Cost:        z.Cost,
					ETA:         z.ETA,
					Description: z.Description,
				}
				return &opt
			}
		}
	}
	opt := r.fallback
	return &opt
}

// Pickup devuelve el retiro en el local. No depende del código postal.
func (r *Resolver) Pickup() domain.PickupInfo {
	return r.pickup
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "-")
	return s
}

func codeRange(from, to int) []string {
	out := make([]string, 0, to-from+1)
	for c := from; c <= to; c++ {
		out = append(out, fmt.Sprintf("%04d", c))
	}
	return out
}
