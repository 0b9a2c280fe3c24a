package domain

import "strings"

// VariantSelection es la variante elegida para UNA línea del carrito.
// Va aparte del Product: el catálogo nunca se muta para guardar la
// elección del comprador. Campo vacío = sin variante en ese eje.
type VariantSelection struct {
	ModelNumber string `json:"model_number,omitempty"`
	Size        string `json:"size,omitempty"`
	Color       string `json:"color,omitempty"`
	Tone        string `json:"tone,omitempty"`
}

// Normalize recorta espacios; el string vacío es la única representación
// canónica de "sin valor", así ausente y "" comparan iguales.
func (v VariantSelection) Normalize() VariantSelection {
	return VariantSelection{
		ModelNumber: strings.TrimSpace(v.ModelNumber),
		Size:        strings.TrimSpace(v.Size),
		Color:       strings.TrimSpace(v.Color),
		Tone:        strings.TrimSpace(v.Tone),
	}
}

func (v VariantSelection) IsZero() bool {
	n := v.Normalize()
	return n.ModelNumber == "" && n.Size == "" && n.Color == "" && n.Tone == ""
}

// SelectedKitItem es un sub-ítem ya resuelto dentro de una línea compuesta.
// La cantidad ausente vale 1. Sin precio: el total del kit ya quedó en el
// precio del producto padre.
type SelectedKitItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity,omitempty"`
	Color    string `json:"color,omitempty"`
	Size     string `json:"size,omitempty"`
}

func (s SelectedKitItem) Qty() int {
	if s.Quantity <= 0 {
		return 1
	}
	return s.Quantity
}
