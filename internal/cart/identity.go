// Package cart implementa el carrito de compras: el modelo de identidad
// de líneas con variantes y el store con sus invariantes de merge,
// stock y persistencia.
package cart

import (
	"strconv"
	"strings"

	"github.com/alunashop/tienda/internal/domain"
)

// Key deriva la identidad de una línea del carrito. Dos líneas son "la
// misma" sii coinciden id de producto, modelo, talle, color y tono, y la
// lista ORDENADA de sub-ítems del kit coincide tupla a tupla en
// (nombre, color, talle). La cantidad nunca participa de la identidad.
//
// Construcción: id, luego los campos escalares presentes unidos con "-"
// (los ausentes se filtran, no se rellenan), luego "|", luego las tuplas
// name-color-size unidas con "_". El vacío es la única forma canónica de
// "sin valor": Normalize garantiza que ausente y "" no parten la clave.
func Key(productID int64, sel domain.VariantSelection, items []domain.SelectedKitItem) string {
	sel = sel.Normalize()
	parts := []string{strconv.FormatInt(productID, 10)}
	for _, f := range []string{sel.ModelNumber, sel.Size, sel.Color, sel.Tone} {
		if f != "" {
			parts = append(parts, f)
		}
	}
	var b strings.Builder
	b.WriteString(strings.Join(parts, "-"))
	b.WriteString("|")
	for i, it := range items {
		if i > 0 {
			b.WriteString("_")
		}
		b.WriteString(strings.TrimSpace(it.Name))
		b.WriteString("-")
		b.WriteString(strings.TrimSpace(it.Color))
		b.WriteString("-")
		b.WriteString(strings.TrimSpace(it.Size))
	}
	return b.String()
}

// VariantLabel arma el texto "Modelo: X | Talle: Y | Color | Tono: Z" con
// los campos presentes, para mostrar. Devuelve "" si no hay variante.
func VariantLabel(sel domain.VariantSelection) string {
	sel = sel.Normalize()
	parts := []string{}
	if sel.ModelNumber != "" {
		parts = append(parts, "Modelo: "+sel.ModelNumber)
	}
	if sel.Size != "" {
		parts = append(parts, "Talle: "+sel.Size)
	}
	if sel.Color != "" {
		parts = append(parts, sel.Color)
	}
	if sel.Tone != "" {
		parts = append(parts, "Tono: "+sel.Tone)
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, " | ")
}
