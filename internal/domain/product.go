package domain

import (
	"time"
)

type Product struct {
	ID          int64   `gorm:"primaryKey;autoIncrement"`
	Slug        string  `gorm:"uniqueIndex;size:140"`
	Name        string  `gorm:"size:180"`
	Price       float64 `gorm:"type:decimal(12,2)"`
	OldPrice    float64 `gorm:"type:decimal(12,2);default:0"`
	DiscountPct float64 `gorm:"type:decimal(5,2);default:0"`
	Category    string  `gorm:"size:100;index"`
	ShortDesc   string  `gorm:"type:text"`
	ModelNumber string  `gorm:"size:60"`
	// Stock nil = sin límite, 0 = agotado. Nunca decidir por truthiness.
	Stock     *int      `gorm:"type:int"`
	Colors    []string  `gorm:"type:jsonb;serializer:json"`
	Sizes     []string  `gorm:"type:jsonb;serializer:json"`
	Tones     []string  `gorm:"type:jsonb;serializer:json"`
	Items     []KitSlot `gorm:"type:jsonb;serializer:json"`
	Active    bool      `gorm:"default:true;index"`
	Images    []Image
	CreatedAt time.Time
	UpdatedAt time.Time
}

// KitSlot es un renglón nominal dentro de un producto compuesto: qué va
// adentro del kit y, si corresponde, con qué opciones de color/talle.
type KitSlot struct {
	Name     string   `json:"name"`
	Quantity int      `json:"quantity,omitempty"`
	Colors   []string `json:"colors,omitempty"`
	Sizes    []string `json:"sizes,omitempty"`
}

type Image struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	ProductID int64  `gorm:"index"`
	URL       string `gorm:"size:255"`
	Alt       string `gorm:"size:140"`
	CreatedAt time.Time
}

// KitItem es una entrada del catálogo del armador de kits. No es lo mismo
// que SelectedKitItem: acá viven precio y categoría; en el carrito esos
// datos ya quedaron fundidos en el precio del producto compuesto.
type KitItem struct {
	ID        int64    `gorm:"primaryKey;autoIncrement"`
	Name      string   `gorm:"size:180"`
	Price     float64  `gorm:"type:decimal(12,2)"`
	Category  string   `gorm:"size:100;index"`
	Benefits  []string `gorm:"type:jsonb;serializer:json"`
	Stock     int      `gorm:"type:int;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasVariants indica si el producto pide elección de variante antes de
// agregarse al carrito.
func (p Product) HasVariants() bool {
	return len(p.Colors) > 0 || len(p.Sizes) > 0 || len(p.Tones) > 0
}

// InStock devuelve cuántas unidades quedan vendibles. El segundo valor es
// false cuando el producto no lleva control de stock.
func (p Product) InStock() (int, bool) {
	if p.Stock == nil {
		return 0, false
	}
	return *p.Stock, true
}
