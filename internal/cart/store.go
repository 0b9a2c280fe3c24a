package cart

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/alunashop/tienda/internal/domain"
)

// StorageKey es la clave del snapshot del carrito en el storage del
// cliente. Tiene que ser estable entre recargas.
const StorageKey = "aluna_cart"

// Item es una línea del carrito. El Product es un snapshot por valor: la
// identidad de la línea sale de id + variante + sub-ítems, no de un
// puntero a un catálogo mutable.
type Item struct {
	Product  domain.Product           `json:"product"`
	Variant  domain.VariantSelection  `json:"variant,omitempty"`
	Quantity int                      `json:"quantity"`
	Selected []domain.SelectedKitItem `json:"selected_items,omitempty"`
}

func (it Item) Key() string {
	return Key(it.Product.ID, it.Variant, it.Selected)
}

func (it Item) Subtotal() float64 {
	return it.Product.Price * float64(it.Quantity)
}

// storedLine es la forma persistida de una línea. Guarda lo mínimo que
// hace falta para reconstruirla: referencia al catálogo, variante,
// cantidad y el precio que vio el comprador. El resto del producto
// (imágenes, descripciones, stock) se rehidrata del catálogo al cargar;
// meter el Product entero haría que un carrito real no entre en una
// cookie.
type storedLine struct {
	ProductID   int64                    `json:"id"`
	Slug        string                   `json:"slug,omitempty"`
	Name        string                   `json:"name"`
	Price       float64                  `json:"price"`
	OldPrice    float64                  `json:"old_price,omitempty"`
	DiscountPct float64                  `json:"discount_pct,omitempty"`
	Variant     domain.VariantSelection  `json:"variant"`
	Quantity    int                      `json:"qty"`
	Selected    []domain.SelectedKitItem `json:"selected,omitempty"`
}

// ProductFinder resuelve un id al producto vigente del catálogo. Los
// productos compuestos (kits finalizados) no están en el catálogo y
// devuelven false: su línea se reconstruye entera desde el snapshot.
type ProductFinder func(id int64) (domain.Product, bool)

// Store es el dueño exclusivo de las líneas del carrito. Orden de
// inserción = orden de presentación. Cada mutación confirmada persiste el
// snapshot completo; un Set fallido se avisa y no se revierte nada.
type Store struct {
	storage domain.KVStorage
	notify  domain.Notifier
	find    ProductFinder

	items      []Item
	totalItems int
	totalPrice float64
}

// Load rehidrata el carrito una única vez desde el storage. Un payload
// corrupto degrada a carrito vacío con aviso: nunca es fatal.
func Load(storage domain.KVStorage, notifier domain.Notifier, find ProductFinder) *Store {
	s := &Store{storage: storage, notify: notifier, find: find}
	raw, ok := storage.Get(StorageKey)
	if ok && raw != "" {
		var lines []storedLine
		if err := json.Unmarshal([]byte(raw), &lines); err != nil {
			log.Warn().Err(err).Msg("carrito guardado ilegible, se arranca vacío")
			notifier.Notify(domain.NotifyWarning, "Carrito", "No pudimos recuperar tu carrito guardado.")
		} else {
			s.items = make([]Item, 0, len(lines))
			for _, ln := range lines {
				s.items = append(s.items, s.rehydrate(ln))
			}
		}
	}
	s.recompute()
	return s
}

// rehydrate reconstruye la línea desde su forma persistida. Los datos de
// catálogo salen del catálogo vigente; el precio guardado manda siempre,
// para que el total del carrito no cambie debajo del comprador.
func (s *Store) rehydrate(ln storedLine) Item {
	p := domain.Product{
		ID:          ln.ProductID,
		Slug:        ln.Slug,
		Name:        ln.Name,
		Price:       ln.Price,
		OldPrice:    ln.OldPrice,
		DiscountPct: ln.DiscountPct,
	}
	if s.find != nil {
		if full, ok := s.find(ln.ProductID); ok {
			full.Price = ln.Price
			full.OldPrice = ln.OldPrice
			full.DiscountPct = ln.DiscountPct
			p = full
		}
	}
	return Item{Product: p, Variant: ln.Variant.Normalize(), Quantity: ln.Quantity, Selected: ln.Selected}
}

// Items devuelve una copia de las líneas, en orden de inserción.
func (s *Store) Items() []Item {
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Len() int          { return len(s.items) }
func (s *Store) TotalItems() int   { return s.totalItems }
func (s *Store) TotalPrice() float64 { return s.totalPrice }

// QuantityFor devuelve la cantidad ya en el carrito bajo esa identidad.
func (s *Store) QuantityFor(productID int64, sel domain.VariantSelection, selected []domain.SelectedKitItem) int {
	key := Key(productID, sel, selected)
	for i := range s.items {
		if s.items[i].Key() == key {
			return s.items[i].Quantity
		}
	}
	return 0
}

// Add agrega qty unidades del producto bajo la variante dada. Si ya hay
// una línea con la misma identidad se incrementa su cantidad, nunca se
// duplica la línea. El guard de stock corre antes de mutar: si el
// producto tiene stock finito y carrito+pedido lo supera, se rechaza sin
// tocar estado.
func (s *Store) Add(p domain.Product, qty int, sel domain.VariantSelection, selected []domain.SelectedKitItem) error {
	if qty <= 0 {
		qty = 1
	}
	sel = sel.Normalize()
	key := Key(p.ID, sel, selected)
	current := s.QuantityFor(p.ID, sel, selected)

	if limit, limited := p.InStock(); limited && current+qty > limit {
		remaining := limit - current
		if remaining < 0 {
			remaining = 0
		}
		s.notify.Notify(domain.NotifyWarning, "Stock insuficiente",
			fmt.Sprintf("Quedan %d unidades de %s y ya tenés %d en el carrito.", remaining, p.Name, current))
		return domain.ErrStockLimit
	}

	merged := false
	for i := range s.items {
		if s.items[i].Key() == key {
			s.items[i].Quantity += qty
			s.notify.Notify(domain.NotifySuccess, "Cantidad actualizada",
				fmt.Sprintf("%s ahora tiene %d unidades en el carrito.", p.Name, s.items[i].Quantity))
			merged = true
			break
		}
	}
	if !merged {
		s.items = append(s.items, Item{Product: p, Variant: sel, Quantity: qty, Selected: selected})
		s.notify.Notify(domain.NotifySuccess, "Agregado al carrito", p.Name)
	}
	s.persist()
	return nil
}

// Remove saca la línea con esa identidad. No-op si no existe.
func (s *Store) Remove(productID int64, sel domain.VariantSelection, selected []domain.SelectedKitItem) {
	key := Key(productID, sel, selected)
	for i := range s.items {
		if s.items[i].Key() == key {
			s.items = append(s.items[:i], s.items[i+1:]...)
			s.persist()
			return
		}
	}
}

// Increase suma exactamente 1 a la línea. No-op si no existe.
func (s *Store) Increase(productID int64, sel domain.VariantSelection, selected []domain.SelectedKitItem) {
	key := Key(productID, sel, selected)
	for i := range s.items {
		if s.items[i].Key() == key {
			s.items[i].Quantity++
			s.persist()
			return
		}
	}
}

// Decrease resta 1; una línea que quedaría en 0 se elimina entera, nunca
// persiste con cantidad cero.
func (s *Store) Decrease(productID int64, sel domain.VariantSelection, selected []domain.SelectedKitItem) {
	key := Key(productID, sel, selected)
	for i := range s.items {
		if s.items[i].Key() == key {
			if s.items[i].Quantity <= 1 {
				s.items = append(s.items[:i], s.items[i+1:]...)
			} else {
				s.items[i].Quantity--
			}
			s.persist()
			return
		}
	}
}

// Clear vacía el carrito y avisa cuántas líneas distintas se fueron.
func (s *Store) Clear() {
	n := len(s.items)
	s.items = nil
	if n == 1 {
		s.notify.Notify(domain.NotifyInfo, "Carrito vaciado", "Se eliminó 1 producto del carrito.")
	} else {
		s.notify.Notify(domain.NotifyInfo, "Carrito vaciado", fmt.Sprintf("Se eliminaron %d productos del carrito.", n))
	}
	s.persist()
}

func (s *Store) recompute() {
	s.totalItems = 0
	s.totalPrice = 0
	for i := range s.items {
		s.totalItems += s.items[i].Quantity
		s.totalPrice += s.items[i].Subtotal()
	}
}

func (s *Store) persist() {
	s.recompute()
	lines := make([]storedLine, len(s.items))
	for i, it := range s.items {
		lines[i] = storedLine{
			ProductID:   it.Product.ID,
			Slug:        it.Product.Slug,
			Name:        it.Product.Name,
			Price:       it.Product.Price,
			OldPrice:    it.Product.OldPrice,
			DiscountPct: it.Product.DiscountPct,
			Variant:     it.Variant,
			Quantity:    it.Quantity,
			Selected:    it.Selected,
		}
	}
	b, err := json.Marshal(lines)
	if err != nil {
		log.Error().Err(err).Msg("serializar carrito")
		return
	}
	// El storage es la única copia del carrito entre requests: un Set
	// fallido se avisa, el estado en memoria no se revierte.
	if err := s.storage.Set(StorageKey, string(b)); err != nil {
		log.Warn().Err(err).Msg("persistir carrito")
		s.notify.Notify(domain.NotifyWarning, "Carrito", "No pudimos guardar tu carrito.")
	}
}
