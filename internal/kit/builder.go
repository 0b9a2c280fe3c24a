// Package kit implementa el armador de kits: la selección en curso con
// sus topes y descuentos, y el wizard de pasos que la lleva al carrito.
package kit

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/alunashop/tienda/internal/cart"
	"github.com/alunashop/tienda/internal/domain"
)

// Config parametriza el armador. Nada de esto va hardcodeado en la
// lógica: otro catálogo puede correr con otros números.
type Config struct {
	// MaxItems es el tope duro de cantidad total seleccionada en el kit.
	MaxItems int
	// MinOrderAmount: el precio final tiene que llegar acá para comprar.
	MinOrderAmount float64
	// DiscountThreshold: subtotal desde el cual aplica el descuento
	// (inclusive).
	DiscountThreshold float64
	// DiscountPct: porcentaje plano sobre el subtotal una vez alcanzado
	// el umbral.
	DiscountPct float64
	// IDBase arranca el asignador de ids de kits terminados, bien lejos
	// de los ids reales del catálogo.
	IDBase int64
}

func DefaultConfig() Config {
	return Config{
		MaxItems:          8,
		MinOrderAmount:    12000,
		DiscountThreshold: 20000,
		DiscountPct:       10,
		IDBase:            1_000_000_000,
	}
}

// IDAllocator reparte ids únicos para kits terminados. Contador
// monotónico, nunca reloj: dos kits en el mismo milisegundo no pueden
// chocar.
type IDAllocator struct {
	next atomic.Int64
}

func NewIDAllocator(base int64) *IDAllocator {
	a := &IDAllocator{}
	a.next.Store(base)
	return a
}

func (a *IDAllocator) Next() int64 {
	return a.next.Add(1)
}

// Selection es una entrada elegida del catálogo del armador, con su
// cantidad mutable.
type Selection struct {
	Item     domain.KitItem
	Quantity int
}

// Totals son los derivados del estado del kit, recalculados en cada
// mutación.
type Totals struct {
	TotalItems     int
	Subtotal       float64
	HasDiscount    bool
	DiscountAmount float64
	FinalPrice     float64
	CanOrder       bool
	Progress       float64
}

// Builder es el estado de trabajo de UN kit en armado. Vive lo que dura
// la sesión del wizard: Finalize lo convierte en una línea del carrito y
// Reset lo descarta.
type Builder struct {
	cfg    Config
	ids    *IDAllocator
	notify domain.Notifier

	name     string
	order    []int64             // orden de selección, para el eco de ítems
	selected map[int64]*Selection
	step     Step
}

func NewBuilder(cfg Config, ids *IDAllocator, notifier domain.Notifier) *Builder {
	return &Builder{
		cfg:      cfg,
		ids:      ids,
		notify:   notifier,
		selected: map[int64]*Selection{},
		step:     StepName,
	}
}

func (b *Builder) Name() string        { return b.name }
func (b *Builder) SetName(name string) { b.name = name }

// Selections devuelve las entradas en orden de selección.
func (b *Builder) Selections() []Selection {
	out := make([]Selection, 0, len(b.order))
	for _, id := range b.order {
		if sel, ok := b.selected[id]; ok {
			out = append(out, *sel)
		}
	}
	return out
}

func (b *Builder) QuantityOf(itemID int64) int {
	if sel, ok := b.selected[itemID]; ok {
		return sel.Quantity
	}
	return 0
}

// AddItem suma 1 unidad del ítem. Con el kit ya en el tope se rechaza sin
// tocar estado.
func (b *Builder) AddItem(it domain.KitItem) error {
	t := b.Totals()
	if t.TotalItems >= b.cfg.MaxItems {
		b.notify.Notify(domain.NotifyWarning, "Kit completo",
			fmt.Sprintf("El kit admite hasta %d productos.", b.cfg.MaxItems))
		return domain.ErrKitLimit
	}
	if sel, ok := b.selected[it.ID]; ok {
		sel.Quantity++
	} else {
		b.selected[it.ID] = &Selection{Item: it, Quantity: 1}
		b.order = append(b.order, it.ID)
	}
	return nil
}

// SetQuantity fija la cantidad de un ítem ya elegido. Cero o menos lo
// elimina del kit. El chequeo de tope mira el DELTA contra la cantidad
// previa de ese mismo ítem: bajar una cantidad estando en el tope sigue
// siendo posible.
func (b *Builder) SetQuantity(itemID int64, qty int) error {
	sel, ok := b.selected[itemID]
	if !ok {
		return nil
	}
	if qty <= 0 {
		delete(b.selected, itemID)
		for i, id := range b.order {
			if id == itemID {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
		return nil
	}
	t := b.Totals()
	if t.TotalItems-sel.Quantity+qty > b.cfg.MaxItems {
		b.notify.Notify(domain.NotifyWarning, "Kit completo",
			fmt.Sprintf("El kit admite hasta %d productos.", b.cfg.MaxItems))
		return domain.ErrKitLimit
	}
	sel.Quantity = qty
	return nil
}

// Totals recalcula los derivados del kit. El umbral de descuento es
// inclusivo y el progreso se recorta en 100.
func (b *Builder) Totals() Totals {
	var t Totals
	for _, id := range b.order {
		sel, ok := b.selected[id]
		if !ok {
			continue
		}
		t.TotalItems += sel.Quantity
		t.Subtotal += sel.Item.Price * float64(sel.Quantity)
	}
	t.HasDiscount = t.Subtotal >= b.cfg.DiscountThreshold
	if t.HasDiscount {
		t.DiscountAmount = t.Subtotal * b.cfg.DiscountPct / 100
	}
	t.FinalPrice = t.Subtotal - t.DiscountAmount
	t.CanOrder = t.FinalPrice >= b.cfg.MinOrderAmount
	if b.cfg.MinOrderAmount > 0 {
		t.Progress = t.FinalPrice / b.cfg.MinOrderAmount * 100
		if t.Progress > 100 {
			t.Progress = 100
		}
	}
	return t
}

// DefaultName se usa cuando el comprador no nombró el kit.
const DefaultName = "Mi kit Aluna"

// Finalize materializa el kit en un producto compuesto y lo agrega al
// carrito. Rechaza si no se llegó al monto mínimo. En éxito, el estado de
// trabajo se descarta y el wizard vuelve al paso inicial.
func (b *Builder) Finalize(store *cart.Store) error {
	t := b.Totals()
	if !t.CanOrder {
		b.notify.Notify(domain.NotifyWarning, "Monto mínimo",
			fmt.Sprintf("El kit tiene que llegar a $%.0f para poder comprarse.", b.cfg.MinOrderAmount))
		return domain.ErrMinOrder
	}

	name := strings.TrimSpace(b.name)
	if name == "" {
		name = DefaultName
	}
	composite := domain.Product{
		ID:    b.ids.Next(),
		Name:  name,
		Price: t.FinalPrice,
	}
	if t.HasDiscount {
		composite.OldPrice = t.Subtotal
		composite.DiscountPct = b.cfg.DiscountPct
	}
	selected := make([]domain.SelectedKitItem, 0, len(b.order))
	for _, sel := range b.Selections() {
		composite.Items = append(composite.Items, domain.KitSlot{Name: sel.Item.Name, Quantity: sel.Quantity})
		selected = append(selected, domain.SelectedKitItem{Name: sel.Item.Name, Quantity: sel.Quantity})
	}

	if err := store.Add(composite, 1, domain.VariantSelection{}, selected); err != nil {
		return err
	}
	b.Reset()
	return nil
}

// State es el snapshot serializable del armador para el storage del
// cliente. Guarda los ítems completos: el precio que vio el comprador al
// elegirlos es el que vale durante la sesión.
type State struct {
	Name     string       `json:"name,omitempty"`
	Step     string       `json:"step,omitempty"`
	Selected []StateEntry `json:"selected,omitempty"`
}

type StateEntry struct {
	Item     domain.KitItem `json:"item"`
	Quantity int            `json:"quantity"`
}

func (b *Builder) Snapshot() State {
	st := State{Name: b.name, Step: b.step.String()}
	for _, sel := range b.Selections() {
		st.Selected = append(st.Selected, StateEntry{Item: sel.Item, Quantity: sel.Quantity})
	}
	return st
}

// Restore reconstruye un armador desde un snapshot. Pasos o entradas
// inválidas se descartan en silencio.
func Restore(cfg Config, ids *IDAllocator, notifier domain.Notifier, st State) *Builder {
	b := NewBuilder(cfg, ids, notifier)
	b.name = st.Name
	if step, ok := StepFrom(st.Step); ok {
		b.step = step
	}
	for _, e := range st.Selected {
		if e.Quantity <= 0 {
			continue
		}
		b.selected[e.Item.ID] = &Selection{Item: e.Item, Quantity: e.Quantity}
		b.order = append(b.order, e.Item.ID)
	}
	return b
}

// Reset descarta la selección, el nombre y vuelve el wizard al inicio.
// Cerrar el armador a mitad de camino nunca persiste kits parciales.
func (b *Builder) Reset() {
	b.name = ""
	b.order = nil
	b.selected = map[int64]*Selection{}
	b.step = StepName
}
