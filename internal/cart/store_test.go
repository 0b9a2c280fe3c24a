package cart

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alunashop/tienda/internal/adapters/kv"
	"github.com/alunashop/tienda/internal/domain"
)

type recordedNotice struct {
	kind    domain.NotifyKind
	title   string
	message string
}

type recorder struct {
	notices []recordedNotice
}

func (r *recorder) Notify(kind domain.NotifyKind, title, message string) {
	r.notices = append(r.notices, recordedNotice{kind, title, message})
}

func (r *recorder) last() recordedNotice {
	return r.notices[len(r.notices)-1]
}

func intPtr(n int) *int { return &n }

func newStore(t *testing.T) (*Store, *kv.Memory, *recorder) {
	t.Helper()
	mem := kv.NewMemory()
	rec := &recorder{}
	return Load(mem, rec, nil), mem, rec
}

func TestAddThenMerge(t *testing.T) {
	s, _, rec := newStore(t)
	p := domain.Product{ID: 1, Name: "Sérum", Price: 100, Stock: intPtr(5)}

	require.NoError(t, s.Add(p, 2, domain.VariantSelection{}, nil))
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 2, s.TotalItems())
	assert.Equal(t, 200.0, s.TotalPrice())
	assert.Equal(t, "Agregado al carrito", rec.last().title)

	require.NoError(t, s.Add(p, 1, domain.VariantSelection{}, nil))
	assert.Equal(t, 1, s.Len(), "misma identidad: una sola línea")
	assert.Equal(t, 3, s.TotalItems())
	assert.Equal(t, 300.0, s.TotalPrice())
	assert.Equal(t, "Cantidad actualizada", rec.last().title)
	assert.Contains(t, rec.last().message, "3")
}

func TestAddRejectedByStock(t *testing.T) {
	s, _, rec := newStore(t)
	p := domain.Product{ID: 1, Name: "Sérum", Price: 100, Stock: intPtr(5)}

	err := s.Add(p, 10, domain.VariantSelection{}, nil)
	assert.ErrorIs(t, err, domain.ErrStockLimit)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0.0, s.TotalPrice())
	require.Len(t, rec.notices, 1)
	assert.Equal(t, domain.NotifyWarning, rec.last().kind)
}

func TestStockGuardCountsCartQuantity(t *testing.T) {
	s, _, _ := newStore(t)
	p := domain.Product{ID: 1, Name: "Collar", Price: 500, Stock: intPtr(3)}

	require.NoError(t, s.Add(p, 2, domain.VariantSelection{}, nil))
	err := s.Add(p, 2, domain.VariantSelection{}, nil)
	assert.ErrorIs(t, err, domain.ErrStockLimit)
	assert.Equal(t, 2, s.TotalItems(), "el rechazo no toca los totales")

	require.NoError(t, s.Add(p, 1, domain.VariantSelection{}, nil))
	assert.Equal(t, 3, s.TotalItems())
}

func TestStockZeroMeansSoldOut(t *testing.T) {
	s, _, _ := newStore(t)
	p := domain.Product{ID: 1, Name: "Aros", Price: 80, Stock: intPtr(0)}

	assert.ErrorIs(t, s.Add(p, 1, domain.VariantSelection{}, nil), domain.ErrStockLimit)
	assert.Equal(t, 0, s.Len())
}

func TestNilStockIsUnlimited(t *testing.T) {
	s, _, _ := newStore(t)
	p := domain.Product{ID: 1, Name: "Anillo", Price: 80}

	require.NoError(t, s.Add(p, 500, domain.VariantSelection{}, nil))
	assert.Equal(t, 500, s.TotalItems())
}

func TestVariantsAreSeparateLines(t *testing.T) {
	s, _, _ := newStore(t)
	p := domain.Product{ID: 1, Name: "Collar", Price: 500}

	require.NoError(t, s.Add(p, 1, domain.VariantSelection{Color: "Dorado"}, nil))
	require.NoError(t, s.Add(p, 1, domain.VariantSelection{Color: "Plateado"}, nil))
	assert.Equal(t, 2, s.Len())
}

func TestDecreaseToZeroRemovesLine(t *testing.T) {
	s, _, _ := newStore(t)
	p := domain.Product{ID: 1, Name: "Sérum", Price: 100}
	require.NoError(t, s.Add(p, 2, domain.VariantSelection{}, nil))

	s.Decrease(1, domain.VariantSelection{}, nil)
	assert.Equal(t, 1, s.TotalItems())
	s.Decrease(1, domain.VariantSelection{}, nil)
	assert.Equal(t, 0, s.Len(), "nunca queda una línea con cantidad cero")

	// no-op sobre línea inexistente
	s.Decrease(1, domain.VariantSelection{}, nil)
	assert.Equal(t, 0, s.Len())
}

func TestIncreaseAndRemove(t *testing.T) {
	s, _, _ := newStore(t)
	p := domain.Product{ID: 1, Name: "Sérum", Price: 100}
	require.NoError(t, s.Add(p, 1, domain.VariantSelection{}, nil))

	s.Increase(1, domain.VariantSelection{}, nil)
	assert.Equal(t, 2, s.TotalItems())

	s.Increase(99, domain.VariantSelection{}, nil)
	assert.Equal(t, 2, s.TotalItems(), "no-op si la identidad no está")

	s.Remove(1, domain.VariantSelection{}, nil)
	assert.Equal(t, 0, s.Len())
}

func TestClearPluralizes(t *testing.T) {
	s, _, rec := newStore(t)
	p := domain.Product{ID: 1, Name: "Sérum", Price: 100}
	require.NoError(t, s.Add(p, 3, domain.VariantSelection{}, nil))

	s.Clear()
	assert.Contains(t, rec.last().message, "Se eliminó 1 producto")

	require.NoError(t, s.Add(p, 1, domain.VariantSelection{}, nil))
	require.NoError(t, s.Add(domain.Product{ID: 2, Name: "Crema", Price: 50}, 1, domain.VariantSelection{}, nil))
	s.Clear()
	assert.Contains(t, rec.last().message, "Se eliminaron 2 productos")
}

func TestPersistAndReload(t *testing.T) {
	mem := kv.NewMemory()
	rec := &recorder{}
	s := Load(mem, rec, nil)
	p := domain.Product{ID: 1, Name: "Kit Glow", Price: 18000}
	sel := []domain.SelectedKitItem{{Name: "Sérum", Quantity: 2}, {Name: "Crema"}}
	require.NoError(t, s.Add(p, 1, domain.VariantSelection{}, sel))

	s2 := Load(mem, rec, nil)
	require.Equal(t, 1, s2.Len())
	assert.Equal(t, 18000.0, s2.TotalPrice())
	assert.Equal(t, s.Items()[0].Key(), s2.Items()[0].Key())
}

func TestLoadCorruptStorage(t *testing.T) {
	mem := kv.NewMemory()
	require.NoError(t, mem.Set(StorageKey, "{no es json"))
	rec := &recorder{}

	s := Load(mem, rec, nil)
	assert.Equal(t, 0, s.Len())
	require.Len(t, rec.notices, 1)
	assert.Equal(t, domain.NotifyWarning, rec.last().kind)

	// el path de escritura sigue funcionando
	require.NoError(t, s.Add(domain.Product{ID: 1, Price: 10}, 1, domain.VariantSelection{}, nil))
	raw, ok := mem.Get(StorageKey)
	require.True(t, ok)
	var lines []storedLine
	require.NoError(t, json.Unmarshal([]byte(raw), &lines))
	assert.Len(t, lines, 1)
}

func TestWriteFailureDoesNotRollBack(t *testing.T) {
	mem := kv.NewMemory()
	mem.SetErr = errors.New("cuota llena")
	rec := &recorder{}
	s := Load(mem, rec, nil)

	require.NoError(t, s.Add(domain.Product{ID: 1, Price: 10}, 2, domain.VariantSelection{}, nil))
	assert.Equal(t, 2, s.TotalItems(), "la mutación en memoria queda aunque falle el storage")
	assert.Equal(t, domain.NotifyWarning, rec.last().kind, "la falla de guardado se avisa")
	assert.Contains(t, rec.last().message, "guardar")
}

func fatProduct(id int64, name string) domain.Product {
	return domain.Product{
		ID:        id,
		Slug:      name,
		Name:      name,
		Price:     14500,
		ShortDesc: "Sérum concentrado con niacinamida al 10% y zinc, textura liviana de rápida absorción para uso diario sobre piel limpia.",
		Category:  "skincare",
		Tones:     []string{"Claro", "Medio", "Oscuro"},
		Images: []domain.Image{
			{URL: "https://cdn.aluna.com.ar/products/" + name + "/frente-1200x1200.jpg"},
			{URL: "https://cdn.aluna.com.ar/products/" + name + "/textura-1200x1200.jpg"},
		},
	}
}

func TestPersistedSnapshotStaysSlim(t *testing.T) {
	mem := kv.NewMemory()
	s := Load(mem, &recorder{}, nil)
	for i := int64(1); i <= 5; i++ {
		p := fatProduct(i, fmt.Sprintf("serum-%d", i))
		require.NoError(t, s.Add(p, 2, domain.VariantSelection{Tone: "Medio"}, nil))
	}

	raw, ok := mem.Get(StorageKey)
	require.True(t, ok)
	assert.NotContains(t, raw, "cdn.aluna.com.ar", "las imágenes no se persisten")
	assert.NotContains(t, raw, "niacinamida", "las descripciones no se persisten")
	// margen amplio contra el tope de ~4KB de una cookie, ya contando
	// firma y base64
	assert.Less(t, len(raw), 1500)
}

func TestReloadRehydratesFromCatalog(t *testing.T) {
	catalog := map[int64]domain.Product{1: fatProduct(1, "serum-niacinamida")}
	find := func(id int64) (domain.Product, bool) {
		p, ok := catalog[id]
		return p, ok
	}
	mem := kv.NewMemory()
	s := Load(mem, &recorder{}, find)
	require.NoError(t, s.Add(catalog[1], 2, domain.VariantSelection{Tone: "Medio"}, nil))

	// el catálogo cambia de precio entre requests; el del carrito no
	p := catalog[1]
	p.Price = 99999
	catalog[1] = p

	s2 := Load(mem, &recorder{}, find)
	require.Equal(t, 1, s2.Len())
	got := s2.Items()[0]
	assert.Equal(t, 14500.0, got.Product.Price, "manda el precio que vio el comprador")
	assert.Len(t, got.Product.Images, 2, "las imágenes vuelven del catálogo")
	assert.Equal(t, s.Items()[0].Key(), got.Key())
}

func TestReloadKeepsCompositeWithoutCatalogRow(t *testing.T) {
	find := func(id int64) (domain.Product, bool) { return domain.Product{}, false }
	mem := kv.NewMemory()
	s := Load(mem, &recorder{}, find)
	kitProduct := domain.Product{ID: 1_000_000_001, Name: "Mi kit Aluna", Price: 21600, OldPrice: 24000, DiscountPct: 10}
	sel := []domain.SelectedKitItem{{Name: "Sérum", Quantity: 2}, {Name: "Crema"}}
	require.NoError(t, s.Add(kitProduct, 1, domain.VariantSelection{}, sel))

	s2 := Load(mem, &recorder{}, find)
	require.Equal(t, 1, s2.Len())
	got := s2.Items()[0]
	assert.Equal(t, "Mi kit Aluna", got.Product.Name)
	assert.Equal(t, 21600.0, got.Product.Price)
	assert.Equal(t, 24000.0, got.Product.OldPrice)
	assert.Equal(t, sel, got.Selected)
	assert.Equal(t, s.Items()[0].Key(), got.Key())
}
