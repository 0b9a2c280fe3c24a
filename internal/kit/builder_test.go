package kit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alunashop/tienda/internal/adapters/kv"
	"github.com/alunashop/tienda/internal/cart"
	"github.com/alunashop/tienda/internal/domain"
)

type recorder struct {
	kinds  []domain.NotifyKind
	titles []string
}

func (r *recorder) Notify(kind domain.NotifyKind, title, _ string) {
	r.kinds = append(r.kinds, kind)
	r.titles = append(r.titles, title)
}

func testConfig() Config {
	return Config{
		MaxItems:          8,
		MinOrderAmount:    12000,
		DiscountThreshold: 20000,
		DiscountPct:       10,
		IDBase:            1_000_000_000,
	}
}

func newBuilder() (*Builder, *recorder) {
	rec := &recorder{}
	return NewBuilder(testConfig(), NewIDAllocator(testConfig().IDBase), rec), rec
}

func item(id int64, name string, price float64) domain.KitItem {
	return domain.KitItem{ID: id, Name: name, Price: price, Category: "tratamiento"}
}

func TestAddItemIncrementsExisting(t *testing.T) {
	b, _ := newBuilder()
	it := item(1, "Sérum", 5000)

	require.NoError(t, b.AddItem(it))
	require.NoError(t, b.AddItem(it))
	sels := b.Selections()
	require.Len(t, sels, 1)
	assert.Equal(t, 2, sels[0].Quantity)
}

func TestAddItemRejectedAtCap(t *testing.T) {
	b, rec := newBuilder()
	it := item(1, "Sérum", 1000)
	for i := 0; i < 8; i++ {
		require.NoError(t, b.AddItem(it))
	}

	err := b.AddItem(it)
	assert.ErrorIs(t, err, domain.ErrKitLimit)
	assert.Equal(t, 8, b.Totals().TotalItems)
	require.NotEmpty(t, rec.kinds)
	assert.Equal(t, domain.NotifyWarning, rec.kinds[len(rec.kinds)-1])
}

func TestSetQuantityDeltaAtCap(t *testing.T) {
	b, _ := newBuilder()
	require.NoError(t, b.AddItem(item(1, "Sérum", 1000)))
	require.NoError(t, b.AddItem(item(2, "Crema", 1000)))
	require.NoError(t, b.SetQuantity(1, 6))
	require.NoError(t, b.SetQuantity(2, 2))
	require.Equal(t, 8, b.Totals().TotalItems)

	// subir estando en el tope se rechaza, bajar tiene que poder
	assert.ErrorIs(t, b.SetQuantity(1, 7), domain.ErrKitLimit)
	assert.Equal(t, 6, b.QuantityOf(1))
	require.NoError(t, b.SetQuantity(1, 3))
	assert.Equal(t, 5, b.Totals().TotalItems)
}

func TestSetQuantityZeroDeletes(t *testing.T) {
	b, _ := newBuilder()
	require.NoError(t, b.AddItem(item(1, "Sérum", 1000)))
	require.NoError(t, b.SetQuantity(1, 0))
	assert.Empty(t, b.Selections())
	assert.Equal(t, 0, b.QuantityOf(1))

	// sobre un id desconocido es no-op
	require.NoError(t, b.SetQuantity(99, 4))
}

func TestTotalsDiscountBoundary(t *testing.T) {
	b, _ := newBuilder()
	require.NoError(t, b.AddItem(item(1, "Sérum", 19999)))
	t1 := b.Totals()
	assert.False(t, t1.HasDiscount, "un peso abajo del umbral no descuenta")
	assert.Equal(t, 19999.0, t1.FinalPrice)

	require.NoError(t, b.SetQuantity(1, 0))
	require.NoError(t, b.AddItem(item(2, "Crema", 20000)))
	t2 := b.Totals()
	assert.True(t, t2.HasDiscount, "el umbral es inclusivo")
	assert.Equal(t, 2000.0, t2.DiscountAmount)
	assert.Equal(t, 18000.0, t2.FinalPrice)
	assert.True(t, t2.CanOrder)
}

func TestTotalsProgressClamped(t *testing.T) {
	b, _ := newBuilder()
	require.NoError(t, b.AddItem(item(1, "Sérum", 6000)))
	assert.InDelta(t, 50.0, b.Totals().Progress, 0.001)

	require.NoError(t, b.SetQuantity(1, 8))
	assert.Equal(t, 100.0, b.Totals().Progress)
}

func TestFinalizeRejectsUnderMinimum(t *testing.T) {
	b, rec := newBuilder()
	mem := kv.NewMemory()
	store := cart.Load(mem, rec, nil)
	require.NoError(t, b.AddItem(item(1, "Bálsamo", 3000)))

	err := b.Finalize(store)
	assert.ErrorIs(t, err, domain.ErrMinOrder)
	assert.Equal(t, 0, store.Len())
	assert.Len(t, b.Selections(), 1, "el kit sigue armado para completarlo")
}

func TestFinalizeBuildsComposite(t *testing.T) {
	b, rec := newBuilder()
	mem := kv.NewMemory()
	store := cart.Load(mem, rec, nil)
	b.SetName("  Kit Glow  ")
	require.NoError(t, b.AddItem(item(1, "Sérum", 9800)))
	require.NoError(t, b.AddItem(item(2, "Crema", 7200)))
	require.NoError(t, b.SetQuantity(1, 2))
	// subtotal 26800 → 10% de descuento → 24120

	require.NoError(t, b.Finalize(store))
	require.Equal(t, 1, store.Len())
	line := store.Items()[0]
	assert.Equal(t, "Kit Glow", line.Product.Name)
	assert.Equal(t, 24120.0, line.Product.Price)
	assert.Equal(t, 26800.0, line.Product.OldPrice)
	assert.Equal(t, 10.0, line.Product.DiscountPct)
	assert.GreaterOrEqual(t, line.Product.ID, int64(1_000_000_000), "id compuesto fuera del espacio del catálogo")
	require.Len(t, line.Product.Items, 2)
	assert.Equal(t, domain.KitSlot{Name: "Sérum", Quantity: 2}, line.Product.Items[0])
	require.Len(t, line.Selected, 2)
	assert.Equal(t, "Crema", line.Selected[1].Name)

	// el estado de trabajo se descarta y el wizard vuelve al inicio
	assert.Empty(t, b.Selections())
	assert.Equal(t, "", b.Name())
	assert.Equal(t, StepName, b.Step())
}

func TestFinalizeDefaultNameAndUniqueIDs(t *testing.T) {
	rec := &recorder{}
	ids := NewIDAllocator(testConfig().IDBase)
	store := cart.Load(kv.NewMemory(), rec, nil)

	seen := map[int64]bool{}
	for i := 0; i < 3; i++ {
		b := NewBuilder(testConfig(), ids, rec)
		require.NoError(t, b.AddItem(item(int64(i+1), "Sérum", 15000)))
		require.NoError(t, b.Finalize(store))
		line := store.Items()[i]
		assert.Equal(t, DefaultName, line.Product.Name)
		assert.False(t, seen[line.Product.ID], "ids de kits no se repiten")
		seen[line.Product.ID] = true
	}
}

func TestSnapshotRestore(t *testing.T) {
	b, rec := newBuilder()
	b.SetName("Mi kit")
	require.NoError(t, b.AddItem(item(1, "Sérum", 9800)))
	require.NoError(t, b.AddItem(item(2, "Crema", 7200)))
	require.True(t, b.Next())

	st := b.Snapshot()
	b2 := Restore(testConfig(), NewIDAllocator(testConfig().IDBase), rec, st)
	assert.Equal(t, "Mi kit", b2.Name())
	assert.Equal(t, StepSelect, b2.Step())
	assert.Equal(t, b.Totals(), b2.Totals())
	assert.Equal(t, b.Selections(), b2.Selections())
}
