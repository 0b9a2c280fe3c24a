package shipping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alunashop/tienda/internal/domain"
)

func testZones() []domain.ShippingZone {
	return []domain.ShippingZone{
		{Name: "CABA Centro", PostalCodes: []string{"1234", "1000"}, Cost: 4500, ETA: "24 a 48 hs"},
		{Name: "Rosario", PostalCodes: []string{"2000", "S2000ABC"}, Cost: 3900, ETA: "24 hs"},
	}
}

func TestValidatePostalCode(t *testing.T) {
	valid := []string{"1234", "12345", "C1425ABC", "c1425abc", " 2000 "}
	for _, c := range valid {
		assert.True(t, ValidatePostalCode(c), c)
	}
	invalid := []string{"", "123", "123456", "C1425AB", "1425ABC", "abcd", "12a4"}
	for _, c := range invalid {
		assert.False(t, ValidatePostalCode(c), c)
	}
}

func TestCalculateZoneMatch(t *testing.T) {
	r := NewResolver(testZones())

	opt := r.Calculate("1234")
	require.NotNil(t, opt)
	assert.Equal(t, "CABA Centro", opt.Name)
	assert.Equal(t, 4500.0, opt.Cost)
	assert.Equal(t, "zone-caba-centro", opt.ID)
}

func TestCalculateFallbackNotNil(t *testing.T) {
	r := NewResolver(testZones())

	opt := r.Calculate("9999")
	require.NotNil(t, opt, "un código válido sin zona igual tiene costo")
	assert.Equal(t, "standard-shipping", opt.ID)
	assert.Greater(t, opt.Cost, 0.0)
}

func TestCalculateInvalidIsNil(t *testing.T) {
	r := NewResolver(testZones())
	assert.Nil(t, r.Calculate("12"))
	assert.Nil(t, r.Calculate(""))
	assert.Nil(t, r.Calculate("no-es-cp"))
}

func TestCalculateNormalizes(t *testing.T) {
	r := NewResolver(testZones())

	opt := r.Calculate("  s2000abc ")
	require.NotNil(t, opt)
	assert.Equal(t, "Rosario", opt.Name)
}

func TestCalculateFirstMatchWins(t *testing.T) {
	// código repetido entre zonas: el orden de la tabla decide
	zones := []domain.ShippingZone{
		{Name: "A", PostalCodes: []string{"1111"}, Cost: 10},
		{Name: "B", PostalCodes: []string{"1111"}, Cost: 99},
	}
	opt := NewResolver(zones).Calculate("1111")
	require.NotNil(t, opt)
	assert.Equal(t, "A", opt.Name)
}

func TestPickupIsFreeAndStatic(t *testing.T) {
	r := NewResolver(testZones())
	p := r.Pickup()
	assert.Equal(t, 0.0, p.Cost)
	assert.NotEmpty(t, p.Address)
	assert.NotEmpty(t, p.Hours)
	assert.Equal(t, p, r.Pickup())
}

func TestDefaultZonesCoverage(t *testing.T) {
	r := NewResolver(DefaultZones())

	opt := r.Calculate("1000")
	require.NotNil(t, opt)
	assert.Equal(t, "CABA Centro", opt.Name)

	opt = r.Calculate("2000")
	require.NotNil(t, opt)
	assert.Equal(t, "Rosario y alrededores", opt.Name)
}
