package mercadopago

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alunashop/tienda/internal/domain"
)

func TestExternalRefSignRoundTrip(t *testing.T) {
	orderID := uuid.New().String()
	ext := orderID + "|" + signExternal(orderID)

	got, ok := VerifyExternalRef(ext)
	require.True(t, ok)
	assert.Equal(t, orderID, got)
}

func TestExternalRefRejectsForgery(t *testing.T) {
	orderID := uuid.New().String()
	other := uuid.New().String()

	_, ok := VerifyExternalRef(orderID + "|" + signExternal(other))
	assert.False(t, ok)
	_, ok = VerifyExternalRef(orderID)
	assert.False(t, ok)
	_, ok = VerifyExternalRef("")
	assert.False(t, ok)
}

func TestCreatePreferenceRequiresToken(t *testing.T) {
	g := NewGateway("", "http://localhost:8080")
	_, err := g.CreatePreference(context.Background(), &domain.Order{ID: uuid.New()})
	assert.Error(t, err)

	g = NewGateway("TEST-abc", "http://localhost:8080")
	_, err = g.CreatePreference(context.Background(), nil)
	assert.Error(t, err)
}
