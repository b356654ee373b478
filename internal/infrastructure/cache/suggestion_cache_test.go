package cache

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/depot-stock-api/internal/domain/entity"
)

func TestSuggestionKey(t *testing.T) {
	assert.Equal(t, "conversion:suggestions:A", suggestionKey("A"))
}

func TestEncodeDecode_ConservaRatioExacto(t *testing.T) {
	in := []entity.ConversionSuggestion{{
		TargetVariantID:   "B",
		TargetVariantName: "Leche 500ml",
		SuggestedRatio:    decimal.RequireFromString("0.409091"),
		SampleCount:       2,
	}}
	b, err := encodeSuggestions(in)
	require.NoError(t, err)

	out, err := decodeSuggestions(b)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "0.409091", out[0].SuggestedRatio.String())
	assert.Equal(t, 2, out[0].SampleCount)
}

func TestEncode_NilComoListaVacia(t *testing.T) {
	b, err := encodeSuggestions(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(b))

	out, err := decodeSuggestions(b)
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestNopSuggestionCache_SiempreMiss(t *testing.T) {
	c := NopSuggestionCache{}
	require.NoError(t, c.Set(context.Background(), "A", nil))
	out, ok, err := c.Get(context.Background(), "A")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, out)
	assert.NoError(t, c.Invalidate(context.Background(), "A", "B"))
}
