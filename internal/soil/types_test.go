package soil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypesOrder(t *testing.T) {
	assert.Equal(t, []Type{Alluvial, Black, Desert, Red}, Types())
	assert.Equal(t, []string{"Alluvial", "Black", "Desert", "Red"}, Names())
	assert.Equal(t, 4, Count())

	for i, typ := range Types() {
		assert.Equal(t, i, typ.Index())
		got, err := FromIndex(i)
		require.NoError(t, err)
		assert.Equal(t, typ, got)
	}
}

func TestFromIndexOutOfRange(t *testing.T) {
	for _, i := range []int{-1, 4, 100} {
		_, err := FromIndex(i)
		require.ErrorIs(t, err, ErrUnknownType)
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in      string
		want    Type
		wantErr bool
	}{
		{"Alluvial", Alluvial, false},
		{"black", Black, false},
		{"  DESERT ", Desert, false},
		{"red", Red, false},
		{"Clay", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseType(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTypeTextRoundTrip(t *testing.T) {
	b, err := json.Marshal(map[string]Type{"soil": Desert})
	require.NoError(t, err)
	assert.JSONEq(t, `{"soil":"Desert"}`, string(b))

	var out struct {
		Soil Type `json:"soil"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"soil":"red"}`), &out))
	assert.Equal(t, Red, out.Soil)

	_, err = Type(9).MarshalText()
	require.ErrorIs(t, err, ErrUnknownType)
	assert.Equal(t, "Type(9)", Type(9).String())
}
