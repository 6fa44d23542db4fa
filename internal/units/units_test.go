package units

import (
	"encoding/json"
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEther(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1", "1000000000000000000"},
		{"1.5", "1500000000000000000"},
		{"2.0", "2000000000000000000"},
		{"0.000000000000000001", "1"},
		{"0", "0"},
		{" 3.25 ", "3250000000000000000"},
		{"123456789.123456789123456789", "123456789123456789123456789"},
	}
	for _, tt := range tests {
		got, err := ParseEther(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got.String(), tt.in)
	}
}

func TestParseEtherRejects(t *testing.T) {
	for _, in := range []string{"", "abc", "-1", "0.0000000000000000001", "1e"} {
		_, err := ParseEther(in)
		assert.Error(t, err, in)
	}
}

func TestRoundTripWithinDisplayTolerance(t *testing.T) {
	for _, v := range []float64{1.5, 2.0, 0.001, 42.123456789} {
		wei, err := ParseEther(big.NewFloat(v).Text('f', -1))
		require.NoError(t, err)
		assert.LessOrEqual(t, math.Abs(ToEther(wei)-v), 1e-9)
	}
}

func TestToEtherKeepsPrecisionAboveFloatRange(t *testing.T) {
	// 2^60 wei does not fit a float64 mantissa but the conversion is display only
	wei := new(big.Int).Lsh(big.NewInt(1), 60)
	assert.InDelta(t, 1.152921504606846976, ToEther(wei), 1e-12)
	assert.Equal(t, "1.152921504606846976", FormatEther(wei))
}

func TestFormatEther(t *testing.T) {
	assert.Equal(t, "0", FormatEther(nil))
	assert.Equal(t, "2", FormatEther(big.NewInt(2e18)))
	assert.Equal(t, "0.000000000000000001", FormatEther(big.NewInt(1)))
	assert.Equal(t, "-1.5", FormatEther(big.NewInt(-15e17)))
}

func TestWeiMarshalsAsString(t *testing.T) {
	wei, ok := new(big.Int).SetString("1500000000000000001", 10)
	require.True(t, ok)
	raw, err := json.Marshal(map[string]any{"amount": Wei(wei)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"1500000000000000001"}`, string(raw))
	assert.Equal(t, "0", Wei(nil).String())
}
