package types

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/filecoin-project/go-state-types/big"
)

func TestTokenFormat(t *testing.T) {
	testCases := []struct {
		value    int64
		decimals uint8
		want     string
	}{
		{0, 18, "0"},
		{5_000_000, 6, "5"},
		{5_020_000, 6, "5.02"},
		{50, 0, "50"},
		{1, 3, "0.001"},
	}

	for _, tc := range testCases {
		require.Equal(t, tc.want, FormatTokenAmount(big.NewInt(tc.value), tc.decimals))
	}
}

func TestParseTokenAmount(t *testing.T) {
	v, err := ParseTokenAmount("0.1", 18)
	require.NoError(t, err)
	require.Equal(t, "100000000000000000", v.String())

	v, err = ParseTokenAmount("5.02", 2)
	require.NoError(t, err)
	require.EqualValues(t, 502, v.Int64())

	_, err = ParseTokenAmount("0.001", 2)
	require.Error(t, err)

	_, err = ParseTokenAmount("abc", 18)
	require.Error(t, err)
}

func TestRescale(t *testing.T) {
	require.EqualValues(t, 5_000_000, Rescale(big.NewInt(500), 2, 6).Int64())
	require.EqualValues(t, 5, Rescale(big.NewInt(5_020_000), 6, 0).Int64())
	require.EqualValues(t, 7, Rescale(big.NewInt(7), 4, 4).Int64())

	b := NewTokenBalance(big.NewInt(502), 2).Rescale(18)
	require.Equal(t, "5.02", b.String())
	require.EqualValues(t, 18, b.Decimals)
}
