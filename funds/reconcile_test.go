package funds

import (
	mathbig "math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/filecoin-project/go-state-types/big"

	"github.com/filecoin-project/foc-uploader/api"
	"github.com/filecoin-project/foc-uploader/chain/types"
)

func reading(src types.BalanceSource, amt string, decimals uint8) *types.BalanceReading {
	return &types.BalanceReading{
		Source:       src,
		TokenBalance: types.NewTokenBalance(types.MustParseTokenAmount(amt, decimals), decimals),
	}
}

func TestReconcile(t *testing.T) {
	tol := mathbig.NewRat(1, 100)

	testCases := []struct {
		name       string
		ledger     *types.BalanceReading
		chain      *types.BalanceReading
		wantSource types.BalanceSource
		want       string
	}{{
		name:       "within tolerance prefers ledger",
		ledger:     reading(types.SourceLedger, "5.00", 18),
		chain:      reading(types.SourceChainNative, "5.02", 18),
		wantSource: types.SourceLedger,
		want:       "5",
	}, {
		name:       "beyond tolerance prefers chain",
		ledger:     reading(types.SourceLedger, "5.00", 18),
		chain:      reading(types.SourceChainNative, "6.00", 18),
		wantSource: types.SourceChainNative,
		want:       "6",
	}, {
		name:       "different scales are normalized",
		ledger:     reading(types.SourceLedger, "5", 2),
		chain:      reading(types.SourceChainNative, "5.02", 6),
		wantSource: types.SourceLedger,
		want:       "5",
	}, {
		name:       "mis-scaled ledger loses",
		ledger:     &types.BalanceReading{Source: types.SourceLedger, TokenBalance: types.NewTokenBalance(big.NewInt(5), 18)},
		chain:      reading(types.SourceChainNative, "5", 18),
		wantSource: types.SourceChainNative,
		want:       "5",
	}, {
		name:       "only ledger",
		ledger:     reading(types.SourceLedger, "1.5", 18),
		wantSource: types.SourceLedger,
		want:       "1.5",
	}, {
		name:       "only chain",
		chain:      reading(types.SourceChainNative, "2.5", 6),
		wantSource: types.SourceChainNative,
		want:       "2.5",
	}, {
		name:       "both zero",
		ledger:     reading(types.SourceLedger, "0", 18),
		chain:      reading(types.SourceChainNative, "0", 18),
		wantSource: types.SourceLedger,
		want:       "0",
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Reconcile(tc.ledger, tc.chain, tol)
			require.NoError(t, err)
			require.Equal(t, tc.wantSource, got.Source)
			require.Equal(t, tc.want, got.String())
		})
	}
}

func TestReconcileUnavailable(t *testing.T) {
	_, err := Reconcile(nil, nil, mathbig.NewRat(1, 100))
	require.ErrorIs(t, err, api.ErrBalanceUnavailable)
}

func TestReconcileCommonScale(t *testing.T) {
	got, err := Reconcile(reading(types.SourceLedger, "5", 2), reading(types.SourceChainNative, "5", 6), mathbig.NewRat(1, 100))
	require.NoError(t, err)
	require.EqualValues(t, 6, got.Decimals)
	require.EqualValues(t, 5_000_000, got.Value.Int64())
}
