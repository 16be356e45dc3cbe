package funds

import (
	mathbig "math/big"

	"github.com/filecoin-project/foc-uploader/api"
	"github.com/filecoin-project/foc-uploader/chain/types"
)

// Reconcile picks the authoritative balance out of a ledger reading and a
// chain reading of the same account. Either reading may be nil.
//
// Both readings are brought to the larger of their decimal scales. When they
// differ by more than tolerance, expressed as a fraction of the larger
// reading, the chain reading wins since it reflects the asset actually held.
// Otherwise the ledger reading wins. The returned reading is at the common
// scale and is never a blend of the two.
func Reconcile(ledger, chain *types.BalanceReading, tolerance *mathbig.Rat) (types.BalanceReading, error) {
	switch {
	case ledger == nil && chain == nil:
		return types.BalanceReading{}, api.ErrBalanceUnavailable
	case chain == nil:
		return *ledger, nil
	case ledger == nil:
		return *chain, nil
	}

	scale := ledger.Decimals
	if chain.Decimals > scale {
		scale = chain.Decimals
	}
	l := types.BalanceReading{Source: ledger.Source, TokenBalance: ledger.Rescale(scale)}
	c := types.BalanceReading{Source: chain.Source, TokenBalance: chain.Rescale(scale)}

	if diverges(l.Value.Int, c.Value.Int, tolerance) {
		log.Infow("balance readings disagree, using chain reading",
			"ledger", l.String(), "chain", c.String(), "tolerance", tolerance.FloatString(4))
		return c, nil
	}
	return l, nil
}

// diverges reports |a-b| > tol * max(a, b).
func diverges(a, b *mathbig.Int, tol *mathbig.Rat) bool {
	diff := new(mathbig.Int).Sub(a, b)
	diff.Abs(diff)

	ref := a
	if b.Cmp(a) > 0 {
		ref = b
	}

	allowed := new(mathbig.Rat).Mul(tol, new(mathbig.Rat).SetInt(ref))
	return new(mathbig.Rat).SetInt(diff).Cmp(allowed) > 0
}
