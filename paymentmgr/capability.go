package paymentmgr

import (
	"context"

	"github.com/filecoin-project/go-state-types/abi"

	"github.com/filecoin-project/foc-uploader/api"
	"github.com/filecoin-project/foc-uploader/chain/types/ethtypes"
)

// Ledger adapters differ in which optional entry points they expose. Each
// capability below is an ordered list of probes; the first probe whose
// interface the adapter implements (and, for runtime-described adapters,
// advertises) wins.

type configureFunc func(ctx context.Context, token ethtypes.EthAddress) error

type approval struct {
	api.ServiceApproval
	// Amount is the deposit the ledger will pull from the wallet.
	Amount abi.TokenAmount
}

type approveFunc func(ctx context.Context, a approval) (ethtypes.EthHash, error)

type configurerProbe struct {
	method string
	probe  func(l api.Ledger) (configureFunc, bool)
}

type approverProbe struct {
	method string
	probe  func(l api.Ledger) (approveFunc, bool)
}

var configurers = []configurerProbe{
	{"ConfigureToken", func(l api.Ledger) (configureFunc, bool) {
		c, ok := l.(api.TokenConfigurer)
		if !ok {
			return nil, false
		}
		return c.ConfigureToken, true
	}},
	{"SetToken", func(l api.Ledger) (configureFunc, bool) {
		c, ok := l.(api.TokenSetter)
		if !ok {
			return nil, false
		}
		return c.SetToken, true
	}},
}

var approvers = []approverProbe{
	{"ApproveService", func(l api.Ledger) (approveFunc, bool) {
		s, ok := l.(api.ServiceApprover)
		if !ok {
			return nil, false
		}
		return func(ctx context.Context, a approval) (ethtypes.EthHash, error) {
			return s.ApproveService(ctx, a.ServiceApproval)
		}, true
	}},
	{"ApproveOperator", func(l api.Ledger) (approveFunc, bool) {
		o, ok := l.(api.OperatorApprover)
		if !ok {
			return nil, false
		}
		return func(ctx context.Context, a approval) (ethtypes.EthHash, error) {
			return o.ApproveOperator(ctx, a.ServiceApproval)
		}, true
	}},
	{"Approve", func(l api.Ledger) (approveFunc, bool) {
		s, ok := l.(api.SpendApprover)
		if !ok {
			return nil, false
		}
		return func(ctx context.Context, a approval) (ethtypes.EthHash, error) {
			return s.Approve(ctx, a.Operator, a.Amount)
		}, true
	}},
}

// advertises reports whether l claims to implement method. Adapters that do
// not describe themselves are taken at their static type.
func advertises(l api.Ledger, method string) bool {
	r, ok := l.(api.CapabilityReporter)
	if !ok {
		return true
	}
	return r.Supports(method)
}

func tokenReporter(l api.Ledger) (api.TokenReporter, bool) {
	r, ok := l.(api.TokenReporter)
	if !ok || !advertises(l, "Token") {
		return nil, false
	}
	return r, true
}

type namedConfigurer struct {
	method string
	fn     configureFunc
}

func findConfigurers(l api.Ledger) []namedConfigurer {
	var out []namedConfigurer
	for _, c := range configurers {
		if fn, ok := c.probe(l); ok && advertises(l, c.method) {
			out = append(out, namedConfigurer{method: c.method, fn: fn})
		}
	}
	return out
}

type namedApprover struct {
	method string
	fn     approveFunc
}

// findApprovers returns the approval entry points of l in preference order.
func findApprovers(l api.Ledger) []namedApprover {
	var out []namedApprover
	for _, a := range approvers {
		if fn, ok := a.probe(l); ok && advertises(l, a.method) {
			out = append(out, namedApprover{method: a.method, fn: fn})
		}
	}
	return out
}
