package client

import (
	"context"
	"net/http"

	logging "github.com/ipfs/go-log/v2"

	"github.com/filecoin-project/go-jsonrpc"

	"github.com/filecoin-project/foc-uploader/api"
	"github.com/filecoin-project/foc-uploader/api/apistruct"
)

var log = logging.Logger("rpc")

// LedgerNamespace is the JSON-RPC namespace served by ledger gateways.
const LedgerNamespace = "FOC"

// LedgerRPC is a ledger gateway client that knows which optional methods the
// remote side implements.
type LedgerRPC struct {
	*apistruct.LedgerStruct

	methods map[string]struct{}
}

// Supports implements api.CapabilityReporter.
func (l *LedgerRPC) Supports(method string) bool {
	_, ok := l.methods[method]
	return ok
}

var _ api.CapabilityReporter = (*LedgerRPC)(nil)

// NewLedgerRPC creates a new http jsonrpc client for a ledger gateway and
// asks it which optional methods it implements. A gateway that cannot answer
// is treated as implementing none.
func NewLedgerRPC(ctx context.Context, addr string, requestHeader http.Header, opts ...jsonrpc.Option) (*LedgerRPC, jsonrpc.ClientCloser, error) {
	var res apistruct.LedgerStruct
	closer, err := jsonrpc.NewMergeClient(ctx, addr, LedgerNamespace,
		[]interface{}{
			&res.Internal,
		},
		requestHeader,
		append([]jsonrpc.Option{jsonrpc.WithErrors(api.RPCErrors)}, opts...)...,
	)
	if err != nil {
		return nil, nil, err
	}

	out := &LedgerRPC{LedgerStruct: &res, methods: map[string]struct{}{}}
	caps, err := res.Capabilities(ctx)
	if err != nil {
		log.Warnw("ledger gateway did not report capabilities", "addr", addr, "error", err)
		return out, closer, nil
	}
	for _, c := range caps {
		out.methods[c] = struct{}{}
	}
	log.Debugw("ledger gateway capabilities", "addr", addr, "methods", caps)

	return out, closer, nil
}

// NewEthRPC creates a new http jsonrpc client for the Filecoin Eth API.
func NewEthRPC(ctx context.Context, addr string, requestHeader http.Header, opts ...jsonrpc.Option) (api.EthNode, jsonrpc.ClientCloser, error) {
	var res apistruct.EthStruct
	closer, err := jsonrpc.NewMergeClient(ctx, addr, "Filecoin",
		[]interface{}{
			&res.Internal,
		},
		requestHeader,
		opts...,
	)

	return &res, closer, err
}
