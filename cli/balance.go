package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/filecoin-project/foc-uploader/chain/types"
	"github.com/filecoin-project/foc-uploader/funds"
)

var balanceCmd = &cli.Command{
	Name:  "balance",
	Usage: "Show the ledger and on-chain balances and which one is used",
	Action: func(cctx *cli.Context) error {
		ctx := ReqContext(cctx)

		deps, err := GetDeps(cctx)
		if err != nil {
			return err
		}
		defer deps.Close() //nolint:errcheck

		pcfg, err := deps.PreflightConfig()
		if err != nil {
			return err
		}

		w := cctx.App.Writer
		fa, err := deps.Account.ToFilecoinAddress()
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "Account:  %s (%s)\n", deps.Account, fa)
		_, _ = fmt.Fprintf(w, "Token:    %s\n", pcfg.Asset)

		var ledger, chain *types.BalanceReading

		if b, err := deps.Ledger.Balance(ctx); err != nil {
			_, _ = fmt.Fprintf(w, "Ledger:   %s\n", color.RedString("unavailable: %s", err))
		} else {
			ledger = &types.BalanceReading{Source: types.SourceLedger, TokenBalance: b}
			_, _ = fmt.Fprintf(w, "Ledger:   %s\n", b)
		}

		if b, err := deps.Chain.BalanceOf(ctx, deps.Account, pcfg.Asset); err != nil {
			_, _ = fmt.Fprintf(w, "Chain:    %s\n", color.RedString("unavailable: %s", err))
		} else {
			chain = &types.BalanceReading{Source: types.SourceChainNative, TokenBalance: b}
			_, _ = fmt.Fprintf(w, "Chain:    %s\n", b)
		}

		sel, err := funds.Reconcile(ledger, chain, pcfg.Tolerance)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "Using:    %s (%s)\n", color.GreenString(sel.String()), sel.Source)
		return nil
	},
}
