package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-state-types/abi"

	"github.com/filecoin-project/foc-uploader/build"
	"github.com/filecoin-project/foc-uploader/chain/types"
	"github.com/filecoin-project/foc-uploader/dataset"
	"github.com/filecoin-project/foc-uploader/funds"
)

var quoteCmd = &cli.Command{
	Name:      "quote",
	Usage:     "Show what storing a payload of the given size would cost",
	ArgsUsage: "[size in bytes]",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "file",
			Usage: "quote for the size of a file",
		},
		&cli.IntFlag{
			Name:  "days",
			Usage: "how long to pay for storage, defaults to Storage.PersistenceDays",
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx := ReqContext(cctx)

		var size uint64
		switch {
		case cctx.IsSet("file"):
			fi, err := os.Stat(cctx.String("file"))
			if err != nil {
				return err
			}
			size = uint64(fi.Size())
		case cctx.Args().Len() == 1:
			s, err := strconv.ParseUint(cctx.Args().First(), 10, 64)
			if err != nil {
				return xerrors.Errorf("parsing size: %w", err)
			}
			size = s
		default:
			return cli.ShowSubcommandHelp(cctx)
		}

		deps, err := GetDeps(cctx)
		if err != nil {
			return err
		}
		defer deps.Close() //nolint:errcheck

		pcfg, err := deps.PreflightConfig()
		if err != nil {
			return err
		}
		days := deps.Config.Storage.PersistenceDays
		if cctx.IsSet("days") {
			days = cctx.Int("days")
		}

		existing, err := dataset.NewResolver(deps.Transport, deps.Account).Reusable(ctx)
		if err != nil {
			return err
		}

		w := cctx.App.Writer
		policy := funds.DurationForDays(days, deps.Config.Storage.WithCDN)
		d, err := funds.NewPreflightEvaluator(deps.Ledger, deps.Chain, pcfg).Evaluate(ctx, size, policy, existing == nil)
		if err != nil {
			return err
		}

		amt := func(v abi.TokenAmount) string {
			return types.NewTokenBalance(v, build.TokenDecimals).String()
		}

		_, _ = fmt.Fprintf(w, "Size:              %s for %d days (%d epochs)\n", humanize.IBytes(size), days, policy.Epochs)
		_, _ = fmt.Fprintf(w, "Deposit needed:    %s\n", amt(d.Quote.DepositAmountNeeded))
		_, _ = fmt.Fprintf(w, "Lockup allowance:  %s\n", amt(d.Quote.LockupAllowanceNeeded))
		_, _ = fmt.Fprintf(w, "Rate allowance:    %s\n", amt(d.Quote.RateAllowanceNeeded))
		if existing == nil {
			_, _ = fmt.Fprintf(w, "Data set:          new (creation fee %s)\n", amt(pcfg.CreationFee))
		} else {
			_, _ = fmt.Fprintf(w, "Data set:          %d\n", existing.DataSetID)
		}
		_, _ = fmt.Fprintf(w, "Total deposit:     %s\n", amt(d.TotalDepositNeeded))

		switch {
		case !d.RequiresPayment:
			_, _ = fmt.Fprintf(w, "Payment:           %s\n", color.GreenString("not required"))
		case d.ScaleAnomaly:
			_, _ = fmt.Fprintf(w, "Payment:           %s\n", color.YellowString("required (balance looks mis-scaled)"))
		default:
			_, _ = fmt.Fprintf(w, "Payment:           %s\n", color.YellowString("required"))
		}
		return nil
	},
}
