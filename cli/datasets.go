package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"github.com/filecoin-project/foc-uploader/api"
)

var datasetsCmd = &cli.Command{
	Name:  "datasets",
	Usage: "List the account's data sets",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "all",
			Usage: "include data sets of other providers and terminated ones",
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx := ReqContext(cctx)

		deps, err := GetDeps(cctx)
		if err != nil {
			return err
		}
		defer deps.Close() //nolint:errcheck

		var refs []api.ContainerRef
		if cctx.Bool("all") {
			refs, err = deps.Ledger.ListDataSets(ctx, deps.Account)
		} else {
			refs, err = deps.Transport.ListContainers(ctx, deps.Account)
			refs = lo.Filter(refs, func(r api.ContainerRef, _ int) bool { return r.Live })
		}
		if err != nil {
			return err
		}

		if len(refs) == 0 {
			_, _ = fmt.Fprintln(cctx.App.Writer, "No data sets")
			return nil
		}

		tw := tabwriter.NewWriter(cctx.App.Writer, 2, 4, 2, ' ', 0)
		_, _ = fmt.Fprintf(tw, "ID\tProvider\tCDN\tStatus\n")
		for _, r := range refs {
			status := color.GreenString("live")
			if !r.Live {
				status = color.RedString("terminated")
			}
			_, _ = fmt.Fprintf(tw, "%d\t%d\t%t\t%s\n", r.DataSetID, r.ProviderID, r.WithCDN, status)
		}
		return tw.Flush()
	},
}
