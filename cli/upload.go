package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/foc-uploader/api"
	"github.com/filecoin-project/foc-uploader/session"
)

var uploadCmd = &cli.Command{
	Name:      "upload",
	Usage:     "Store a text payload with the configured storage provider",
	ArgsUsage: "[text]",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "file",
			Usage: "read the payload from a file instead of the argument",
		},
		&cli.IntFlag{
			Name:  "days",
			Usage: "how long to pay for storage, defaults to Storage.PersistenceDays",
		},
		&cli.BoolFlag{
			Name:  "cdn",
			Usage: "serve the payload through the CDN, defaults to Storage.WithCDN",
		},
		&cli.BoolFlag{
			Name:  "quiet",
			Usage: "only print the piece CID",
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx := ReqContext(cctx)

		var text string
		switch {
		case cctx.IsSet("file"):
			b, err := os.ReadFile(cctx.String("file"))
			if err != nil {
				return xerrors.Errorf("reading payload: %w", err)
			}
			text = string(b)
		case cctx.Args().Len() == 1:
			text = cctx.Args().First()
		default:
			return cli.ShowSubcommandHelp(cctx)
		}

		deps, err := GetDeps(cctx)
		if err != nil {
			return err
		}
		defer deps.Close() //nolint:errcheck

		if deps.Config.Endpoints.ProviderURL == "" {
			return xerrors.New("no storage provider configured (Endpoints.ProviderURL)")
		}

		store, closeStore, err := OpenSessionStore(deps.Config)
		if err != nil {
			return err
		}
		deps.AddCloser(closeStore)

		days := deps.Config.Storage.PersistenceDays
		if cctx.IsSet("days") {
			days = cctx.Int("days")
		}
		withCDN := deps.Config.Storage.WithCDN
		if cctx.IsSet("cdn") {
			withCDN = cctx.Bool("cdn")
		}
		scfg, err := deps.SessionConfig(days, withCDN)
		if err != nil {
			return err
		}

		u := session.NewUploader(deps.SessionDeps(store), scfg)

		w := cctx.App.Writer
		if !cctx.Bool("quiet") {
			unsub := u.Subscribe(func(st api.ProgressState) {
				_, _ = fmt.Fprintf(w, "[%3d%%] %s %s\n", st.Percent, stageString(st.Stage), st.Message)
			})
			defer unsub()
		}

		out, err := u.Upload(ctx, text)
		if err != nil {
			if s := u.Session(); s != nil {
				_, _ = fmt.Fprintf(w, "Session %s failed\n", s.ID)
			}
			return err
		}

		if cctx.Bool("quiet") {
			_, _ = fmt.Fprintln(w, out.PieceCID)
			return nil
		}

		_, _ = fmt.Fprintf(w, "Piece CID:  %s\n", color.GreenString(out.PieceCID.String()))
		if out.TxHash != nil {
			_, _ = fmt.Fprintf(w, "Add tx:     %s\n", out.TxHash)
		}
		if out.Confirmed {
			_, _ = fmt.Fprintf(w, "Confirmed:  %s (piece ids %v)\n", color.GreenString("yes"), out.PieceIDs)
		} else {
			_, _ = fmt.Fprintf(w, "Confirmed:  %s\n", color.YellowString("not yet"))
		}
		return nil
	},
}

func stageString(st api.Stage) string {
	switch st {
	case api.StageSucceeded:
		return color.GreenString("%-17s", st)
	case api.StageFailed:
		return color.RedString("%-17s", st)
	default:
		return color.BlueString("%-17s", st)
	}
}
