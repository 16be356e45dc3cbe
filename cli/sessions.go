package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/hako/durafmt"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/foc-uploader/api"
	"github.com/filecoin-project/foc-uploader/session"
)

var sessionsCmd = &cli.Command{
	Name:  "sessions",
	Usage: "Inspect past upload sessions",
	Subcommands: []*cli.Command{
		sessionsListCmd,
		sessionsShowCmd,
	},
}

func withSessionStore(cctx *cli.Context, fn func(*session.Store) error) error {
	cfg, err := LoadConfig(cctx)
	if err != nil {
		return err
	}
	store, closer, err := OpenSessionStore(cfg)
	if err != nil {
		return err
	}
	defer closer() //nolint:errcheck
	return fn(store)
}

var sessionsListCmd = &cli.Command{
	Name:  "list",
	Usage: "List upload sessions, oldest first",
	Action: func(cctx *cli.Context) error {
		ctx := ReqContext(cctx)
		return withSessionStore(cctx, func(store *session.Store) error {
			recs, err := store.List(ctx)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cctx.App.Writer, 2, 4, 2, ' ', 0)
			_, _ = fmt.Fprintf(tw, "ID\tStarted\tSize\tState\tPiece\n")
			for _, r := range recs {
				piece := "-"
				if r.Outcome != nil && r.Outcome.PieceCID.Defined() {
					piece = r.Outcome.PieceCID.String()
				}
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					r.ID, r.Started.Format(time.DateTime), humanize.IBytes(uint64(r.PayloadSize)), stateString(r.State), piece)
			}
			return tw.Flush()
		})
	},
}

var sessionsShowCmd = &cli.Command{
	Name:      "show",
	Usage:     "Show the progress history of a session",
	ArgsUsage: "<session id>",
	Action: func(cctx *cli.Context) error {
		ctx := ReqContext(cctx)
		if cctx.Args().Len() != 1 {
			return cli.ShowSubcommandHelp(cctx)
		}
		id, err := uuid.Parse(cctx.Args().First())
		if err != nil {
			return xerrors.Errorf("parsing session id: %w", err)
		}

		return withSessionStore(cctx, func(store *session.Store) error {
			r, err := store.Get(ctx, id)
			if err != nil {
				return err
			}

			w := cctx.App.Writer
			_, _ = fmt.Fprintf(w, "Session:  %s\n", r.ID)
			_, _ = fmt.Fprintf(w, "State:    %s\n", stateString(r.State))
			_, _ = fmt.Fprintf(w, "Size:     %s\n", humanize.IBytes(uint64(r.PayloadSize)))
			_, _ = fmt.Fprintf(w, "Started:  %s\n", r.Started.Format(time.DateTime))
			if !r.Finished.IsZero() {
				_, _ = fmt.Fprintf(w, "Took:     %s\n", durafmt.Parse(r.Finished.Sub(r.Started)).LimitFirstN(2))
			}
			if r.Outcome != nil {
				_, _ = fmt.Fprintf(w, "Piece:    %s\n", r.Outcome.PieceCID)
				if r.Outcome.TxHash != nil {
					_, _ = fmt.Fprintf(w, "Add tx:   %s\n", r.Outcome.TxHash)
				}
				_, _ = fmt.Fprintf(w, "Confirmed: %t\n", r.Outcome.Confirmed)
			}
			if r.Error != "" {
				_, _ = fmt.Fprintf(w, "Error:    %s\n", color.RedString(r.Error))
			}

			_, _ = fmt.Fprintln(w)
			for _, p := range r.Progress {
				_, _ = fmt.Fprintf(w, "%s [%3d%%] %s %s\n", p.Time.Format(time.TimeOnly), p.Percent, stageString(p.Stage), p.Message)
			}
			return nil
		})
	},
}

func stateString(st api.Stage) string {
	switch st {
	case api.StageSucceeded:
		return color.GreenString(string(st))
	case api.StageFailed:
		return color.RedString(string(st))
	default:
		return color.YellowString(string(st))
	}
}
