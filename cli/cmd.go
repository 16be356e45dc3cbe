package cli

import (
	"context"
	"os"

	"github.com/fatih/color"
	logging "github.com/ipfs/go-log/v2"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
)

var log = logging.Logger("cli")

// Set the global default, to be overridden by individual cli flags in order
func init() {
	color.NoColor = os.Getenv("GOLOG_LOG_FMT") != "color" &&
		!isatty.IsTerminal(os.Stdout.Fd()) &&
		!isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// ReqContext returns the context commands run under. main cancels it on the
// first ctrl+c.
func ReqContext(cctx *cli.Context) context.Context {
	if cctx.Context != nil {
		return cctx.Context
	}
	return context.Background()
}

var Commands = []*cli.Command{
	uploadCmd,
	balanceCmd,
	quoteCmd,
	datasetsCmd,
	sessionsCmd,
	configCmd,
	versionCmd,
}

var FlagConfig = &cli.StringFlag{
	Name:    "config",
	Usage:   "config file, defaults to <repo>/config.toml",
	EnvVars: []string{"FOCUP_CONFIG"},
}

var FlagRepo = &cli.StringFlag{
	Name:    "repo",
	Usage:   "directory holding config.toml and session history",
	EnvVars: []string{"FOCUP_PATH"},
}
