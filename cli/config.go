package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/filecoin-project/foc-uploader/node/config"
)

var configCmd = &cli.Command{
	Name:  "config",
	Usage: "Print configuration",
	Subcommands: []*cli.Command{
		{
			Name:  "default",
			Usage: "Print the default config",
			Action: func(cctx *cli.Context) error {
				b, err := config.ConfigText(config.DefaultConfig())
				if err != nil {
					return err
				}
				_, _ = fmt.Fprint(cctx.App.Writer, string(b))
				return nil
			},
		},
		{
			Name:  "show",
			Usage: "Print the config in effect, after environment overrides",
			Action: func(cctx *cli.Context) error {
				cfg, err := LoadConfig(cctx)
				if err != nil {
					return err
				}
				b, err := config.ConfigText(cfg)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprint(cctx.App.Writer, string(b))
				return nil
			},
		},
	},
}
