package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/filecoin-project/foc-uploader/build"
)

var versionCmd = &cli.Command{
	Name:  "version",
	Usage: "Print version",
	Action: func(cctx *cli.Context) error {
		_, _ = fmt.Fprintln(cctx.App.Writer, "foc-upload version:", build.UserVersion())
		return nil
	},
}
