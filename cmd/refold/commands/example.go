package commands

import (
	_ "embed"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/arthur-debert/refold/pkg/errors"
)

//go:embed example.toml
var exampleManifest string

const exampleFileName = "refold_example.toml"

func newExampleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "example",
		Short: MsgExampleShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(exampleFileName); err == nil {
				return errors.Newf(errors.ErrFileWrite, "%s already exists", exampleFileName)
			}
			if err := os.WriteFile(exampleFileName, []byte(exampleManifest), 0644); err != nil {
				return errors.Wrapf(err, errors.ErrFileWrite, "could not write %s", exampleFileName)
			}
			pterm.Success.Printfln("Saved example as %s", exampleFileName)
			return nil
		},
	}
}
