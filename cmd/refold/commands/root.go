// Package commands wires the refold CLI: every subcommand is built here
// on top of the resolution engine in pkg/manifest and pkg/memfolder.
package commands

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/arthur-debert/refold/internal/version"
	"github.com/arthur-debert/refold/pkg/logging"
)

func NewRootCmd() *cobra.Command {
	var verbosity int

	rootCmd := &cobra.Command{
		Use:     "refold",
		Short:   MsgRootShort,
		Long:    MsgRootLong,
		Version: version.Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(verbosity)
			if !isatty.IsTerminal(os.Stdout.Fd()) {
				pterm.DisableColor()
			}
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		DisableAutoGenTag: true,
	}

	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", MsgFlagVerbose)

	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newCleanCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newTagsCmd())
	rootCmd.AddCommand(newHashCmd())
	rootCmd.AddCommand(newExampleCmd())

	return rootCmd
}

// PrintError renders a failed command's error for the terminal.
func PrintError(err error) {
	pterm.Error.Println(err.Error())
}
