package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/adrg/xdg"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/arthur-debert/refold/pkg/decrypt"
	"github.com/arthur-debert/refold/pkg/errors"
	"github.com/arthur-debert/refold/pkg/manifest"
	"github.com/arthur-debert/refold/pkg/memfolder"
)

type syncFlags struct {
	tags     []string
	keyFiles []string
	yes      bool
	skipLevl bool
}

func (f *syncFlags) register(cmd *cobra.Command, withSkip bool) {
	cmd.Flags().StringArrayVarP(&f.tags, "tags", "t", nil, MsgFlagTags)
	cmd.Flags().StringArrayVar(&f.keyFiles, "key", nil, MsgFlagKeys)
	cmd.Flags().BoolVarP(&f.yes, "yes", "y", false, MsgFlagYes)
	if withSkip {
		cmd.Flags().BoolVar(&f.skipLevl, "skip-first-level", false, MsgFlagSkip)
	}
}

func newSyncCmd() *cobra.Command {
	var flags syncFlags
	cmd := &cobra.Command{
		Use:     "sync <manifest> <output>",
		Short:   MsgSyncShort,
		Long:    MsgSyncLong,
		Example: MsgSyncExample,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(args[0], args[1], flags)
		},
	}
	flags.register(cmd, true)
	return cmd
}

func newConfigCmd() *cobra.Command {
	var flags syncFlags
	cmd := &cobra.Command{
		Use:   "config <manifest>",
		Short: MsgConfigShort,
		Long:  MsgConfigLong,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if runtime.GOOS != "linux" {
				return errors.New(errors.ErrInvalidInput,
					"detecting the configuration directory is only supported on linux")
			}
			flags.skipLevl = true
			return runSync(args[0], xdg.ConfigHome, flags)
		},
	}
	flags.register(cmd, false)
	return cmd
}

func runSync(ref, output string, flags syncFlags) error {
	if !flags.skipLevl {
		if err := checkNotCwd(output); err != nil {
			return err
		}
	}

	loader := manifest.NewLoader()
	if err := manifest.CheckRecursion(ref, loader); err != nil {
		return err
	}
	m, err := loader.Load(ref, true, "")
	if err != nil {
		return err
	}
	identities, err := decrypt.LoadIdentities(flags.keyFiles)
	if err != nil {
		return err
	}

	folder, err := memfolder.Build(m, flags.tags, output, loader, identities)
	if err != nil {
		return err
	}

	if _, statErr := os.Stat(output); statErr == nil && !flags.yes {
		if !confirmOverwrite(output, folder, flags.skipLevl) {
			return errors.New(errors.ErrNotConfirmed, MsgNotConfirmed)
		}
	}

	if flags.skipLevl {
		err = folder.WriteSkipFirstLevel(output)
	} else {
		err = folder.Write(output)
	}
	if err != nil {
		return err
	}
	pterm.Success.Println(MsgCompleted)
	return nil
}

// checkNotCwd refuses to replace the caller's working directory, which a
// full sync would otherwise happily delete.
func checkNotCwd(output string) error {
	abs, err := filepath.Abs(output)
	if err != nil {
		return nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil
	}
	if abs == cwd {
		return errors.New(errors.ErrInvalidInput,
			"this would overwrite your current working directory")
	}
	return nil
}

func confirmOverwrite(output string, folder memfolder.MemFolder, skipFirstLevel bool) bool {
	var prompt string
	if skipFirstLevel {
		var entries []string
		for _, p := range folder.TrackedSubpaths() {
			entries = append(entries, "- "+filepath.Join(output, p))
		}
		prompt = fmt.Sprintf("The paths:\n%s\nwill be replaced. Continue?",
			strings.Join(entries, "\n"))
	} else {
		prompt = fmt.Sprintf("Overwrite %s with %d files?", output, len(folder))
	}
	result, _ := pterm.DefaultInteractiveConfirm.WithDefaultText(prompt).Show()
	return result
}
