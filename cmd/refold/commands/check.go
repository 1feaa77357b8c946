package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/arthur-debert/refold/pkg/decrypt"
	"github.com/arthur-debert/refold/pkg/errors"
	"github.com/arthur-debert/refold/pkg/manifest"
)

func newCheckCmd() *cobra.Command {
	var (
		tagList  []string
		keyFiles []string
	)
	cmd := &cobra.Command{
		Use:   "check <manifest>",
		Short: MsgCheckShort,
		Long:  MsgCheckLong,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(args[0], tagList, keyFiles)
		},
	}
	cmd.Flags().StringArrayVarP(&tagList, "tags", "t", nil, MsgFlagTags)
	cmd.Flags().StringArrayVar(&keyFiles, "key", nil, MsgFlagKeys)
	return cmd
}

func runCheck(ref string, tagList, keyFiles []string) error {
	loader := manifest.NewLoader()
	if err := manifest.CheckRecursion(ref, loader); err != nil {
		return err
	}
	m, err := loader.Load(ref, true, "")
	if err != nil {
		return err
	}
	identities, err := decrypt.LoadIdentities(keyFiles)
	if err != nil {
		return err
	}
	files, err := m.GetActive(tagList, loader)
	if err != nil {
		return err
	}
	active, err := m.ActiveTags(tagList)
	if err != nil {
		return err
	}

	progress, _ := pterm.DefaultProgressbar.
		WithTotal(len(files)).
		WithTitle("Checking sources").
		Start()
	failed := 0
	for _, f := range files {
		progress.UpdateTitle(f.Path)
		if _, err := f.Build(active, identities); err != nil {
			pterm.Error.Printfln("%s: %v", f.Path, err)
			failed++
		}
		progress.Increment()
	}
	_, _ = progress.Stop()

	violations, err := m.HardenedViolations(loader)
	if err != nil {
		return err
	}
	if len(violations) == 0 {
		pterm.Success.Println("Manifest is fully pinned")
	} else {
		for _, v := range violations {
			pterm.Warning.Println(v)
		}
	}

	if failed > 0 {
		return errors.Newf(errors.ErrSourceExhausted,
			"%d of %d files could not be built", failed, len(files))
	}
	pterm.Success.Printfln("All %d files verified", len(files))
	return nil
}
