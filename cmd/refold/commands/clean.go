package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/arthur-debert/refold/pkg/errors"
	"github.com/arthur-debert/refold/pkg/manifest"
	"github.com/arthur-debert/refold/pkg/memfolder"
)

func newCleanCmd() *cobra.Command {
	var flags syncFlags
	cmd := &cobra.Command{
		Use:   "clean <manifest> <output>",
		Short: MsgCleanShort,
		Long:  MsgCleanLong,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(args[0], args[1], flags)
		},
	}
	flags.register(cmd, true)
	return cmd
}

func runClean(ref, output string, flags syncFlags) error {
	if !flags.skipLevl {
		if !flags.yes {
			prompt := fmt.Sprintf("This will delete the directory %s. Continue?", output)
			if ok, _ := pterm.DefaultInteractiveConfirm.WithDefaultText(prompt).Show(); !ok {
				return errors.New(errors.ErrNotConfirmed, MsgNotConfirmed)
			}
		}
		if err := os.RemoveAll(output); err != nil {
			return errors.Wrapf(err, errors.ErrFileWrite, "could not delete %s", output)
		}
		pterm.Success.Println(MsgCompleted)
		return nil
	}

	paths, err := activePaths(ref, flags.tags)
	if err != nil {
		return err
	}
	seen := make(map[string]bool)
	var toDelete []string
	for _, p := range paths {
		first, _, _ := strings.Cut(p, "/")
		full := filepath.Join(output, first)
		if !seen[full] {
			seen[full] = true
			toDelete = append(toDelete, full)
		}
	}

	if !flags.yes {
		var listing []string
		for _, p := range toDelete {
			listing = append(listing, "- "+p)
		}
		prompt := fmt.Sprintf("The paths:\n%s\nwill be deleted. Continue?",
			strings.Join(listing, "\n"))
		if ok, _ := pterm.DefaultInteractiveConfirm.WithDefaultText(prompt).Show(); !ok {
			return errors.New(errors.ErrNotConfirmed, MsgNotConfirmed)
		}
	}

	for _, p := range toDelete {
		if _, statErr := os.Stat(p); statErr != nil {
			pterm.Warning.Printfln("Skipping missing path %s", p)
			continue
		}
		if err := os.RemoveAll(p); err != nil {
			return errors.Wrapf(err, errors.ErrFileWrite, "could not delete %s", p)
		}
	}
	pterm.Success.Println(MsgCompleted)
	return nil
}

// activePaths resolves the manifest and returns the sorted relative
// paths a sync would write.
func activePaths(ref string, tagList []string) ([]string, error) {
	loader := manifest.NewLoader()
	if err := manifest.CheckRecursion(ref, loader); err != nil {
		return nil, err
	}
	m, err := loader.Load(ref, true, "")
	if err != nil {
		return nil, err
	}
	files, err := m.GetActive(tagList, loader)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(files))
	for _, f := range files {
		if err := memfolder.CheckSubpath(f.Path); err != nil {
			return nil, err
		}
		paths = append(paths, f.Path)
	}
	sortByComponents(paths)
	return paths, nil
}
