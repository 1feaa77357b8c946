package commands

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/arthur-debert/refold/pkg/errors"
	"github.com/arthur-debert/refold/pkg/hashing"
	"github.com/arthur-debert/refold/pkg/manifest"
	"github.com/arthur-debert/refold/pkg/sources"
)

func newShowCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "show <source>",
		Short: MsgShowShort,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := sources.ParseGeneralPath(args[0])
			if err != nil {
				return err
			}
			content, err := src.Fetch()
			if err != nil {
				return err
			}
			if output == "" {
				fmt.Print(string(content))
				return nil
			}
			if err := os.WriteFile(output, content, 0644); err != nil {
				return errors.Wrapf(err, errors.ErrFileWrite, "could not write %s", output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Save the content to a file instead of printing it")
	return cmd
}

func newListCmd() *cobra.Command {
	var tagList []string
	cmd := &cobra.Command{
		Use:   "list <manifest>",
		Short: MsgListShort,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := activePaths(args[0], tagList)
			if err != nil {
				return err
			}
			for _, p := range paths {
				pterm.Println("- " + p)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&tagList, "tags", "t", nil, MsgFlagTags)
	return cmd
}

func newTagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tags <manifest>",
		Short: MsgTagsShort,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := manifest.NewLoader()
			if err := manifest.CheckRecursion(args[0], loader); err != nil {
				return err
			}
			m, err := loader.Load(args[0], true, "")
			if err != nil {
				return err
			}
			universe, err := m.TagUniverse(loader)
			if err != nil {
				return err
			}
			for _, tag := range universe {
				pterm.Println("- " + tag)
			}
			return nil
		},
	}
}

func newHashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash <file>",
		Short: MsgHashShort,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrapf(err, errors.ErrFileAccess, "could not read %s", args[0])
			}
			pterm.Printfln("hash = %q", hashing.Compute(content))
			return nil
		},
	}
}

// sortByComponents orders slash-separated paths component by component,
// so siblings group together regardless of separator-vs-letter ordering.
func sortByComponents(paths []string) {
	sort.Slice(paths, func(i, j int) bool {
		a := strings.Split(paths[i], "/")
		b := strings.Split(paths[j], "/")
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return len(a) < len(b)
	})
}
