// File: cmd/list.go
package cmd

import (
	"fmt"
	"io"

	"github.com/eonpatapon/contrail-gremlin/internal/checks"
	"github.com/eonpatapon/contrail-gremlin/internal/fsck"
	"github.com/spf13/cobra"
)

var listCategories = map[string]fsck.Category{
	"checks": fsck.CategoryCheck,
	"cleans": fsck.CategoryClean,
	"tests":  fsck.CategoryTest,
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "list [checks|cleans|tests]",
		Short:             "List the registered checks, cleans and tests",
		Args:              cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs:         []string{"checks", "cleans", "tests"},
		PersistentPreRunE: skipConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := checks.NewRegistry()
			if err != nil {
				return err
			}
			categories := []fsck.Category{fsck.CategoryCheck, fsck.CategoryClean, fsck.CategoryTest}
			if len(args) == 1 {
				categories = []fsck.Category{listCategories[args[0]]}
			}
			for i, category := range categories {
				if i > 0 {
					fmt.Fprintln(cmd.OutOrStdout())
				}
				listUnits(cmd.OutOrStdout(), registry, category)
			}
			return nil
		},
	}
}

func listUnits(w io.Writer, registry *fsck.Registry, category fsck.Category) {
	fmt.Fprintf(w, "%ss:\n", category)
	for _, name := range registry.Names(category) {
		// Cleans and tests share their check's name.
		description := ""
		if unit, err := registry.Check(name); err == nil {
			description = unit.Description
		}
		if description == "" {
			fmt.Fprintf(w, "  %s\n", name)
			continue
		}
		fmt.Fprintf(w, "  %-32s %s\n", name, description)
	}
}
