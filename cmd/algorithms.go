package cmd

import (
	"github.com/spf13/cobra"

	"github.com/aw32/hetsched/pkg/registry"
)

func getAlgorithmsCmd(gs *globalState) *cobra.Command {
	return &cobra.Command{
		Use:   "algorithms",
		Short: "list the mapping algorithm names known to the registry",
		Args:  exactArgsWithMsg(0, "algorithms takes no arguments"),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range registry.Names() {
				fprintf(gs.stdOut, "%s\n", name)
			}
			return nil
		},
	}
}
