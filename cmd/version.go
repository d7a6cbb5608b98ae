package cmd

import (
	"github.com/spf13/cobra"
)

// Version is the schedulerd build version; overridden at link time with
// -ldflags "-X github.com/aw32/hetsched/cmd.Version=...".
var Version = "dev"

func getVersionCmd(gs *globalState) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "show the schedulerd build version",
		Args:  exactArgsWithMsg(0, "version takes no arguments"),
		Run: func(cmd *cobra.Command, args []string) {
			fprintf(gs.stdOut, "schedulerd %s\n", Version)
		},
	}
}
