// Package cmd implements schedulerd's command line interface: a single
// globalState threaded explicitly through every subcommand (never read
// from package-level globals, per spec §9 "Global singletons"), with
// run/algorithms/version subcommands built on cobra/pflag.
package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// must panics if err is not nil. Used only for programmer errors that
// indicate a bug in this package, never for anything that can fail on
// valid user input.
func must(err error) {
	if err != nil {
		panic(err)
	}
}

// exactArgsWithMsg returns a cobra.PositionalArgs validator requiring
// exactly n positional arguments, with a command-specific usage message.
func exactArgsWithMsg(n int, msg string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return fmt.Errorf("accepts %d arg(s), received %d: %s", n, len(args), msg)
		}
		return nil
	}
}

// fprintf panics if there is an error writing to w.
func fprintf(w io.Writer, format string, a ...interface{}) (n int) {
	n, err := fmt.Fprintf(w, format, a...)
	if err != nil {
		panic(err.Error())
	}
	return n
}
