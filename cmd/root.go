// Package cmd the package implementing schedulerd's command line interface.
package cmd

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/aw32/hetsched/errext"
)

// globalFlags holds the persistent flag values shared by every subcommand.
// Subcommand-specific flags (schedulerd run's --algorithm/--tasks/--resources
// etc.) live on their own cobra.Command instead, since only the config path
// and output styling are shared across every subcommand.
type globalFlags struct {
	configFilePath string
	noColor        bool
	verbose        bool
}

// globalState groups process-external state (CLI arguments, env vars,
// standard input/output/error, the filesystem) behind one struct so it can
// be threaded explicitly through every subcommand instead of read from
// package-level globals (spec §9 "Global singletons"). newGlobalState
// returns one backed by the real os package; tests construct their own with
// an afero.NewMemMapFs() and in-memory buffers.
type globalState struct {
	ctx context.Context

	fs      afero.Fs
	args    []string
	envVars map[string]string

	defaultFlags, flags globalFlags

	outMutex       *sync.Mutex
	stdOut, stdErr *consoleWriter

	signalNotify func(chan<- os.Signal, ...os.Signal)
	signalStop   func(chan<- os.Signal)

	logger *logrus.Logger
}

// consoleWriter syncs writes with a mutex and optionally routes them
// through a colorable writer when the underlying stream is a terminal.
type consoleWriter struct {
	raw       io.Writer
	colorable io.Writer
	isTTY     bool
	mutex     *sync.Mutex
}

func (w *consoleWriter) Write(p []byte) (int, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.isTTY {
		return w.colorable.Write(p)
	}
	return w.raw.Write(p)
}

func newGlobalState(ctx context.Context) *globalState {
	outMutex := &sync.Mutex{}
	stdoutTTY := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	stderrTTY := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	stdOut := &consoleWriter{os.Stdout, colorable.NewColorable(os.Stdout), stdoutTTY, outMutex}
	stdErr := &consoleWriter{os.Stderr, colorable.NewColorable(os.Stderr), stderrTTY, outMutex}

	envVars := buildEnvMap(os.Environ())
	_, noColorSet := envVars["NO_COLOR"]

	logger := &logrus.Logger{
		Out: stdErr,
		Formatter: &logrus.TextFormatter{
			ForceColors:   stderrTTY && !noColorSet,
			DisableColors: !stderrTTY || noColorSet,
		},
		Hooks: make(logrus.LevelHooks),
		Level: logrus.InfoLevel,
	}

	defaultFlags := globalFlags{configFilePath: "schedulerd.yaml"}

	return &globalState{
		ctx:          ctx,
		fs:           afero.NewOsFs(),
		args:         append(make([]string, 0, len(os.Args)), os.Args...),
		envVars:      envVars,
		defaultFlags: defaultFlags,
		flags:        getFlags(defaultFlags, envVars),
		outMutex:     outMutex,
		stdOut:       stdOut,
		stdErr:       stdErr,
		signalNotify: signal.Notify,
		signalStop:   signal.Stop,
		logger:       logger,
	}
}

func getFlags(defaultFlags globalFlags, env map[string]string) globalFlags {
	result := defaultFlags
	if val, ok := env["SCHED_CONFIG"]; ok {
		result.configFilePath = val
	}
	if _, ok := env["NO_COLOR"]; ok {
		result.noColor = true
	}
	return result
}

func parseEnvKeyValue(kv string) (string, string) {
	if idx := strings.IndexRune(kv, '='); idx != -1 {
		return kv[:idx], kv[idx+1:]
	}
	return kv, ""
}

func buildEnvMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v := parseEnvKeyValue(kv)
		env[k] = v
	}
	return env
}

// rootCommand keeps the fields needed for the main schedulerd command.
type rootCommand struct {
	globalState *globalState
	cmd         *cobra.Command
}

func newRootCommand(gs *globalState) *rootCommand {
	c := &rootCommand{globalState: gs}

	rootCmd := &cobra.Command{
		Use:               "schedulerd",
		Short:             "heterogeneous-resource task scheduler",
		Long:              "schedulerd maps a dependent-task DAG onto a set of heterogeneous compute resources.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.persistentPreRunE,
	}

	rootCmd.PersistentFlags().AddFlagSet(rootCmdPersistentFlagSet(gs))
	rootCmd.SetArgs(gs.args[1:])
	rootCmd.SetOut(gs.stdOut)
	rootCmd.SetErr(gs.stdErr)

	rootCmd.AddCommand(getRunCmd(gs), getAlgorithmsCmd(gs), getVersionCmd(gs))

	c.cmd = rootCmd
	return c
}

func (c *rootCommand) persistentPreRunE(cmd *cobra.Command, args []string) error {
	if c.globalState.flags.verbose {
		c.globalState.logger.SetLevel(logrus.DebugLevel)
	}
	c.globalState.logger.SetFormatter(&logrus.TextFormatter{
		ForceColors:   c.globalState.stdErr.isTTY && !c.globalState.flags.noColor,
		DisableColors: c.globalState.flags.noColor,
	})
	return nil
}

// Execute builds the root command and runs it. It is called once by
// schedulerd's main().
func Execute() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gs := newGlobalState(ctx)
	rootCmd := newRootCommand(gs)

	if err := rootCmd.cmd.Execute(); err != nil {
		exitCode := 1
		var ecerr errext.HasExitCode
		if errors.As(err, &ecerr) {
			exitCode = int(ecerr.ExitCode())
		}

		errText := err.Error()
		var xerr errext.Exception
		if errors.As(err, &xerr) {
			errText = xerr.StackTrace()
		}

		fields := logrus.Fields{}
		var herr errext.HasHint
		if errors.As(err, &herr) {
			fields["hint"] = herr.Hint()
		}

		gs.logger.WithFields(fields).Error(errText)
		os.Exit(exitCode)
	}
}

// newTestGlobalState builds a globalState backed by an in-memory filesystem
// and buffers instead of the real os package, for use in tests.
func newTestGlobalState(stdOut, stdErr io.Writer) *globalState {
	outMutex := &sync.Mutex{}
	logger := &logrus.Logger{
		Out:       stdErr,
		Formatter: &logrus.TextFormatter{DisableColors: true},
		Hooks:     make(logrus.LevelHooks),
		Level:     logrus.InfoLevel,
	}
	defaultFlags := globalFlags{configFilePath: "schedulerd.yaml"}
	return &globalState{
		ctx:          context.Background(),
		fs:           afero.NewMemMapFs(),
		args:         []string{"schedulerd"},
		envVars:      map[string]string{},
		defaultFlags: defaultFlags,
		flags:        defaultFlags,
		outMutex:     outMutex,
		stdOut:       &consoleWriter{stdOut, stdOut, false, outMutex},
		stdErr:       &consoleWriter{stdErr, stdErr, false, outMutex},
		signalNotify: signal.Notify,
		signalStop:   signal.Stop,
		logger:       logger,
	}
}

func rootCmdPersistentFlagSet(gs *globalState) *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)

	flags.StringVarP(&gs.flags.configFilePath, "config", "c", gs.flags.configFilePath, "scheduler YAML config file")
	flags.Lookup("config").DefValue = gs.defaultFlags.configFilePath
	must(cobra.MarkFlagFilename(flags, "config"))

	flags.BoolVar(&gs.flags.noColor, "no-color", gs.flags.noColor, "disable colored output")
	flags.BoolVarP(&gs.flags.verbose, "verbose", "v", gs.defaultFlags.verbose, "enable debug logging")

	return flags
}
