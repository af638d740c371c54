package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"macstat/internal/config"
	"macstat/internal/console"
	"macstat/internal/logging"
)

// errReported is returned by commands that already printed their error.
var errReported = errors.New("error already reported")

type app struct {
	stdin  *os.File
	stdout io.Writer
	stderr io.Writer

	configPath string
	loader     *config.Loader
	logger     *logging.Logger
}

// execute runs the command line and returns the process exit code.
func execute(args []string, stdin *os.File, stdout, stderr io.Writer) int {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	defer a.close()

	root := a.rootCommand()
	root.SetArgs(args)
	if stdin != nil {
		root.SetIn(stdin)
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(stderr, "Error:", err)
		}
		return 1
	}
	return 0
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "macstat",
		Short: "macOS device presence monitor and system utilities",
		Long: `macstat watches USB peripherals, audio endpoints or displays and prints a
line whenever one connects or disconnects. It also reports CPU, memory and
disk usage and counts lines in C/C++ projects.`,
		Version:       version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				fmt.Fprintf(a.stderr, "Unknown command: %s\n\n", args[0])
			}
			cmd.SetOut(a.stderr)
			cmd.Usage()
			return errReported
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default "+config.ConfigPath()+")")

	root.AddCommand(
		a.watchCommand(),
		a.sysinfoCommand(),
		a.countCommand(),
		a.configCommand(),
		a.versionCommand(),
	)
	return root
}

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "macstat %s\n", version)
		},
	}
}

// setup loads the configuration and installs the process logger.
func (a *app) setup() (*config.Config, error) {
	a.loader = config.NewLoader(a.configPath)
	cfg, err := a.loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", a.loader.Path(), err)
	}

	lc, err := cfg.Logging.LoggerConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(lc)
	if err != nil {
		return nil, err
	}
	logging.SetDefault(logger)
	a.logger = logger
	logger.Debug("config loaded", "path", a.loader.Path(), "config", cfg.String())
	return cfg, nil
}

func (a *app) close() {
	if a.loader != nil {
		a.loader.Close()
	}
	if a.logger != nil {
		a.logger.Close()
	}
}

func (a *app) printer(cfg *config.Config) *console.Printer {
	return console.NewPrinter(a.stdout, a.stderr, consoleConfig(cfg))
}

func consoleConfig(cfg *config.Config) console.Config {
	return console.Config{
		Color:      cfg.Output.Color,
		Rule:       cfg.Output.Rule,
		TimeFormat: cfg.Output.TimeFormat,
	}
}

func (a *app) width() int {
	if f, ok := a.stdout.(*os.File); ok {
		return console.TerminalWidth(f)
	}
	return console.DefaultWidth
}
