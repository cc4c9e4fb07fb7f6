package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	warden "github.com/jward/baseline-warden"
	"github.com/jward/baseline-warden/internal/config"
	"github.com/jward/baseline-warden/internal/lock"
	"github.com/jward/baseline-warden/internal/log"
)

// Exit codes.
const (
	exitOK           = 0
	exitViolations   = 1
	exitMissingInput = 2
)

// errViolations is returned by scan when any finding failed.
var errViolations = errors.New("baseline violations detected")

// inputError reports a required input that does not exist. Its message is
// shown to the user as is.
type inputError struct {
	msg string
	err error
}

func (e *inputError) Error() string { return e.msg }
func (e *inputError) Unwrap() error { return e.err }

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and maps the outcome to a process exit code. It is
// the only place exit codes are decided.
func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	err := root.Execute()
	code := exitCode(err)
	switch {
	case err == nil:
	case errors.Is(err, errViolations):
		fmt.Fprintln(stderr, "Baseline violations detected")
	default:
		fmt.Fprintf(stderr, "Error: %s\n", err)
	}
	return code
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, config.ErrNotFound), errors.Is(err, lock.ErrNotFound):
		return exitMissingInput
	}
	return exitViolations
}

// cli holds the output streams and persistent flags shared by every
// command.
type cli struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	verbose    bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "bw",
		Short:         "Baseline compatibility gate for web projects",
		Long:          "baseline-warden scans HTML templates and stylesheets for web platform features and checks them against a pinned Baseline lock snapshot.",
		Version:       warden.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if c.verbose {
				level = slog.LevelDebug
			}
			log.SetOutput(c.stderr, level)
		},
		// No Run: prints help by default.
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&c.configPath, "config", config.DefaultPath, "path to baseline-warden.toml (or .yaml)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newScanCmd(c))
	root.AddCommand(newSyncCmd(c))
	root.AddCommand(newHistoryCmd(c))
	return root
}

// loadConfig reads the --config file and applies its log level unless
// --verbose is set.
func (c *cli) loadConfig() (*config.Config, error) {
	cfg, unknown, err := config.Load(c.configPath)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			return nil, &inputError{msg: "Config not found: " + c.configPath, err: err}
		}
		return nil, err
	}
	if !c.verbose {
		level, err := log.ParseLevel(cfg.Logging.Level)
		if err != nil {
			return nil, fmt.Errorf("logging.level: %w", err)
		}
		log.SetOutput(c.stderr, level)
	}
	for _, key := range unknown {
		log.Warn("unknown config key", "key", key, "file", c.configPath)
	}
	return cfg, nil
}
