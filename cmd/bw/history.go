package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/baseline-warden/internal/config"
	"github.com/jward/baseline-warden/internal/store"
)

// defaultHistoryPath is read when neither --history nor [history] path is
// set.
const defaultHistoryPath = ".baseline-warden/history.db"

type historyOptions struct {
	path   string
	limit  int
	runID  int64
	format string
}

func newHistoryCmd(c *cli) *cobra.Command {
	opts := &historyOptions{}
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded scans",
		Long:  "Lists scans recorded with `bw scan --history`, newest first. With --run, lists that run's findings.",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return validateFormat(opts.format)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runHistory(opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.path, "history", "", "history database (default from config, then "+defaultHistoryPath+")")
	f.IntVar(&opts.limit, "limit", 20, "number of runs to list; 0 lists all")
	f.Int64Var(&opts.runID, "run", 0, "show the findings of this run")
	f.StringVar(&opts.format, "format", "text", "output format: json|text")
	return cmd
}

func (c *cli) runHistory(opts *historyOptions) error {
	path := c.historyPath(opts.path)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(c.stdout, "No history recorded at %s\n", path)
		return nil
	}

	s, err := store.Open(path)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer s.Close()

	if opts.runID != 0 {
		run, err := s.RunByID(opts.runID)
		if err != nil {
			return err
		}
		if run == nil {
			return fmt.Errorf("run %d not found", opts.runID)
		}
		findings, err := s.RunFindings(opts.runID)
		if err != nil {
			return err
		}
		if opts.format == "json" {
			return c.writeJSON(historyRunJSON{Run: runToJSON(run), Findings: findingsToJSON(findings)})
		}
		formatRunText(c.stdout, run, findings)
		return nil
	}

	runs, err := s.Runs(opts.limit)
	if err != nil {
		return err
	}
	if opts.format == "json" {
		out := make([]historyRun, len(runs))
		for i, r := range runs {
			out[i] = runToJSON(r)
		}
		return c.writeJSON(out)
	}
	formatRunsText(c.stdout, runs)
	return nil
}

// historyPath picks the flag, then the config file's [history] path, then
// the default. A missing or unreadable config is not an error here.
func (c *cli) historyPath(flag string) string {
	if flag != "" {
		return flag
	}
	if cfg, _, err := config.Load(c.configPath); err == nil && cfg.History.Path != "" {
		return cfg.History.Path
	}
	return defaultHistoryPath
}

func (c *cli) writeJSON(v any) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
