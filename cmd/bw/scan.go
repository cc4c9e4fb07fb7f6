package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	warden "github.com/jward/baseline-warden"
	"github.com/jward/baseline-warden/internal/config"
	"github.com/jward/baseline-warden/internal/lock"
	"github.com/jward/baseline-warden/internal/log"
	"github.com/jward/baseline-warden/internal/policy"
	"github.com/jward/baseline-warden/internal/report"
	"github.com/jward/baseline-warden/internal/store"
)

const lockMissingMsg = "Lock file not found. Run `bw sync --lock` before scanning or pass --lock-path."

type scanOptions struct {
	lockPath    string
	root        string
	outputs     []string
	paths       []string
	reportPath  string
	cachePath   string
	historyPath string
	summaryOnly bool
	dryRun      bool
	ci          bool
	watch       bool
	serial      bool
}

func newScanCmd(c *cli) *cobra.Command {
	opts := &scanOptions{}
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan templates and stylesheets against the Baseline lock",
		Long:  "Detects HTML and CSS features under --root, resolves them against the lock snapshot and reports findings. Exits 1 when any finding fails policy.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runScan(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.lockPath, "lock-path", lock.DefaultPath, "path to baseline.lock.json produced by `bw sync --lock`")
	f.StringVar(&opts.root, "root", ".", "directory the include and ignore globs are relative to")
	f.StringSliceVar(&opts.outputs, "out", nil, "output formats: console|json|gh-annotations (default from config)")
	f.StringSliceVar(&opts.paths, "paths", nil, "include globs, replacing [include] paths")
	f.StringVar(&opts.reportPath, "report-path", "", "JSON report path (default from config)")
	f.StringVar(&opts.cachePath, "cache", "", "detection cache database (default from config)")
	f.StringVar(&opts.historyPath, "history", "", "record the run in this history database (default from config)")
	f.BoolVar(&opts.summaryOnly, "summary-only", false, "print only the summary lines on the console")
	f.BoolVar(&opts.dryRun, "dry-run", false, "report findings but always exit 0")
	f.BoolVar(&opts.ci, "ci", false, "CI mode: add gh-annotations output and print only the console summary")
	f.BoolVar(&opts.watch, "watch", false, "rescan when files under --root change")
	f.BoolVar(&opts.serial, "serial", false, "detect files on one goroutine")
	return cmd
}

// scanSession is everything one or more scans share.
type scanSession struct {
	cfg     *config.Config
	engine  *warden.Engine
	sel     warden.Selection
	formats []string
	history *store.Store
}

func (c *cli) runScan(ctx context.Context, opts *scanOptions) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	applyScanFlags(cfg, opts)
	if err := cfg.Validate(); err != nil {
		return err
	}

	snap, err := lock.Load(opts.lockPath)
	if err != nil {
		if errors.Is(err, lock.ErrNotFound) {
			return &inputError{msg: lockMissingMsg, err: err}
		}
		return err
	}
	log.Debug("lock loaded", "path", opts.lockPath, "features", snap.FeatureCount(),
		"generated_at", snap.GeneratedAt.Format(time.RFC3339))

	engineOpts := []warden.Option{warden.WithParallel(!opts.serial)}
	if cfg.Cache.Path != "" {
		cache, err := store.Open(cfg.Cache.Path)
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
		defer cache.Close()
		engineOpts = append(engineOpts, warden.WithCache(cache))
	}

	sess := &scanSession{
		cfg:     cfg,
		engine:  warden.New(snap, cfg.EvalPolicy(), engineOpts...),
		sel:     warden.Selection{Include: cfg.Include.Paths, Ignore: cfg.Ignore.Globs},
		formats: cfg.Output.Formats,
	}
	if cfg.History.Path != "" {
		hist, err := store.Open(cfg.History.Path)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer hist.Close()
		sess.history = hist
	}

	if opts.watch {
		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return watchAndScan(ctx, opts.root, cfg.Ignore.Globs, watchDebounce, func() error {
			err := c.scanOnce(ctx, sess, opts)
			if errors.Is(err, errViolations) {
				fmt.Fprintln(c.stderr, "Baseline violations detected")
				return nil
			}
			return err
		})
	}
	return c.scanOnce(ctx, sess, opts)
}

// applyScanFlags lets command-line flags override the config file.
func applyScanFlags(cfg *config.Config, opts *scanOptions) {
	if len(opts.outputs) > 0 {
		cfg.Output.Formats = opts.outputs
	}
	if opts.ci {
		if !slices.Contains(cfg.Output.Formats, config.FormatGHAnnotations) {
			cfg.Output.Formats = append(slices.Clone(cfg.Output.Formats), config.FormatGHAnnotations)
		}
		opts.summaryOnly = true
	}
	if len(opts.paths) > 0 {
		cfg.Include.Paths = opts.paths
	}
	if opts.reportPath != "" {
		cfg.Output.JSONPath = opts.reportPath
	}
	if opts.cachePath != "" {
		cfg.Cache.Path = opts.cachePath
	}
	if opts.historyPath != "" {
		cfg.History.Path = opts.historyPath
	}
}

// scanOnce runs a scan, writes every requested output and records history.
// It returns errViolations when a finding failed and dry-run is off.
func (c *cli) scanOnce(ctx context.Context, sess *scanSession, opts *scanOptions) error {
	res, err := sess.engine.Scan(ctx, opts.root, sess.sel)
	if err != nil {
		return err
	}
	log.Debug("scan finished", "files", len(res.Files), "findings", len(res.Findings))

	for _, format := range sess.formats {
		switch format {
		case config.FormatConsole:
			if err := report.WriteConsole(c.stdout, res.Findings, res.Summary, opts.summaryOnly); err != nil {
				return fmt.Errorf("console output: %w", err)
			}
		case config.FormatJSON:
			doc := report.NewDocument(res.Findings, res.Summary, time.Now())
			if err := report.WriteJSON(sess.cfg.Output.JSONPath, doc); err != nil {
				return err
			}
			log.Info("report written", "path", sess.cfg.Output.JSONPath)
		case config.FormatGHAnnotations:
			if _, err := report.WriteAnnotations(c.stdout, res.Findings, sess.cfg.Output.AnnotationLimit, opts.root); err != nil {
				return fmt.Errorf("annotations output: %w", err)
			}
		}
	}

	if sess.history != nil {
		run, findings := res.HistoryRecord()
		id, err := sess.history.RecordRun(run, findings)
		if err != nil {
			return fmt.Errorf("record history: %w", err)
		}
		if keep := sess.cfg.History.Keep; keep > 0 {
			if _, err := sess.history.PruneRuns(keep); err != nil {
				return fmt.Errorf("prune history: %w", err)
			}
		}
		log.Debug("run recorded", "id", id)
	}

	if opts.dryRun {
		if res.Summary.HasBlockingFailures() {
			log.Info("dry run: ignoring failures", "failures", res.Summary.Outcomes[policy.OutcomeFail])
		}
		return nil
	}
	if res.Summary.HasBlockingFailures() {
		return errViolations
	}
	return nil
}
