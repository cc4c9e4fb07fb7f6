package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	warden "github.com/jward/baseline-warden"
	"github.com/jward/baseline-warden/internal/fetch"
	"github.com/jward/baseline-warden/internal/lock"
)

type syncOptions struct {
	lock         bool
	lockPath     string
	offline      bool
	statuses     []string
	query        string
	cacheDir     string
	webStatusURL string
	datasetURL   string
}

func newSyncCmd(c *cli) *cobra.Command {
	opts := &syncOptions{}
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch Baseline data and write the lock snapshot",
		Long:  "Downloads the web-features dataset and Baseline statuses from the Web Status API, merges them and, with --lock, writes baseline.lock.json.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSync(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.lock, "lock", false, "write the resolved Baseline data to the lock file")
	f.StringVar(&opts.lockPath, "lock-path", lock.DefaultPath, "path to the lock snapshot")
	f.BoolVar(&opts.offline, "offline", false, "build the lock from cached responses only")
	f.StringSliceVar(&opts.statuses, "statuses", fetch.DefaultStatuses, "Baseline statuses to query")
	f.StringVar(&opts.query, "query", "", "raw Web Status query, replacing --statuses")
	f.StringVar(&opts.cacheDir, "cache-dir", "", "response cache directory (default $"+fetch.CacheDirEnv+" or the user cache dir)")
	f.StringVar(&opts.webStatusURL, "webstatus-url", fetch.DefaultWebStatusURL, "Web Status features endpoint")
	f.StringVar(&opts.datasetURL, "dataset-url", fetch.DefaultDatasetURL, "web-features data.json URL")
	_ = f.MarkHidden("webstatus-url")
	_ = f.MarkHidden("dataset-url")
	return cmd
}

func (c *cli) runSync(ctx context.Context, opts *syncOptions) error {
	if !opts.lock {
		fmt.Fprintln(c.stdout, "Nothing to do: pass --lock to write "+opts.lockPath+".")
		return nil
	}

	cacheDir := opts.cacheDir
	if cacheDir == "" {
		dir, err := fetch.CacheDir()
		if err != nil {
			return err
		}
		cacheDir = dir
	}

	client := fetch.NewClient(warden.Version,
		fetch.WithCacheDir(cacheDir),
		fetch.WithWebStatusURL(opts.webStatusURL),
		fetch.WithDatasetURL(opts.datasetURL),
	)
	snap, err := client.Sync(ctx, fetch.SyncOptions{
		Statuses: opts.statuses,
		Query:    opts.query,
		Offline:  opts.offline,
	})
	if err != nil {
		return fmt.Errorf("failed to fetch Baseline data: %w", err)
	}

	if err := lock.Write(opts.lockPath, snap); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Created Baseline lock file at %s (%d features; generated_at=%s)\n",
		opts.lockPath, snap.FeatureCount(), snap.GeneratedAt.Format(time.RFC3339))
	return nil
}
