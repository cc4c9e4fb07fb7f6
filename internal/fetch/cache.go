package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jward/baseline-warden/internal/fsutil"
	"github.com/jward/baseline-warden/internal/lock"
	"github.com/jward/baseline-warden/internal/log"
)

// CacheDirEnv overrides the cache directory.
const CacheDirEnv = "BASELINE_WARDEN_CACHE_DIR"

const (
	datasetCacheFile  = "web-features.json"
	baselineCacheFile = "webstatus-baseline.json"
)

// ErrNoCache is returned by an offline sync when a cached response is
// missing.
var ErrNoCache = errors.New("no cached response")

// CacheDir returns $BASELINE_WARDEN_CACHE_DIR, or baseline-warden under the
// user cache directory.
func CacheDir() (string, error) {
	if dir := os.Getenv(CacheDirEnv); dir != "" {
		return dir, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("cache dir: %w", err)
	}
	return filepath.Join(base, "baseline-warden"), nil
}

// SyncOptions controls a Sync.
type SyncOptions struct {
	// Statuses are Baseline statuses to query. Empty means DefaultStatuses.
	Statuses []string
	// Query replaces the query built from Statuses.
	Query string
	// Offline reads the cached responses instead of the network.
	Offline bool
}

// Sync fetches (or loads from cache) the dataset and Baseline data and
// assembles a new lock snapshot.
func (c *Client) Sync(ctx context.Context, opts SyncOptions) (*lock.Snapshot, error) {
	var (
		ds       *Dataset
		features *FeaturesResult
		err      error
	)
	if opts.Offline {
		ds, features, err = c.loadCached()
		if err != nil {
			return nil, err
		}
		log.Info("using cached responses", "dir", c.cacheDir)
	} else {
		statuses := opts.Statuses
		if len(statuses) == 0 {
			statuses = DefaultStatuses
		}
		if ds, err = c.FetchDataset(ctx); err != nil {
			return nil, err
		}
		if features, err = c.FetchFeatures(ctx, statuses, opts.Query); err != nil {
			return nil, err
		}
		log.Info("fetched baseline data",
			"dataset_features", len(ds.Features),
			"webstatus_features", len(features.Features))
		if err := c.saveCached(ds, features); err != nil {
			log.Warn("could not cache responses", "dir", c.cacheDir, "error", err)
		}
	}

	records := AssembleLock(BuildDatasetIndex(ds), features.Features)
	snap := lock.New(records)
	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("assembled lock: %w", err)
	}
	return snap, nil
}

func (c *Client) saveCached(ds *Dataset, features *FeaturesResult) error {
	if c.cacheDir == "" {
		return nil
	}
	if err := fsutil.WriteJSONAtomic(filepath.Join(c.cacheDir, datasetCacheFile), ds); err != nil {
		return err
	}
	return fsutil.WriteJSONAtomic(filepath.Join(c.cacheDir, baselineCacheFile), features)
}

func (c *Client) loadCached() (*Dataset, *FeaturesResult, error) {
	if c.cacheDir == "" {
		return nil, nil, fmt.Errorf("offline sync: %w: no cache directory", ErrNoCache)
	}
	var ds Dataset
	if err := readCached(filepath.Join(c.cacheDir, datasetCacheFile), &ds); err != nil {
		return nil, nil, err
	}
	var features FeaturesResult
	if err := readCached(filepath.Join(c.cacheDir, baselineCacheFile), &features); err != nil {
		return nil, nil, err
	}
	return &ds, &features, nil
}

func readCached(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("offline sync: %w: %s", ErrNoCache, path)
		}
		return fmt.Errorf("read cache: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse cache %s: %w", path, err)
	}
	return nil
}
