package warden

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/jward/baseline-warden/internal/store"
)

// detectParallel runs detection as a three-phase pipeline:
//
//	Phase A (serial):   Read, hash and cache-check every file (prepare).
//	Phase B (parallel): Decode and parse uncached files on a worker pool.
//	Phase C (serial):   Write fresh results to the cache.
//
// Each item owns its token slot, so output order is selection order no
// matter which worker finishes first.
func (e *Engine) detectParallel(ctx context.Context, items []*sourceFile) error {
	var pending []*sourceFile
	for _, item := range items {
		if !item.cached {
			pending = append(pending, item)
		}
	}
	if len(pending) == 0 {
		return e.pruneCache(items)
	}

	// ---- Phase B: Parallel detection ----
	numWorkers := min(runtime.NumCPU(), len(pending))
	if numWorkers < 1 {
		numWorkers = 1
	}

	workCh := make(chan *sourceFile, len(pending))
	for _, item := range pending {
		workCh <- item
	}
	close(workCh)

	// Workers buffer cache writes; SQLite is only touched in Phase C.
	var batch *store.BatchedStore
	sqlStore, _ := e.cache.(*store.Store)
	if sqlStore != nil {
		batch = store.NewBatchedStore(sqlStore)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range workCh {
				if err := e.detectFile(ctx, item); err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
					continue
				}
				if batch != nil {
					// BatchedStore.PutTokens only buffers and never fails.
					_ = batch.PutTokens(item.rel, cacheFamily(item.family), item.hash, toStoreTokens(item.tokens))
				}
			}
		}()
	}
	wg.Wait()

	if len(errs) > 0 {
		return fmt.Errorf("parallel detection had %d error(s): %w", len(errs), errs[0])
	}

	// ---- Phase C: Serial commit ----
	switch {
	case batch != nil:
		e.logger.Debug("committing cache batch", "entries", batch.Len())
		if err := sqlStore.CommitBatch(batch); err != nil {
			return fmt.Errorf("cache commit: %w", err)
		}
	case e.cache != nil:
		for _, item := range pending {
			if err := e.cache.PutTokens(item.rel, cacheFamily(item.family), item.hash, toStoreTokens(item.tokens)); err != nil {
				return fmt.Errorf("cache write %s: %w", item.rel, err)
			}
		}
	}
	return e.pruneCache(items)
}
