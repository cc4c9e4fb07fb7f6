package warden

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jward/baseline-warden/internal/detect"
	"github.com/jward/baseline-warden/internal/files"
	"github.com/jward/baseline-warden/internal/index"
	"github.com/jward/baseline-warden/internal/lock"
	"github.com/jward/baseline-warden/internal/log"
	"github.com/jward/baseline-warden/internal/policy"
	"github.com/jward/baseline-warden/internal/store"
)

// Engine runs scans against one lock snapshot and policy. The feature index
// is built once in New and only read afterwards, so an Engine may run
// several scans in sequence.
type Engine struct {
	snap   *lock.Snapshot
	index  *index.Index
	policy policy.Policy
	cache  TokenCache
	logger *slog.Logger

	// useParallel enables the parallel detection pipeline.
	useParallel bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithParallel controls parallel detection. When true (default), files are
// parsed on a worker pool and results are restored to selection order.
// Set to false for serial mode.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithCache attaches a detection cache.
func WithCache(c TokenCache) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

// WithLogger replaces the package logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an Engine for snap and pol.
func New(snap *lock.Snapshot, pol policy.Policy, opts ...Option) *Engine {
	e := &Engine{
		snap:        snap,
		index:       index.FromSnapshot(snap),
		policy:      pol,
		useParallel: true, // default to parallel detection
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = log.With("component", "engine")
	}
	e.logger.Debug("feature index built", "features", e.index.Len(), "keys", e.index.KeyCount())
	return e
}

// Result is the outcome of one scan.
type Result struct {
	Root      string
	StartedAt time.Time
	// Files are the scanned paths, root-relative, in selection order.
	Files    []string
	Tokens   []Token
	Findings []Finding
	Summary  Summary
	// LockGeneratedAt is the generation time of the snapshot scanned against.
	LockGeneratedAt time.Time
}

// Scan detects tokens under root and evaluates them against the policy.
func (e *Engine) Scan(ctx context.Context, root string, sel Selection) (*Result, error) {
	started := time.Now().UTC()
	tokens, paths, err := e.Detect(ctx, root, sel)
	if err != nil {
		return nil, err
	}

	findings, summary := policy.Evaluate(e.index, tokens, e.policy)
	e.logger.Debug("scan complete",
		"files", len(paths), "tokens", len(tokens),
		"fail", summary.Outcomes[policy.OutcomeFail],
		"warn", summary.Outcomes[policy.OutcomeWarn])

	return &Result{
		Root:            root,
		StartedAt:       started,
		Files:           paths,
		Tokens:          tokens,
		Findings:        findings,
		Summary:         summary,
		LockGeneratedAt: e.snap.GeneratedAt,
	}, nil
}

// sourceFile is one selected file moving through detection.
type sourceFile struct {
	rel    string
	family detect.Family
	hash   string
	src    []byte

	// tokens is nil until the file is detected or found in the cache.
	tokens []Token
	cached bool
}

// Detect selects files under root and returns their tokens in selection
// order along with the selected paths. HTML-family files come first, then
// CSS. A file that cannot be read aborts the run.
//
// For each file:
// 1. Read and hash the raw bytes
// 2. Reuse cached tokens when path, family, release and hash match
// 3. Decode (BOM strip, invalid bytes replaced) and run the family detector
// 4. Write fresh results back to the cache
func (e *Engine) Detect(ctx context.Context, root string, sel Selection) ([]Token, []string, error) {
	items, err := e.prepare(root, sel)
	if err != nil {
		return nil, nil, err
	}

	if e.useParallel {
		err = e.detectParallel(ctx, items)
	} else {
		err = e.detectSerial(ctx, items)
	}
	if err != nil {
		return nil, nil, err
	}

	paths := make([]string, len(items))
	var tokens []Token
	for i, it := range items {
		paths[i] = it.rel
		tokens = append(tokens, it.tokens...)
	}
	return tokens, paths, nil
}

// prepare selects, reads and cache-checks every file on the calling
// goroutine.
func (e *Engine) prepare(root string, sel Selection) ([]*sourceFile, error) {
	var items []*sourceFile
	for _, family := range detect.Families {
		paths, err := files.Select(root, sel.Include, sel.Ignore, detect.Extensions(family))
		if err != nil {
			return nil, fmt.Errorf("select %s files: %w", family, err)
		}
		for _, rel := range paths {
			src, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", rel, err)
			}
			item := &sourceFile{rel: rel, family: family, src: src}
			if e.cache != nil {
				if err := e.lookup(item); err != nil {
					return nil, err
				}
			}
			items = append(items, item)
		}
	}
	e.logger.Debug("files selected", "root", root, "count", len(items))
	return items, nil
}

func (e *Engine) lookup(item *sourceFile) error {
	item.hash = store.ContentHash(item.src)
	cached, ok, err := e.cache.CachedTokens(item.rel, cacheFamily(item.family), item.hash)
	if err != nil {
		return fmt.Errorf("cache lookup %s: %w", item.rel, err)
	}
	if !ok {
		return nil
	}
	item.tokens = fromStoreTokens(item.rel, cached)
	item.cached = true
	item.src = nil
	return nil
}

func (e *Engine) detectSerial(ctx context.Context, items []*sourceFile) error {
	for _, item := range items {
		if item.cached {
			continue
		}
		if err := e.detectFile(ctx, item); err != nil {
			return err
		}
		if e.cache != nil {
			if err := e.cache.PutTokens(item.rel, cacheFamily(item.family), item.hash, toStoreTokens(item.tokens)); err != nil {
				return fmt.Errorf("cache write %s: %w", item.rel, err)
			}
		}
	}
	return e.pruneCache(items)
}

// detectFile decodes and parses one file. Safe for concurrent use on
// distinct items.
func (e *Engine) detectFile(ctx context.Context, item *sourceFile) error {
	src, replaced := detect.Decode(item.src)
	if replaced {
		e.logger.Debug("invalid UTF-8 replaced", "path", item.rel)
	}
	tokens, err := detect.Detect(ctx, item.family, src)
	if err != nil {
		return fmt.Errorf("detect %s: %w", item.rel, err)
	}
	for i := range tokens {
		tokens[i].Path = item.rel
	}
	if tokens == nil {
		tokens = []Token{}
	}
	item.tokens = tokens
	item.src = nil
	return nil
}

// pruneCache drops cache entries for files no longer selected, when the
// cache supports it.
func (e *Engine) pruneCache(items []*sourceFile) error {
	p, ok := e.cache.(interface {
		PruneFiles(keep []string) (int64, error)
	})
	if !ok {
		return nil
	}
	keep := make([]string, len(items))
	for i, it := range items {
		keep[i] = it.rel
	}
	n, err := p.PruneFiles(keep)
	if err != nil {
		return fmt.Errorf("prune cache: %w", err)
	}
	if n > 0 {
		e.logger.Debug("pruned cache entries", "count", n)
	}
	return nil
}

// cacheFamily is the family recorded with cache entries. It carries the
// release version so tokens cached by another release are detected again.
func cacheFamily(f detect.Family) string {
	return string(f) + "@" + Version
}

func toStoreTokens(tokens []Token) []store.Token {
	out := make([]store.Token, len(tokens))
	for i, t := range tokens {
		out[i] = store.Token{Line: t.Line, Key: t.Key, Kind: string(t.Kind), Detail: t.Detail}
	}
	return out
}

func fromStoreTokens(path string, tokens []store.Token) []Token {
	out := make([]Token, len(tokens))
	for i, t := range tokens {
		out[i] = Token{Path: path, Line: t.Line, Key: t.Key, Kind: detect.Kind(t.Kind), Detail: t.Detail}
	}
	return out
}
