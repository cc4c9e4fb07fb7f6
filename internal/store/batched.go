package store

import "sync"

// BatchedStore buffers cache writes in memory so detection workers never
// touch SQLite. It implements DataStore so callers can write to it without
// knowing whether they're hitting SQLite or an in-memory buffer.
//
// Thread safety: the mutex protects the entry slice. Reads (CachedTokens)
// are passed through to the underlying Store, which is safe for concurrent
// reads.
type BatchedStore struct {
	store *Store // for read passthrough
	mu    sync.Mutex

	Entries []CacheEntry
}

// NewBatchedStore creates a BatchedStore backed by the given Store for reads.
func NewBatchedStore(s *Store) *BatchedStore {
	return &BatchedStore{store: s}
}

// CachedTokens passes through to the underlying Store. Buffered entries are
// not visible until committed.
func (b *BatchedStore) CachedTokens(path, family, hash string) ([]Token, bool, error) {
	return b.store.CachedTokens(path, family, hash)
}

// PutTokens buffers an entry for the next CommitBatch.
func (b *BatchedStore) PutTokens(path, family, hash string, tokens []Token) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Entries = append(b.Entries, CacheEntry{
		Path:   path,
		Family: family,
		Hash:   hash,
		Tokens: append([]Token(nil), tokens...),
	})
	return nil
}

// Len is the number of buffered entries.
func (b *BatchedStore) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Entries)
}
