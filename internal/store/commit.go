package store

import (
	"fmt"
	"time"
)

// CommitBatch writes all buffered entries from a BatchedStore into SQLite
// within a single transaction and clears the buffer. When the same path was
// buffered more than once, the last entry wins.
func (s *Store) CommitBatch(batch *BatchedStore) error {
	batch.mu.Lock()
	defer batch.mu.Unlock()
	if len(batch.Entries) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for _, entry := range batch.Entries {
		if err := putTokensTx(tx, entry, now); err != nil {
			return fmt.Errorf("commit batch: %s: %w", entry.Path, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	batch.Entries = nil
	return nil
}
