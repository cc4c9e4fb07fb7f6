package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// --- File operations ---

func (s *Store) FileByPath(path string) (*File, error) {
	f := &File{}
	var scannedAt sql.NullTime
	err := s.db.QueryRow(
		"SELECT id, path, family, hash, scanned_at FROM files WHERE path = ?", path,
	).Scan(&f.ID, &f.Path, &f.Family, &f.Hash, &scannedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	f.ScannedAt = scannedAt.Time
	return f, nil
}

// Files returns every cached file ordered by path.
func (s *Store) Files() ([]*File, error) {
	rows, err := s.db.Query("SELECT id, path, family, hash, scanned_at FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f := &File{}
		var scannedAt sql.NullTime
		if err := rows.Scan(&f.ID, &f.Path, &f.Family, &f.Hash, &scannedAt); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		f.ScannedAt = scannedAt.Time
		files = append(files, f)
	}
	return files, rows.Err()
}

// --- Token cache ---

func (s *Store) CachedTokens(path, family, hash string) ([]Token, bool, error) {
	f, err := s.FileByPath(path)
	if err != nil {
		return nil, false, err
	}
	if f == nil || f.Family != family || f.Hash != hash {
		return nil, false, nil
	}

	rows, err := s.db.Query(
		"SELECT line, compat_key, kind, COALESCE(detail, '') FROM tokens WHERE file_id = ? ORDER BY ordinal", f.ID,
	)
	if err != nil {
		return nil, false, fmt.Errorf("cached tokens: %w", err)
	}
	defer rows.Close()
	tokens := []Token{}
	for rows.Next() {
		var t Token
		if err := rows.Scan(&t.Line, &t.Key, &t.Kind, &t.Detail); err != nil {
			return nil, false, fmt.Errorf("scan token: %w", err)
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("cached tokens: %w", err)
	}
	return tokens, true, nil
}

func (s *Store) PutTokens(path, family, hash string, tokens []Token) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("put tokens: begin: %w", err)
	}
	defer tx.Rollback()

	if err := putTokensTx(tx, CacheEntry{Path: path, Family: family, Hash: hash, Tokens: tokens}, time.Now()); err != nil {
		return fmt.Errorf("put tokens %s: %w", path, err)
	}
	return tx.Commit()
}

// PruneFiles deletes cache entries whose path is not in keep and returns the
// number removed.
func (s *Store) PruneFiles(keep []string) (int64, error) {
	files, err := s.Files()
	if err != nil {
		return 0, err
	}
	wanted := make(map[string]bool, len(keep))
	for _, p := range keep {
		wanted[p] = true
	}
	var stale []string
	for _, f := range files {
		if !wanted[f.Path] {
			stale = append(stale, f.Path)
		}
	}

	var removed int64
	for _, chunk := range chunks(stale, maxVariables) {
		res, err := s.db.Exec("DELETE FROM files WHERE path IN ("+placeholderList(len(chunk))+")", stringsToArgs(chunk)...)
		if err != nil {
			return removed, fmt.Errorf("prune files: %w", err)
		}
		n, _ := res.RowsAffected()
		removed += n
	}
	return removed, nil
}

// --- Transaction-scoped helpers ---

// putTokensTx replaces the file row for entry.Path; its old tokens go with
// it through ON DELETE CASCADE.
func putTokensTx(tx *sql.Tx, entry CacheEntry, now time.Time) error {
	if _, err := tx.Exec("DELETE FROM files WHERE path = ?", entry.Path); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	res, err := tx.Exec(
		"INSERT INTO files (path, family, hash, scanned_at) VALUES (?, ?, ?, ?)",
		entry.Path, entry.Family, entry.Hash, now,
	)
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	fileID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}

	if len(entry.Tokens) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(
		"INSERT INTO tokens (file_id, ordinal, line, compat_key, kind, detail) VALUES (?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("prepare token insert: %w", err)
	}
	defer stmt.Close()
	for i, t := range entry.Tokens {
		if _, err := stmt.Exec(fileID, i, t.Line, t.Key, t.Kind, t.Detail); err != nil {
			return fmt.Errorf("insert token %q: %w", t.Key, err)
		}
	}
	return nil
}
