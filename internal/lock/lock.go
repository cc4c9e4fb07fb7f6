// Package lock reads and writes the baseline lock snapshot: the versioned,
// pinned set of feature records a scan resolves tokens against.
package lock

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/jward/baseline-warden/internal/fsutil"
)

// SchemaVersion is the only snapshot version this build reads and writes.
const SchemaVersion = 1

// DefaultPath is where sync writes the snapshot and scan looks for it.
const DefaultPath = "baseline.lock.json"

// ErrNotFound is returned by Load when the snapshot file does not exist.
var ErrNotFound = errors.New("lock file not found")

// FeatureRecord is one web-platform feature and the compatibility keys that
// map to it. Optional fields are nil when the dataset has no value.
type FeatureRecord struct {
	ID         string   `json:"feature_id"`
	Title      *string  `json:"title,omitempty"`
	Status     *Status  `json:"status,omitempty"`
	LowDate    *Date    `json:"low_date,omitempty"`
	HighDate   *Date    `json:"high_date,omitempty"`
	CompatKeys []string `json:"compatibility_keys"`
}

// UnmarshalJSON accepts the legacy "bcd_keys" field name for
// compatibility_keys.
func (r *FeatureRecord) UnmarshalJSON(data []byte) error {
	type plain FeatureRecord
	var aux struct {
		plain
		BCDKeys []string `json:"bcd_keys"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = FeatureRecord(aux.plain)
	if len(r.CompatKeys) == 0 && len(aux.BCDKeys) > 0 {
		r.CompatKeys = aux.BCDKeys
	}
	return nil
}

// EffectiveStatus returns the record's status, or StatusUnknown when it has
// none.
func (r *FeatureRecord) EffectiveStatus() Status {
	if r == nil || r.Status == nil {
		return StatusUnknown
	}
	return *r.Status
}

// DisplayTitle returns the title, falling back to the feature id.
func (r *FeatureRecord) DisplayTitle() string {
	if r.Title != nil && *r.Title != "" {
		return *r.Title
	}
	return r.ID
}

// Snapshot is the lock file contents.
type Snapshot struct {
	Version     int
	GeneratedAt time.Time
	Features    []FeatureRecord
}

type snapshotJSON struct {
	Version      int             `json:"version"`
	GeneratedAt  time.Time       `json:"generated_at"`
	Features     []FeatureRecord `json:"features"`
	FeatureCount int             `json:"feature_count"`
}

// New returns a snapshot of features stamped with the current UTC time.
func New(features []FeatureRecord) *Snapshot {
	return &Snapshot{
		Version:     SchemaVersion,
		GeneratedAt: time.Now().UTC(),
		Features:    features,
	}
}

// FeatureCount is the number of records in the snapshot.
func (s *Snapshot) FeatureCount() int { return len(s.Features) }

func (s Snapshot) MarshalJSON() ([]byte, error) {
	features := s.Features
	if features == nil {
		features = []FeatureRecord{}
	}
	return json.Marshal(snapshotJSON{
		Version:      s.Version,
		GeneratedAt:  s.GeneratedAt.UTC(),
		Features:     features,
		FeatureCount: len(features),
	})
}

// UnmarshalJSON ignores feature_count; it is always derived from features.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var aux snapshotJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.Version = aux.Version
	s.GeneratedAt = aux.GeneratedAt.UTC()
	s.Features = aux.Features
	return nil
}

// Validate checks the schema version, feature ids and statuses.
func (s *Snapshot) Validate() error {
	if s.Version != SchemaVersion {
		return fmt.Errorf("unsupported lock version %d (want %d)", s.Version, SchemaVersion)
	}
	seen := make(map[string]bool, len(s.Features))
	for i, f := range s.Features {
		if f.ID == "" {
			return fmt.Errorf("feature %d: empty feature_id", i)
		}
		if seen[f.ID] {
			return fmt.Errorf("feature %q: duplicate feature_id", f.ID)
		}
		seen[f.ID] = true
		if f.Status != nil && !f.Status.Valid() {
			return fmt.Errorf("feature %q: invalid status %q", f.ID, *f.Status)
		}
		for _, k := range f.CompatKeys {
			if k == "" {
				return fmt.Errorf("feature %q: empty compatibility key", f.ID)
			}
		}
	}
	return nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Load reads and validates the snapshot at path. A missing file yields an
// error wrapping ErrNotFound.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read lock: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(bytes.TrimPrefix(data, utf8BOM), &snap); err != nil {
		return nil, fmt.Errorf("parse lock %s: %w", path, err)
	}
	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("invalid lock %s: %w", path, err)
	}
	return &snap, nil
}

// Write validates snap and writes it to path atomically as indented JSON.
func Write(path string, snap *Snapshot) error {
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("invalid lock: %w", err)
	}
	if err := fsutil.WriteJSONAtomic(path, snap); err != nil {
		return fmt.Errorf("write lock: %w", err)
	}
	return nil
}
