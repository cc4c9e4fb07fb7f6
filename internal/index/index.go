// Package index maps compatibility keys to feature records.
//
// An Index is built once per run from a lock snapshot and is read-only
// afterwards, so it may be shared between goroutines.
package index

import (
	"strings"

	"github.com/jward/baseline-warden/internal/lock"
)

// degradeRule lets keys under a namespace fall back to a shorter key when
// the specific key has no mapping.
type degradeRule struct {
	namespace string
	keep      int
}

// degradeRules cover element-attribute keys ("html.elements.a.download" ->
// "html.elements.a") and property-value keys ("css.properties.display.grid"
// -> "css.properties.display"). No other namespace degrades.
var degradeRules = []degradeRule{
	{namespace: "html.elements", keep: 3},
	{namespace: "css.properties", keep: 3},
}

// Index holds feature records by id and by compatibility key.
type Index struct {
	records []lock.FeatureRecord
	byID    map[string]*lock.FeatureRecord
	byKey   map[string]*lock.FeatureRecord
}

// Build indexes records. A key listed by several records maps to the first
// one; later registrations are ignored.
func Build(records []lock.FeatureRecord) *Index {
	idx := &Index{
		records: append([]lock.FeatureRecord(nil), records...),
		byID:    make(map[string]*lock.FeatureRecord, len(records)),
		byKey:   make(map[string]*lock.FeatureRecord),
	}
	for i := range idx.records {
		r := &idx.records[i]
		idx.byID[r.ID] = r
		for _, k := range r.CompatKeys {
			if _, ok := idx.byKey[k]; !ok {
				idx.byKey[k] = r
			}
		}
	}
	return idx
}

// FromSnapshot builds an index over a snapshot's features.
func FromSnapshot(snap *lock.Snapshot) *Index {
	return Build(snap.Features)
}

// Resolve returns the record for key, or nil. An exact match wins; failing
// that, a key of four or more segments under a degrading namespace retries
// with its first three segments.
func (idx *Index) Resolve(key string) *lock.FeatureRecord {
	if r, ok := idx.byKey[key]; ok {
		return r
	}
	if parent, ok := degrade(key); ok {
		return idx.byKey[parent]
	}
	return nil
}

func degrade(key string) (string, bool) {
	for _, rule := range degradeRules {
		if !strings.HasPrefix(key, rule.namespace+".") {
			continue
		}
		parts := strings.Split(key, ".")
		if len(parts) <= rule.keep {
			return "", false
		}
		return strings.Join(parts[:rule.keep], "."), true
	}
	return "", false
}

// ByID returns the record with the given feature id, or nil.
func (idx *Index) ByID(id string) *lock.FeatureRecord {
	return idx.byID[id]
}

// Len is the number of records by id.
func (idx *Index) Len() int {
	return len(idx.byID)
}

// KeyCount is the number of distinct compatibility keys.
func (idx *Index) KeyCount() int {
	return len(idx.byKey)
}
