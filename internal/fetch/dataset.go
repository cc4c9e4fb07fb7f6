package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jward/baseline-warden/internal/lock"
)

// StringList decodes from either a JSON string or an array of strings.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = StringList{s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("want string or list of strings: %w", err)
	}
	*l = list
	return nil
}

// BaselineLevel is web-features' baseline field: "high", "low" or false.
type BaselineLevel string

const (
	LevelHigh  BaselineLevel = "high"
	LevelLow   BaselineLevel = "low"
	LevelFalse BaselineLevel = "false"
)

func (b *BaselineLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*b = BaselineLevel(s)
		return nil
	}
	var v bool
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("baseline must be a string or boolean: %w", err)
	}
	if v {
		*b = "true"
	} else {
		*b = LevelFalse
	}
	return nil
}

// Status maps a level to a lock status.
func (b BaselineLevel) Status() (lock.Status, bool) {
	switch b {
	case LevelHigh:
		return lock.StatusWidely, true
	case LevelLow:
		return lock.StatusNewly, true
	case LevelFalse:
		return lock.StatusLimited, true
	}
	return "", false
}

// DatasetStatus is the status block of a web-features entry.
type DatasetStatus struct {
	Baseline         BaselineLevel `json:"baseline,omitempty"`
	BaselineLowDate  string        `json:"baseline_low_date,omitempty"`
	BaselineHighDate string        `json:"baseline_high_date,omitempty"`
}

// DatasetEntry is one feature of the web-features dataset.
type DatasetEntry struct {
	Name           string         `json:"name,omitempty"`
	CompatFeatures []string       `json:"compat_features,omitempty"`
	Spec           StringList     `json:"spec,omitempty"`
	Group          StringList     `json:"group,omitempty"`
	Kind           StringList     `json:"kind,omitempty"`
	Status         *DatasetStatus `json:"status,omitempty"`
}

// Dataset is the web-features data.json document.
type Dataset struct {
	Features map[string]DatasetEntry `json:"features"`
}

// FetchDataset downloads the web-features dataset.
func (c *Client) FetchDataset(ctx context.Context) (*Dataset, error) {
	var ds Dataset
	if err := c.getJSON(ctx, c.datasetURL, &ds); err != nil {
		return nil, fmt.Errorf("fetch dataset: %w", err)
	}
	return &ds, nil
}

// FeatureMetadata is the dataset's view of a feature.
type FeatureMetadata struct {
	ID             string
	Name           string
	CompatFeatures []string
	SpecURLs       []string
	Groups         []string
	Kinds          []string
	// Status and dates come from the dataset's own status block and are
	// used when the Web Status API has no entry for the feature.
	Status   *lock.Status
	LowDate  *lock.Date
	HighDate *lock.Date
}

// DatasetIndex maps feature ids to metadata and compatibility keys to
// feature ids.
type DatasetIndex struct {
	Features     map[string]*FeatureMetadata
	KeyToFeature map[string]string
	// IDs lists feature ids in sorted order.
	IDs []string
}

// BuildDatasetIndex indexes ds. Features are visited in sorted id order and
// a key listed by several features maps to the first.
func BuildDatasetIndex(ds *Dataset) *DatasetIndex {
	idx := &DatasetIndex{
		Features:     make(map[string]*FeatureMetadata, len(ds.Features)),
		KeyToFeature: make(map[string]string),
	}
	for id := range ds.Features {
		idx.IDs = append(idx.IDs, id)
	}
	sort.Strings(idx.IDs)

	for _, id := range idx.IDs {
		entry := ds.Features[id]
		meta := &FeatureMetadata{
			ID:             id,
			Name:           entry.Name,
			CompatFeatures: nonEmpty(entry.CompatFeatures),
			SpecURLs:       append([]string(nil), entry.Spec...),
			Groups:         append([]string(nil), entry.Group...),
			Kinds:          append([]string(nil), entry.Kind...),
		}
		if meta.Name == "" {
			meta.Name = id
		}
		if st := entry.Status; st != nil {
			if s, ok := st.Baseline.Status(); ok {
				meta.Status = &s
			}
			meta.LowDate = parseDate(st.BaselineLowDate)
			meta.HighDate = parseDate(st.BaselineHighDate)
		}
		idx.Features[id] = meta

		for _, key := range meta.CompatFeatures {
			if _, ok := idx.KeyToFeature[key]; !ok {
				idx.KeyToFeature[key] = id
			}
		}
	}
	return idx
}

// parseDate returns nil for empty or unparseable dates.
func parseDate(s string) *lock.Date {
	if s == "" {
		return nil
	}
	d, err := lock.ParseDate(s)
	if err != nil {
		return nil
	}
	return &d
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
