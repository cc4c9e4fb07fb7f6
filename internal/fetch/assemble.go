package fetch

import (
	"sort"

	"github.com/jward/baseline-warden/internal/lock"
)

// AssembleLock merges dataset metadata with Web Status Baseline data into
// lock records sorted by feature id.
//
// Every dataset feature becomes a record carrying its compatibility keys.
// The title prefers the Web Status name. Status and dates come from Web
// Status when it lists the feature, else from the dataset's status block.
// Features only Web Status knows are added with no keys.
func AssembleLock(idx *DatasetIndex, baseline []WebStatusFeature) []lock.FeatureRecord {
	byID := make(map[string]*WebStatusFeature, len(baseline))
	for i := range baseline {
		byID[baseline[i].FeatureID] = &baseline[i]
	}

	records := make([]lock.FeatureRecord, 0, len(idx.Features)+len(baseline))
	for _, id := range idx.IDs {
		meta := idx.Features[id]
		rec := lock.FeatureRecord{
			ID:         id,
			Title:      strPtr(meta.Name),
			Status:     meta.Status,
			LowDate:    meta.LowDate,
			HighDate:   meta.HighDate,
			CompatKeys: append([]string{}, meta.CompatFeatures...),
		}
		if ws := byID[id]; ws != nil {
			if ws.Name != "" {
				rec.Title = strPtr(ws.Name)
			}
			applyBaseline(&rec, ws.Baseline)
		}
		records = append(records, rec)
	}

	for i := range baseline {
		ws := &baseline[i]
		if ws.FeatureID == "" {
			continue
		}
		if _, ok := idx.Features[ws.FeatureID]; ok {
			continue
		}
		if byID[ws.FeatureID] != ws {
			// Repeated id in the API response; the last entry was kept.
			continue
		}
		title := ws.Name
		if title == "" {
			title = ws.FeatureID
		}
		rec := lock.FeatureRecord{ID: ws.FeatureID, Title: strPtr(title), CompatKeys: []string{}}
		applyBaseline(&rec, ws.Baseline)
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records
}

// applyBaseline overwrites status and dates with the Web Status values. An
// unrecognized status leaves the record without one; a missing block leaves
// the record unchanged.
func applyBaseline(rec *lock.FeatureRecord, b *BaselineInfo) {
	if b == nil {
		return
	}
	rec.Status = nil
	if s, err := lock.ParseStatus(b.Status); err == nil {
		rec.Status = &s
	}
	rec.LowDate = parseDate(b.LowDate)
	rec.HighDate = parseDate(b.HighDate)
}

func strPtr(s string) *string { return &s }
