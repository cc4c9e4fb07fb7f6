package report

import (
	"fmt"
	"time"

	"github.com/jward/baseline-warden/internal/fsutil"
	"github.com/jward/baseline-warden/internal/lock"
	"github.com/jward/baseline-warden/internal/policy"
)

// DocumentVersion is the JSON report format version.
const DocumentVersion = "1"

// Document is the JSON report.
type Document struct {
	Version     string          `json:"version"`
	GeneratedAt time.Time       `json:"generated_at"`
	Summary     DocumentSummary `json:"summary"`
	Findings    []DocumentEntry `json:"findings"`
}

// DocumentSummary lists every outcome and status, including zero counts.
type DocumentSummary struct {
	Total    int                    `json:"total"`
	Outcomes map[policy.Outcome]int `json:"outcomes"`
	Statuses map[lock.Status]int    `json:"statuses"`
}

// DocumentEntry is one finding in the JSON report.
type DocumentEntry struct {
	File        string          `json:"file"`
	Line        int             `json:"line"`
	Key         string          `json:"compatibility_key"`
	Status      lock.Status     `json:"status"`
	Severity    policy.Severity `json:"severity"`
	Message     string          `json:"message"`
	Feature     FeatureRef      `json:"feature"`
	Allowlisted bool            `json:"allowlisted"`
}

// FeatureRef identifies the resolved feature; both fields are null for
// unresolved tokens.
type FeatureRef struct {
	ID    *string `json:"id"`
	Title *string `json:"title"`
}

// NewDocument builds the JSON report for a scan.
func NewDocument(findings []policy.Finding, summary policy.Summary, generatedAt time.Time) *Document {
	doc := &Document{
		Version:     DocumentVersion,
		GeneratedAt: generatedAt.UTC(),
		Summary: DocumentSummary{
			Total:    summary.Total,
			Outcomes: make(map[policy.Outcome]int, len(policy.Outcomes)),
			Statuses: make(map[lock.Status]int, len(lock.Statuses)),
		},
		Findings: make([]DocumentEntry, 0, len(findings)),
	}
	for _, o := range policy.Outcomes {
		doc.Summary.Outcomes[o] = summary.Outcomes[o]
	}
	for _, s := range lock.Statuses {
		doc.Summary.Statuses[s] = summary.Statuses[s]
	}

	for _, f := range findings {
		entry := DocumentEntry{
			File:        f.Token.Path,
			Line:        f.Token.Line,
			Key:         f.Token.Key,
			Status:      f.Status,
			Severity:    f.Severity,
			Message:     f.Message,
			Allowlisted: f.Allowlisted,
		}
		if f.Feature != nil {
			id, title := f.Feature.ID, f.Feature.DisplayTitle()
			entry.Feature = FeatureRef{ID: &id, Title: &title}
		}
		doc.Findings = append(doc.Findings, entry)
	}
	return doc
}

// WriteJSON writes doc to path atomically.
func WriteJSON(path string, doc *Document) error {
	if err := fsutil.WriteJSONAtomic(path, doc); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
