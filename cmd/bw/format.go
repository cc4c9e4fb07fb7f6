package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jward/baseline-warden/internal/store"
)

// historyRun is the JSON form of a recorded run.
type historyRun struct {
	ID              int64      `json:"id"`
	StartedAt       time.Time  `json:"started_at"`
	Root            string     `json:"root"`
	LockGeneratedAt *time.Time `json:"lock_generated_at,omitempty"`
	FileCount       int        `json:"file_count"`
	Total           int        `json:"total"`
	Passed          int        `json:"passed"`
	Warned          int        `json:"warned"`
	Failed          int        `json:"failed"`
	Blocking        bool       `json:"blocking"`
}

// historyFinding is the JSON form of a recorded finding.
type historyFinding struct {
	File        string  `json:"file"`
	Line        int     `json:"line"`
	Key         string  `json:"compatibility_key"`
	Status      string  `json:"status"`
	Outcome     string  `json:"outcome"`
	Severity    string  `json:"severity"`
	FeatureID   *string `json:"feature_id"`
	Message     string  `json:"message"`
	Allowlisted bool    `json:"allowlisted"`
}

type historyRunJSON struct {
	Run      historyRun       `json:"run"`
	Findings []historyFinding `json:"findings"`
}

func runToJSON(r *store.Run) historyRun {
	return historyRun{
		ID:              r.ID,
		StartedAt:       r.StartedAt.UTC(),
		Root:            r.Root,
		LockGeneratedAt: r.LockGeneratedAt,
		FileCount:       r.FileCount,
		Total:           r.Total,
		Passed:          r.Passed,
		Warned:          r.Warned,
		Failed:          r.Failed,
		Blocking:        r.Blocking,
	}
}

func findingsToJSON(findings []*store.RunFinding) []historyFinding {
	out := make([]historyFinding, len(findings))
	for i, f := range findings {
		out[i] = historyFinding{
			File:        f.File,
			Line:        f.Line,
			Key:         f.Key,
			Status:      f.Status,
			Outcome:     f.Outcome,
			Severity:    f.Severity,
			FeatureID:   f.FeatureID,
			Message:     f.Message,
			Allowlisted: f.Allowlisted,
		}
	}
	return out
}

// formatRunsText formats recorded runs as aligned columns.
func formatRunsText(w io.Writer, runs []*store.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tROOT\tFILES\tTOTAL\tFAIL\tWARN\tPASS\tBLOCKING")
	for _, r := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%t\n",
			r.ID, r.StartedAt.UTC().Format(time.RFC3339), r.Root, r.FileCount,
			r.Total, r.Failed, r.Warned, r.Passed, r.Blocking)
	}
	tw.Flush()
}

// formatRunText formats one run and its findings.
func formatRunText(w io.Writer, r *store.Run, findings []*store.RunFinding) {
	fmt.Fprintf(w, "Run %d (%s)\n", r.ID, r.StartedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "Root: %s\n", r.Root)
	if r.LockGeneratedAt != nil {
		fmt.Fprintf(w, "Lock: generated_at=%s\n", r.LockGeneratedAt.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(w, "Total: %d • Failures: %d • Warnings: %d • Passes: %d\n",
		r.Total, r.Failed, r.Warned, r.Passed)
	if len(findings) == 0 {
		return
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEVERITY\tSTATUS\tFEATURE\tKEY\tLOCATION\tMESSAGE")
	for _, f := range findings {
		feature := "<unknown>"
		if f.FeatureID != nil {
			feature = *f.FeatureID
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s:%d\t%s\n",
			f.Severity, f.Status, feature, f.Key, f.File, f.Line, f.Message)
	}
	tw.Flush()
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
