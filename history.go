package warden

import (
	"github.com/jward/baseline-warden/internal/policy"
	"github.com/jward/baseline-warden/internal/store"
)

// HistoryRecord converts r into the rows stored in the run history.
func (r *Result) HistoryRecord() (*Run, []RunFinding) {
	run := &store.Run{
		StartedAt: r.StartedAt,
		Root:      r.Root,
		FileCount: len(r.Files),
		Total:     r.Summary.Total,
		Passed:    r.Summary.Outcomes[policy.OutcomePass],
		Warned:    r.Summary.Outcomes[policy.OutcomeWarn],
		Failed:    r.Summary.Outcomes[policy.OutcomeFail],
		Blocking:  r.Summary.HasBlockingFailures(),
	}
	if !r.LockGeneratedAt.IsZero() {
		t := r.LockGeneratedAt
		run.LockGeneratedAt = &t
	}

	findings := make([]RunFinding, len(r.Findings))
	for i, f := range r.Findings {
		rf := store.RunFinding{
			File:        f.Token.Path,
			Line:        f.Token.Line,
			Key:         f.Token.Key,
			Status:      string(f.Status),
			Outcome:     string(f.Outcome),
			Severity:    string(f.Severity),
			Message:     f.Message,
			Allowlisted: f.Allowlisted,
		}
		if f.Feature != nil {
			id := f.Feature.ID
			rf.FeatureID = &id
		}
		findings[i] = rf
	}
	return run, findings
}
