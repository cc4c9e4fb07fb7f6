// Package report renders scan findings for people and for CI systems.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/jward/baseline-warden/internal/lock"
	"github.com/jward/baseline-warden/internal/policy"
)

// UnknownFeature is shown for tokens that resolved to no feature.
const UnknownFeature = "<unknown>"

// WriteConsole writes the findings table followed by the two summary lines.
// With summaryOnly the table is omitted.
func WriteConsole(w io.Writer, findings []policy.Finding, summary policy.Summary, summaryOnly bool) error {
	if !summaryOnly && len(findings) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "SEVERITY\tSTATUS\tFEATURE\tKEY\tLOCATION\tMESSAGE")
		for _, f := range findings {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s:%d\t%s\n",
				f.Severity, f.Status, featureTitle(f), f.Token.Key, f.Token.Path, f.Token.Line, consoleMessage(f))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return WriteSummary(w, summary)
}

// WriteSummary writes the outcome and status count lines.
func WriteSummary(w io.Writer, s policy.Summary) error {
	_, err := fmt.Fprintf(w, "Total: %d • Failures: %d • Warnings: %d • Passes: %d\n",
		s.Total, s.Outcomes[policy.OutcomeFail], s.Outcomes[policy.OutcomeWarn], s.Outcomes[policy.OutcomePass])
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "Statuses: widely=%d, newly=%d, limited=%d, unknown=%d\n",
		s.Statuses[lock.StatusWidely], s.Statuses[lock.StatusNewly],
		s.Statuses[lock.StatusLimited], s.Statuses[lock.StatusUnknown])
	return err
}

func featureTitle(f policy.Finding) string {
	if f.Feature == nil {
		return UnknownFeature
	}
	return f.Feature.DisplayTitle()
}

func consoleMessage(f policy.Finding) string {
	if f.Severity == policy.SeverityInfo && f.Allowlisted {
		return f.Message + " (allowlisted)"
	}
	return f.Message
}
