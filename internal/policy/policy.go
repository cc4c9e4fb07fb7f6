// Package policy turns resolved tokens into pass, warn or fail findings.
package policy

import (
	"fmt"
	"strings"
)

// Outcome is the verdict for a single token.
type Outcome string

const (
	OutcomePass Outcome = "pass"
	OutcomeWarn Outcome = "warn"
	OutcomeFail Outcome = "fail"
)

// Outcomes lists outcomes in report order.
var Outcomes = []Outcome{OutcomeFail, OutcomeWarn, OutcomePass}

// Severity is derived from an Outcome and drives reporting.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Severity returns the reporting severity for o.
func (o Outcome) Severity() Severity {
	switch o {
	case OutcomeFail:
		return SeverityError
	case OutcomeWarn:
		return SeverityWarning
	}
	return SeverityInfo
}

// RequiredMaturity is the lowest Baseline status that passes without warning.
type RequiredMaturity string

const (
	RequireWidely        RequiredMaturity = "widely"
	RequireNewlyOrWidely RequiredMaturity = "newly_or_widely"
)

// ParseRequiredMaturity accepts "widely" or "newly_or_widely", ignoring case.
func ParseRequiredMaturity(s string) (RequiredMaturity, error) {
	switch m := RequiredMaturity(strings.ToLower(strings.TrimSpace(s))); m {
	case RequireWidely, RequireNewlyOrWidely:
		return m, nil
	}
	return "", fmt.Errorf("invalid required status %q (want widely or newly_or_widely)", s)
}

// UnknownBehavior decides the outcome of tokens with no known status.
type UnknownBehavior string

const (
	UnknownWarn   UnknownBehavior = "warn"
	UnknownFail   UnknownBehavior = "fail"
	UnknownIgnore UnknownBehavior = "ignore"
)

// ParseUnknownBehavior accepts "warn", "fail" or "ignore", ignoring case.
func ParseUnknownBehavior(s string) (UnknownBehavior, error) {
	switch b := UnknownBehavior(strings.ToLower(strings.TrimSpace(s))); b {
	case UnknownWarn, UnknownFail, UnknownIgnore:
		return b, nil
	}
	return "", fmt.Errorf("invalid unknown behavior %q (want warn, fail or ignore)", s)
}

// Policy configures evaluation.
type Policy struct {
	RequiredMaturity RequiredMaturity
	UnknownBehavior  UnknownBehavior
	// AllowFeatureIDs pass any token resolving to one of these features.
	AllowFeatureIDs []string
	// AllowKeys pass tokens with exactly these compatibility keys.
	AllowKeys []string
}

// Default returns the policy used when no configuration overrides it.
func Default() Policy {
	return Policy{
		RequiredMaturity: RequireNewlyOrWidely,
		UnknownBehavior:  UnknownWarn,
	}
}

// Validate reports an invalid maturity or unknown behavior.
func (p Policy) Validate() error {
	if _, err := ParseRequiredMaturity(string(p.RequiredMaturity)); err != nil {
		return err
	}
	if _, err := ParseUnknownBehavior(string(p.UnknownBehavior)); err != nil {
		return err
	}
	return nil
}
