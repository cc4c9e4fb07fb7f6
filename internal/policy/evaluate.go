package policy

import (
	"github.com/jward/baseline-warden/internal/detect"
	"github.com/jward/baseline-warden/internal/lock"
)

// Finding messages.
const (
	MsgAllowlisted     = "Allowlisted feature"
	MsgLimited         = "Feature baseline status is limited"
	MsgWidely          = "Feature is widely available"
	MsgNewly           = "Feature is newly available"
	MsgNewlyNotAllowed = "Feature is newly available (policy requires widely)"
	MsgUnknown         = "Feature mapping is unknown"
	MsgUnknownIgnored  = "Feature mapping is unknown (ignored)"
)

// Resolver looks up the feature record for a compatibility key.
type Resolver interface {
	Resolve(key string) *lock.FeatureRecord
}

// Finding is the evaluation of one token. Feature is nil when the token did
// not resolve.
type Finding struct {
	Token       detect.Token
	Feature     *lock.FeatureRecord
	Status      lock.Status
	Outcome     Outcome
	Severity    Severity
	Message     string
	Allowlisted bool
}

// Summary aggregates findings by outcome and by effective status.
type Summary struct {
	Total    int
	Outcomes map[Outcome]int
	Statuses map[lock.Status]int
}

// HasBlockingFailures reports whether any finding failed.
func (s Summary) HasBlockingFailures() bool {
	return s.Outcomes[OutcomeFail] > 0
}

// Evaluate resolves every token and applies pol. It returns one finding per
// token, in token order, and the summary of those findings.
func Evaluate(r Resolver, tokens []detect.Token, pol Policy) ([]Finding, Summary) {
	allowIDs := toSet(pol.AllowFeatureIDs)
	allowKeys := toSet(pol.AllowKeys)

	findings := make([]Finding, 0, len(tokens))
	summary := Summary{
		Outcomes: make(map[Outcome]int),
		Statuses: make(map[lock.Status]int),
	}

	for _, tok := range tokens {
		feature := r.Resolve(tok.Key)
		status := feature.EffectiveStatus()

		var (
			outcome     Outcome
			message     string
			allowlisted bool
		)
		if allowKeys[tok.Key] || (feature != nil && allowIDs[feature.ID]) {
			outcome, message, allowlisted = OutcomePass, MsgAllowlisted, true
		} else {
			outcome, message = decide(status, pol)
		}

		findings = append(findings, Finding{
			Token:       tok,
			Feature:     feature,
			Status:      status,
			Outcome:     outcome,
			Severity:    outcome.Severity(),
			Message:     message,
			Allowlisted: allowlisted,
		})
		summary.Outcomes[outcome]++
		summary.Statuses[status]++
	}
	summary.Total = len(findings)
	return findings, summary
}

func decide(status lock.Status, pol Policy) (Outcome, string) {
	switch status {
	case lock.StatusLimited:
		return OutcomeFail, MsgLimited
	case lock.StatusWidely:
		return OutcomePass, MsgWidely
	case lock.StatusNewly:
		if pol.RequiredMaturity == RequireWidely {
			return OutcomeWarn, MsgNewlyNotAllowed
		}
		return OutcomePass, MsgNewly
	}

	switch pol.UnknownBehavior {
	case UnknownFail:
		return OutcomeFail, MsgUnknown
	case UnknownIgnore:
		return OutcomePass, MsgUnknownIgnored
	}
	return OutcomeWarn, MsgUnknown
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, s := range items {
		set[s] = true
	}
	return set
}
