package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/baseline-warden/internal/detect"
	"github.com/jward/baseline-warden/internal/index"
	"github.com/jward/baseline-warden/internal/lock"
)

func status(s lock.Status) *lock.Status { return &s }

func testIndex() *index.Index {
	return index.Build([]lock.FeatureRecord{
		{ID: "feature-widely", Status: status(lock.StatusWidely), CompatKeys: []string{"css.properties.display.grid"}},
		{ID: "feature-newly", Status: status(lock.StatusNewly), CompatKeys: []string{"html.elements.dialog"}},
		{ID: "feature-limited", Status: status(lock.StatusLimited), CompatKeys: []string{"css.properties.position.sticky"}},
		{ID: "feature-nostatus", CompatKeys: []string{"css.at-rules.scope"}},
	})
}

func tokens(keys ...string) []detect.Token {
	out := make([]detect.Token, len(keys))
	for i, k := range keys {
		out[i] = detect.Token{Path: "f", Line: i + 1, Key: k}
	}
	return out
}

func byKey(findings []Finding) map[string]Finding {
	m := make(map[string]Finding, len(findings))
	for _, f := range findings {
		m[f.Token.Key] = f
	}
	return m
}

func TestEvaluate_DefaultPolicy(t *testing.T) {
	t.Parallel()
	findings, summary := Evaluate(testIndex(), tokens(
		"html.elements.dialog",
		"css.properties.display.grid",
		"css.properties.position.sticky",
		"css.properties.unknown",
	), Default())

	got := byKey(findings)
	assert.Equal(t, OutcomePass, got["css.properties.display.grid"].Outcome)
	assert.Equal(t, MsgWidely, got["css.properties.display.grid"].Message)
	assert.Equal(t, OutcomePass, got["html.elements.dialog"].Outcome)
	assert.Equal(t, MsgNewly, got["html.elements.dialog"].Message)
	assert.Equal(t, OutcomeFail, got["css.properties.position.sticky"].Outcome)
	assert.Equal(t, SeverityError, got["css.properties.position.sticky"].Severity)
	assert.Equal(t, MsgLimited, got["css.properties.position.sticky"].Message)
	assert.Equal(t, OutcomeWarn, got["css.properties.unknown"].Outcome)
	assert.Equal(t, SeverityWarning, got["css.properties.unknown"].Severity)
	assert.Equal(t, lock.StatusUnknown, got["css.properties.unknown"].Status)
	assert.Nil(t, got["css.properties.unknown"].Feature)

	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 2, summary.Outcomes[OutcomePass])
	assert.Equal(t, 1, summary.Outcomes[OutcomeFail])
	assert.Equal(t, 1, summary.Outcomes[OutcomeWarn])
	assert.True(t, summary.HasBlockingFailures())
}

func TestEvaluate_AllowlistAndStrictPolicy(t *testing.T) {
	t.Parallel()
	pol := Policy{
		RequiredMaturity: RequireWidely,
		UnknownBehavior:  UnknownFail,
		AllowFeatureIDs:  []string{"feature-limited"},
		AllowKeys:        []string{"css.properties.unknown"},
	}

	findings, summary := Evaluate(testIndex(), tokens(
		"css.properties.position.sticky",
		"css.properties.unknown",
		"html.elements.dialog",
	), pol)

	got := byKey(findings)
	sticky := got["css.properties.position.sticky"]
	assert.Equal(t, OutcomePass, sticky.Outcome)
	assert.Equal(t, MsgAllowlisted, sticky.Message)
	assert.True(t, sticky.Allowlisted)
	assert.Equal(t, lock.StatusLimited, sticky.Status, "status is kept for allowlisted findings")

	assert.True(t, got["css.properties.unknown"].Allowlisted)
	assert.Equal(t, OutcomeWarn, got["html.elements.dialog"].Outcome)
	assert.Equal(t, MsgNewlyNotAllowed, got["html.elements.dialog"].Message)

	assert.Equal(t, map[Outcome]int{OutcomePass: 2, OutcomeWarn: 1}, summary.Outcomes)
	assert.False(t, summary.HasBlockingFailures())
}

func TestEvaluate_UnknownBehaviors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		behavior UnknownBehavior
		outcome  Outcome
		message  string
	}{
		{UnknownWarn, OutcomeWarn, MsgUnknown},
		{UnknownFail, OutcomeFail, MsgUnknown},
		{UnknownIgnore, OutcomePass, MsgUnknownIgnored},
	}
	for _, tt := range tests {
		t.Run(string(tt.behavior), func(t *testing.T) {
			t.Parallel()
			pol := Default()
			pol.UnknownBehavior = tt.behavior

			findings, _ := Evaluate(testIndex(), tokens("css.properties.nope", "css.at-rules.scope"), pol)
			require.Len(t, findings, 2)
			for _, f := range findings {
				assert.Equal(t, lock.StatusUnknown, f.Status)
				assert.Equal(t, tt.outcome, f.Outcome)
				assert.Equal(t, tt.message, f.Message)
			}
		})
	}
}

func TestEvaluate_DegradedResolution(t *testing.T) {
	t.Parallel()
	findings, _ := Evaluate(testIndex(), tokens("html.elements.dialog.closedby"), Default())

	require.Len(t, findings, 1)
	require.NotNil(t, findings[0].Feature)
	assert.Equal(t, "feature-newly", findings[0].Feature.ID)
	assert.Equal(t, lock.StatusNewly, findings[0].Status)
}

func TestEvaluate_AllowlistByFeatureID(t *testing.T) {
	t.Parallel()
	pol := Default()
	pol.AllowFeatureIDs = []string{"feature-limited"}

	findings, _ := Evaluate(testIndex(), tokens("css.properties.position.sticky"), pol)
	assert.True(t, findings[0].Allowlisted)
}

func TestEvaluate_OneFindingPerTokenInOrder(t *testing.T) {
	t.Parallel()
	in := tokens("a", "b", "a", "c")
	findings, summary := Evaluate(testIndex(), in, Default())

	require.Len(t, findings, len(in))
	for i := range in {
		assert.Equal(t, in[i], findings[i].Token)
	}
	assert.Equal(t, 4, summary.Statuses[lock.StatusUnknown])
}

func TestEvaluate_Empty(t *testing.T) {
	t.Parallel()
	findings, summary := Evaluate(testIndex(), nil, Default())
	assert.Empty(t, findings)
	assert.Equal(t, 0, summary.Total)
	assert.False(t, summary.HasBlockingFailures())
}

func TestParse(t *testing.T) {
	t.Parallel()

	m, err := ParseRequiredMaturity("WIDELY")
	require.NoError(t, err)
	assert.Equal(t, RequireWidely, m)
	_, err = ParseRequiredMaturity("newly")
	assert.Error(t, err)

	b, err := ParseUnknownBehavior("ignore")
	require.NoError(t, err)
	assert.Equal(t, UnknownIgnore, b)
	_, err = ParseUnknownBehavior("panic")
	assert.Error(t, err)
}

func TestPolicyValidate(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Default().Validate())
	assert.Error(t, Policy{RequiredMaturity: "sometimes", UnknownBehavior: UnknownWarn}.Validate())
	assert.Error(t, Policy{RequiredMaturity: RequireWidely}.Validate())
}

func TestOutcomeSeverity(t *testing.T) {
	t.Parallel()
	assert.Equal(t, SeverityInfo, OutcomePass.Severity())
	assert.Equal(t, SeverityWarning, OutcomeWarn.Severity())
	assert.Equal(t, SeverityError, OutcomeFail.Severity())
}
