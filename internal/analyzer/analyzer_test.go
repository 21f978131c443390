package analyzer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codewithboateng/riskrule/internal/parser"
	"github.com/codewithboateng/riskrule/internal/resolver"
)

func analyzeDoc(t *testing.T, doc string, cfg Config) *Report {
	t.Helper()
	m, err := parser.Parse([]byte(doc))
	require.NoError(t, err)
	g, errs := resolver.Resolve(m)
	require.Empty(t, errs)
	return Analyze(m, g, cfg)
}

// docWithEvaluations builds a model with n independent comparisons.
func docWithEvaluations(n int) string {
	var b strings.Builder
	b.WriteString(`{"model_id": "M1", "name": "n", "description": "d", "threshold": 0.5, "evaluations": [`)
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `{"name": "check_%d", "type": "comparison", "left": "f%d", "operator": ">", "right": %d}`, i, i, i)
	}
	b.WriteString(`], "actions": [{"type": "send_alert", "reason": "r"}]}`)
	return b.String()
}

func TestAnalyze_HistogramSumsToEvaluationCount(t *testing.T) {
	doc := `{
  "model_id": "M1", "name": "n", "description": "d", "threshold": 0.5,
  "evaluations": [
    {"name": "a", "type": "comparison", "left": "x", "operator": ">", "right": 1},
    {"name": "b", "type": "aggregation", "aggregation": "SUM", "field": "amount"},
    {"name": "c", "type": "logical", "operator": "AND", "operands": ["a", "b"]},
    {"name": "d", "type": "time-based", "left": "created_at", "operator": ">=", "right": "datetime(now, '-2 hours')"}
  ],
  "actions": [{"type": "send_alert", "reason": "r"}]
}`
	rep := analyzeDoc(t, doc, DefaultConfig())

	sum := 0
	for _, n := range rep.Summary.EvaluationTypes {
		sum += n
	}
	assert.Equal(t, rep.Summary.TotalEvaluations, sum)
	assert.Equal(t, 1, rep.Summary.EvaluationTypes["comparison"])
	assert.Equal(t, 1, rep.Summary.EvaluationTypes["logical"])
	assert.Equal(t, 1, rep.Summary.EvaluationTypes["time-based"])
}

func TestAnalyze_EvaluationCountWarning(t *testing.T) {
	cfg := Config{MaxEvaluations: 10, MaxDepth: 5, MaxWeightSpread: 3}

	big := analyzeDoc(t, docWithEvaluations(50), cfg)
	require.NotEmpty(t, big.Warnings)
	found := false
	for _, w := range big.Warnings {
		if w.Category == CategoryComplexity && w.Severity == SeverityMedium {
			found = true
		}
	}
	assert.True(t, found, "expected a MEDIUM Complexity warning, got %v", big.Warnings)

	small := analyzeDoc(t, docWithEvaluations(3), cfg)
	assert.Empty(t, small.Warnings)
}

func TestAnalyze_DeepChainWarning(t *testing.T) {
	var b strings.Builder
	b.WriteString(`{"model_id": "M1", "name": "n", "description": "d", "threshold": 0.5, "evaluations": [`)
	b.WriteString(`{"name": "e0", "type": "comparison", "left": "x", "operator": ">", "right": 1}`)
	for i := 1; i <= 7; i++ {
		fmt.Fprintf(&b, `,{"name": "e%d", "type": "logical", "operator": "AND", "operands": ["e%d"]}`, i, i-1)
	}
	b.WriteString(`], "actions": [{"type": "send_alert", "reason": "r"}]}`)

	rep := analyzeDoc(t, b.String(), Config{MaxEvaluations: 20, MaxDepth: 5, MaxWeightSpread: 3})
	assert.Equal(t, 7, rep.Summary.MaxEvaluationDepth)
	found := false
	for _, w := range rep.Warnings {
		if w.Category == CategoryPerformance && strings.Contains(w.Message, "deep dependency chain") {
			found = true
		}
	}
	assert.True(t, found, "expected a deep-chain Performance warning, got %v", rep.Warnings)
}

func TestAnalyze_DatetimeExtraction(t *testing.T) {
	doc := `{
  "model_id": "M1", "name": "n", "description": "d", "threshold": 0.5,
  "evaluations": [
    {"name": "recent", "type": "time-based", "left": "created_at", "operator": ">=", "right": "datetime(now, '-2 hours')"}
  ],
  "actions": [{"type": "send_alert", "reason": "r"}]
}`
	rep := analyzeDoc(t, doc, DefaultConfig())
	require.Len(t, rep.Details.DatetimeExpressions, 1)
	expr := rep.Details.DatetimeExpressions[0]
	assert.Equal(t, "now", expr.Anchor)
	assert.Equal(t, "-2 hours", expr.Offset)
	assert.Empty(t, rep.Warnings)
}

func TestAnalyze_MalformedDatetimeIsWarningNotError(t *testing.T) {
	doc := `{
  "model_id": "M1", "name": "n", "description": "d", "threshold": 0.5,
  "evaluations": [
    {"name": "recent", "type": "time-based", "left": "created_at", "operator": ">=", "right": "datetime(now, '-2 fortnights')"}
  ],
  "actions": [{"type": "send_alert", "reason": "r"}]
}`
	rep := analyzeDoc(t, doc, DefaultConfig())
	assert.Empty(t, rep.Details.DatetimeExpressions)
	require.Len(t, rep.Warnings, 1)
	assert.Equal(t, CategoryCorrectness, rep.Warnings[0].Category)
	assert.Equal(t, "recent", rep.Warnings[0].Context)
}

func TestAnalyze_ComplexityMonotonicInCount(t *testing.T) {
	cfg := DefaultConfig()
	small := analyzeDoc(t, docWithEvaluations(3), cfg)
	large := analyzeDoc(t, docWithEvaluations(8), cfg)
	assert.Greater(t, large.Summary.ComplexityScore, small.Summary.ComplexityScore)

	// Reproducible: same document, same score.
	again := analyzeDoc(t, docWithEvaluations(8), cfg)
	assert.Equal(t, large.Summary.ComplexityScore, again.Summary.ComplexityScore)
}

func TestAnalyze_Suggestions(t *testing.T) {
	doc := `{
  "model_id": "M1", "name": "n", "threshold": 0.5,
  "evaluations": [
    {"name": "a", "type": "comparison", "left": "x", "operator": ">", "right": 1, "weight": 1},
    {"name": "b", "type": "comparison", "left": "y", "operator": "<", "right": 2, "weight": 5}
  ],
  "actions": [{"type": "send_alert", "reason": "r"}]
}`
	rep := analyzeDoc(t, doc, Config{MaxEvaluations: 10, MaxDepth: 5, MaxWeightSpread: 3})
	require.Len(t, rep.Suggestions, 2)
	assert.Contains(t, rep.Suggestions[0], "description")
	assert.Contains(t, rep.Suggestions[1], "weights")
}

func TestAnalyze_WeightsRecorded(t *testing.T) {
	rep := analyzeDoc(t, docWithEvaluations(2), DefaultConfig())
	assert.Equal(t, map[string]int{"check_0": 1, "check_1": 1}, rep.Details.EvaluationWeights)
}

func TestParseDatetime(t *testing.T) {
	cases := []struct {
		raw    string
		anchor string
		offset string
		ok     bool
	}{
		{"datetime(now, '-2 hours')", "now", "-2 hours", true},
		{"datetime(now, '+30 mins')", "now", "+30 mins", true},
		{"datetime(now, '1 week')", "now", "1 week", true},
		{"datetime(now)", "now", "", true},
		{"datetime('2024-01-15T09:30:00Z', '-1 day')", "2024-01-15T09:30:00Z", "-1 day", true},
		{"datetime('2024-01-01', '-2 hours')", "2024-01-01", "-2 hours", true},
		{`datetime(now, "-2 hours")`, "now", "-2 hours", true},
		{`datetime("2024-01-01", "-1 day")`, "2024-01-01", "-1 day", true},
		{"datetime('')", "", "", false},
		{"datetime(now, '-2 fortnights')", "", "", false},
		{"datetime(now, -2 hours)", "", "", false},
		{"datetime(yesterday, '-1 day')", "", "", false},
		{"datetime(now, '-x hours')", "", "", false},
		{"datetime(a, b, c)", "", "", false},
	}
	for _, tc := range cases {
		expr, err := parseDatetime(tc.raw)
		if tc.ok {
			require.NoError(t, err, tc.raw)
			assert.Equal(t, tc.anchor, expr.Anchor, tc.raw)
			assert.Equal(t, tc.offset, expr.Offset, tc.raw)
		} else {
			assert.Error(t, err, tc.raw)
		}
	}
}

func TestFindDatetime_DateOnlyAnchor(t *testing.T) {
	exprs, malformed := findDatetime("datetime('2024-01-01', '-2 hours')")
	require.Empty(t, malformed)
	require.Len(t, exprs, 1)
	assert.Equal(t, "2024-01-01", exprs[0].Anchor)
	assert.Equal(t, "-2 hours", exprs[0].Offset)
}

func TestSortWarnings(t *testing.T) {
	ws := []Warning{
		{Severity: SeverityLow, Category: CategoryStyle, Message: "c"},
		{Severity: SeverityHigh, Category: CategoryCorrectness, Message: "a"},
		{Severity: SeverityMedium, Category: CategoryComplexity, Message: "b"},
	}
	SortWarnings(ws)
	assert.Equal(t, SeverityHigh, ws[0].Severity)
	assert.Equal(t, SeverityMedium, ws[1].Severity)
	assert.Equal(t, SeverityLow, ws[2].Severity)
}
