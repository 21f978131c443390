package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codewithboateng/riskrule/internal/model"
	"github.com/codewithboateng/riskrule/internal/parser"
)

func parseDoc(t *testing.T, doc string) *model.RuleModel {
	t.Helper()
	m, err := parser.Parse([]byte(doc))
	require.NoError(t, err)
	return m
}

const highRiskDoc = `{
  "model_id": "M501",
  "name": "High-Risk Open Banking Transactions",
  "threshold": 0.9,
  "evaluations": [
    {"name": "Transaction_Amount_Check", "type": "comparison", "left": "transaction_amount", "operator": ">", "right": 10000, "weight": 4},
    {"name": "Account_Age_Check", "type": "comparison", "left": "account_age_days", "operator": "<", "right": 30, "weight": 3},
    {"name": "High_Risk_Transaction_Logic", "type": "logical", "operator": "AND", "operands": ["Transaction_Amount_Check", "Account_Age_Check"], "weight": 5}
  ],
  "actions": [{"type": "flag_transaction", "reason": "High risk transaction pattern detected"}]
}`

func TestResolve_SampleModel(t *testing.T) {
	g, errs := Resolve(parseDoc(t, highRiskDoc))
	require.Empty(t, errs)

	assert.Equal(t, []string{"Transaction_Amount_Check", "Account_Age_Check", "High_Risk_Transaction_Logic"}, g.Nodes)
	assert.Equal(t, []string{"Transaction_Amount_Check", "Account_Age_Check"}, g.DependsOn("High_Risk_Transaction_Logic"))
	assert.Empty(t, g.DependsOn("Transaction_Amount_Check"))
	assert.Equal(t, 1, g.MaxDepth())
	assert.Equal(t, 2, g.EdgeCount())
}

func TestResolve_TopoOrderIsDependencyFirstAndStable(t *testing.T) {
	g, errs := Resolve(parseDoc(t, highRiskDoc))
	require.Empty(t, errs)
	assert.Equal(t, []string{"Transaction_Amount_Check", "Account_Age_Check", "High_Risk_Transaction_Logic"}, g.TopoOrder())
}

func TestResolve_MissingReference(t *testing.T) {
	doc := `{
  "model_id": "M1", "name": "n", "threshold": 0.5,
  "evaluations": [
    {"name": "l", "type": "logical", "operator": "AND", "operands": ["non_existent"]}
  ],
  "actions": [{"type": "send_alert", "reason": "r"}]
}`
	_, errs := Resolve(parseDoc(t, doc))
	require.Len(t, errs, 1)
	missing, ok := errs[0].(*MissingReference)
	require.True(t, ok, "expected *MissingReference, got %T", errs[0])
	assert.Equal(t, "l", missing.From)
	assert.Equal(t, "non_existent", missing.To)
}

func TestResolve_CycleReportsFullPath(t *testing.T) {
	doc := `{
  "model_id": "M1", "name": "n", "threshold": 0.5,
  "evaluations": [
    {"name": "final", "type": "logical", "operator": "AND", "operands": ["mid"]},
    {"name": "mid", "type": "logical", "operator": "OR", "operands": ["final"]}
  ],
  "actions": [{"type": "send_alert", "reason": "r"}]
}`
	g, errs := Resolve(parseDoc(t, doc))
	require.Len(t, errs, 1)
	cyc, ok := errs[0].(*CyclicReference)
	require.True(t, ok, "expected *CyclicReference, got %T", errs[0])
	assert.Equal(t, []string{"final", "mid", "final"}, cyc.Cycle)

	// Cyclic nodes never settle into a topological order.
	assert.Empty(t, g.TopoOrder())
}

func TestResolve_InlineOperandsBecomeSynthesizedNodes(t *testing.T) {
	doc := `{
  "model_id": "M1", "name": "n", "threshold": 0.5,
  "evaluations": [
    {"name": "combo", "type": "logical", "operator": "OR", "operands": [
      {"type": "comparison", "left": "amount", "operator": ">", "right": 500},
      {"type": "comparison", "left": "country", "operator": "==", "right": "NG"}
    ]}
  ],
  "actions": [{"type": "send_alert", "reason": "r"}]
}`
	g, errs := Resolve(parseDoc(t, doc))
	require.Empty(t, errs)
	assert.Equal(t, []string{"combo", "combo#0", "combo#1"}, g.Nodes)
	assert.Equal(t, []string{"combo#0", "combo#1"}, g.DependsOn("combo"))
	assert.Equal(t, model.KindComparison, g.Kind("combo#0"))
	assert.Equal(t, 1, g.MaxDepth())
}

func TestResolve_MarkerReferenceInStringLiteral(t *testing.T) {
	doc := `{
  "model_id": "M1", "name": "n", "threshold": 0.5,
  "evaluations": [
    {"name": "base", "type": "comparison", "left": "amount", "operator": ">", "right": 100},
    {"name": "marked", "type": "comparison", "left": "score", "operator": "==", "right": "@base"}
  ],
  "actions": [{"type": "send_alert", "reason": "r"}]
}`
	g, errs := Resolve(parseDoc(t, doc))
	require.Empty(t, errs)
	assert.Equal(t, []string{"base"}, g.DependsOn("marked"))
}

func TestResolve_ConditionalBranchNamePromotedToEdge(t *testing.T) {
	doc := `{
  "model_id": "M1", "name": "n", "threshold": 0.5,
  "evaluations": [
    {"name": "base", "type": "comparison", "left": "amount", "operator": ">", "right": 100},
    {"name": "pick", "type": "conditional", "if": "base", "then": "base", "else": "allow"}
  ],
  "actions": [{"type": "send_alert", "reason": "r"}]
}`
	g, errs := Resolve(parseDoc(t, doc))
	require.Empty(t, errs)
	// "base" names an evaluation so it becomes an edge; "allow" does not,
	// so it stays a plain literal.
	assert.Equal(t, []string{"base"}, g.DependsOn("pick"))
}

func TestResolve_DepthFollowsLongestChain(t *testing.T) {
	doc := `{
  "model_id": "M1", "name": "n", "threshold": 0.5,
  "evaluations": [
    {"name": "a", "type": "comparison", "left": "x", "operator": ">", "right": 1},
    {"name": "b", "type": "logical", "operator": "AND", "operands": ["a"]},
    {"name": "c", "type": "logical", "operator": "AND", "operands": ["b"]},
    {"name": "d", "type": "logical", "operator": "AND", "operands": ["c", "a"]}
  ],
  "actions": [{"type": "send_alert", "reason": "r"}]
}`
	g, errs := Resolve(parseDoc(t, doc))
	require.Empty(t, errs)
	assert.Equal(t, 3, g.MaxDepth())
	assert.Equal(t, []string{"a", "b", "c", "d"}, g.TopoOrder())
}
