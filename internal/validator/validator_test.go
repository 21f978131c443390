package validator

import (
	"errors"
	"testing"

	"github.com/codewithboateng/riskrule/internal/parser"
)

func parseDoc(t *testing.T, doc string) []error {
	t.Helper()
	m, err := parser.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return Validate(m)
}

const validDoc = `{
  "model_id": "M1", "name": "n", "threshold": 0.5,
  "evaluations": [
    {"name": "a", "type": "comparison", "left": "x", "operator": ">", "right": 1, "weight": 3}
  ],
  "actions": [{"type": "send_alert", "reason": "r"}],
  "metadata": {"created_at": "2024-01-15T09:30:00Z"}
}`

func TestValidate_CleanModel(t *testing.T) {
	if errs := parseDoc(t, validDoc); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestValidate_ThresholdOutOfRange(t *testing.T) {
	doc := `{
  "model_id": "M1", "name": "n", "threshold": 1.5,
  "evaluations": [{"name": "a", "type": "comparison", "left": "x", "operator": ">", "right": 1}],
  "actions": [{"type": "send_alert", "reason": "r"}]
}`
	errs := parseDoc(t, doc)
	rv := findRange(t, errs, "threshold")
	if rv.Value != 1.5 || rv.Min != 0 || rv.Max != 1 {
		t.Fatalf("unexpected violation: %+v", rv)
	}
}

func TestValidate_WeightOutOfRange(t *testing.T) {
	doc := `{
  "model_id": "M1", "name": "n", "threshold": 0.5,
  "evaluations": [{"name": "a", "type": "comparison", "left": "x", "operator": ">", "right": 1, "weight": 7}],
  "actions": [{"type": "send_alert", "reason": "r"}]
}`
	errs := parseDoc(t, doc)
	rv := findRange(t, errs, "evaluations[0].weight")
	if rv.Value != 7 || rv.Min != 1 || rv.Max != 5 {
		t.Fatalf("unexpected violation: %+v", rv)
	}
}

func TestValidate_InlineWeightChecked(t *testing.T) {
	doc := `{
  "model_id": "M1", "name": "n", "threshold": 0.5,
  "evaluations": [
    {"name": "l", "type": "logical", "operator": "OR", "operands": [
      {"type": "comparison", "left": "x", "operator": ">", "right": 1, "weight": 9}
    ]}
  ],
  "actions": [{"type": "send_alert", "reason": "r"}]
}`
	errs := parseDoc(t, doc)
	findRange(t, errs, "evaluations[0].operands[0].weight")
}

func TestValidate_DuplicateNames(t *testing.T) {
	doc := `{
  "model_id": "M1", "name": "n", "threshold": 0.5,
  "evaluations": [
    {"name": "a", "type": "comparison", "left": "x", "operator": ">", "right": 1},
    {"name": "a", "type": "comparison", "left": "y", "operator": "<", "right": 2}
  ],
  "actions": [{"type": "send_alert", "reason": "r"}]
}`
	errs := parseDoc(t, doc)
	for _, e := range errs {
		var dup *DuplicateName
		if errors.As(e, &dup) {
			if dup.Name != "a" {
				t.Fatalf("duplicate name = %q, want a", dup.Name)
			}
			return
		}
	}
	t.Fatalf("no DuplicateName in %v", errs)
}

func TestValidate_ConditionOperatorNarrowed(t *testing.T) {
	doc := `{
  "model_id": "M1", "name": "n", "threshold": 0.5,
  "evaluations": [
    {"name": "agg", "type": "aggregation", "aggregation": "SUM", "field": "amount",
     "conditions": [{"left": "country", "operator": "IN", "right": ["NG", "GH"]}]}
  ],
  "actions": [{"type": "send_alert", "reason": "r"}]
}`
	errs := parseDoc(t, doc)
	findSemantic(t, errs, "evaluations[0].conditions[0].operator")
}

func TestValidate_NegativeLimit(t *testing.T) {
	doc := `{
  "model_id": "M1", "name": "n", "threshold": 0.5,
  "evaluations": [
    {"name": "agg", "type": "aggregation", "aggregation": "COUNT", "field": "txn", "limit": -5}
  ],
  "actions": [{"type": "send_alert", "reason": "r"}]
}`
	errs := parseDoc(t, doc)
	findSemantic(t, errs, "evaluations[0].limit")
}

func TestValidate_BlankActionReason(t *testing.T) {
	doc := `{
  "model_id": "M1", "name": "n", "threshold": 0.5,
  "evaluations": [{"name": "a", "type": "comparison", "left": "x", "operator": ">", "right": 1}],
  "actions": [{"type": "send_alert", "reason": "   "}]
}`
	errs := parseDoc(t, doc)
	findSemantic(t, errs, "actions[0].reason")
}

func TestValidate_EmptyEvaluationsAndActions(t *testing.T) {
	doc := `{
  "model_id": "M1", "name": "n", "threshold": 0.5,
  "evaluations": [],
  "actions": []
}`
	errs := parseDoc(t, doc)
	findSemantic(t, errs, "evaluations")
	findSemantic(t, errs, "actions")
}

func TestValidate_BadMetadataTimestamp(t *testing.T) {
	doc := `{
  "model_id": "M1", "name": "n", "threshold": 0.5,
  "evaluations": [{"name": "a", "type": "comparison", "left": "x", "operator": ">", "right": 1}],
  "actions": [{"type": "send_alert", "reason": "r"}],
  "metadata": {"created_at": "January 15th 2024"}
}`
	errs := parseDoc(t, doc)
	findSemantic(t, errs, "metadata.created_at")
}

func findRange(t *testing.T, errs []error, path string) *RangeViolation {
	t.Helper()
	for _, e := range errs {
		var rv *RangeViolation
		if errors.As(e, &rv) && rv.Path == path {
			return rv
		}
	}
	t.Fatalf("no RangeViolation at %q in %v", path, errs)
	return nil
}

func findSemantic(t *testing.T, errs []error, path string) {
	t.Helper()
	for _, e := range errs {
		var se *SemanticError
		if errors.As(e, &se) && se.Path == path {
			return
		}
	}
	t.Fatalf("no SemanticError at %q in %v", path, errs)
}
