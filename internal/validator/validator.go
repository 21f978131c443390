package validator

import (
	"fmt"
	"strings"
	"time"

	"github.com/codewithboateng/riskrule/internal/model"
)

// Value-domain bounds. The parser guarantees shape; this package
// guarantees meaning.
const (
	MinThreshold = 0.0
	MaxThreshold = 1.0
	MinWeight    = 1
	MaxWeight    = 5
)

// RangeViolation reports a numeric field outside its allowed interval.
type RangeViolation struct {
	Path  string
	Value float64
	Min   float64
	Max   float64
}

func (e *RangeViolation) Error() string {
	return fmt.Sprintf("%s: value %v out of range [%v, %v]", e.Path, e.Value, e.Min, e.Max)
}

// DuplicateName reports two evaluations sharing a name.
type DuplicateName struct {
	Name string
}

func (e *DuplicateName) Error() string {
	return fmt.Sprintf("duplicate evaluation name %q", e.Name)
}

// SemanticError covers the remaining meaning-level violations.
type SemanticError struct {
	Path    string
	Message string
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Validate checks the value-domain rules of a parsed model and returns
// every violation found. A nil result means the model is semantically
// sound; reference integrity is the resolver's concern.
func Validate(m *model.RuleModel) []error {
	v := &checker{}

	if m.Threshold < MinThreshold || m.Threshold > MaxThreshold {
		v.errs = append(v.errs, &RangeViolation{
			Path: "threshold", Value: m.Threshold, Min: MinThreshold, Max: MaxThreshold,
		})
	}

	if len(m.Evaluations) == 0 {
		v.semErr("evaluations", "model defines no evaluations")
	}
	if len(m.Actions) == 0 {
		v.semErr("actions", "model defines no actions")
	}

	seen := make(map[string]bool, len(m.Evaluations))
	for i, ev := range m.Evaluations {
		path := fmt.Sprintf("evaluations[%d]", i)
		if name := ev.EvalName(); name != "" {
			if seen[name] {
				v.errs = append(v.errs, &DuplicateName{Name: name})
			}
			seen[name] = true
		}
		v.checkEvaluation(ev, path)
	}

	for i, a := range m.Actions {
		if strings.TrimSpace(a.Reason) == "" {
			v.semErr(fmt.Sprintf("actions[%d].reason", i), "reason must not be blank")
		}
	}

	if m.Metadata != nil {
		v.checkTimestamp("metadata.created_at", m.Metadata.CreatedAt)
		v.checkTimestamp("metadata.last_updated", m.Metadata.LastUpdated)
	}
	return v.errs
}

type checker struct {
	errs []error
}

func (v *checker) semErr(path, format string, args ...any) {
	v.errs = append(v.errs, &SemanticError{Path: path, Message: fmt.Sprintf(format, args...)})
}

// checkEvaluation validates one node and recurses into inline
// sub-evaluations so nested weights are held to the same bounds.
func (v *checker) checkEvaluation(ev model.Evaluation, path string) {
	if w := ev.EvalWeight(); w < MinWeight || w > MaxWeight {
		v.errs = append(v.errs, &RangeViolation{
			Path: path + ".weight", Value: float64(w), Min: MinWeight, Max: MaxWeight,
		})
	}

	switch e := ev.(type) {
	case *model.Aggregation:
		if e.Limit < 0 {
			v.semErr(path+".limit", "limit must be positive, got %d", e.Limit)
		}
		for i, c := range e.Conditions {
			// Aggregation filters use the narrow operator set.
			if !containsOp(model.ConditionOperators, c.Operator) {
				v.semErr(fmt.Sprintf("%s.conditions[%d].operator", path, i),
					"operator %q not allowed in aggregation conditions, allowed: %s",
					c.Operator, strings.Join(model.ConditionOperators, ", "))
			}
		}
	case *model.Logical:
		if len(e.Operands) == 0 {
			v.semErr(path+".operands", "logical evaluation needs at least one operand")
		}
		for i, op := range e.Operands {
			if op.Inline != nil {
				v.checkEvaluation(op.Inline, fmt.Sprintf("%s.operands[%d]", path, i))
			}
		}
	case *model.Conditional:
		if e.If.Inline != nil {
			v.checkEvaluation(e.If.Inline, path+".if")
		}
		if e.Then.Inline != nil {
			v.checkEvaluation(e.Then.Inline, path+".then")
		}
		if e.Else.Inline != nil {
			v.checkEvaluation(e.Else.Inline, path+".else")
		}
	}
}

func (v *checker) checkTimestamp(path, s string) {
	if s == "" {
		return
	}
	if _, err := time.Parse(time.RFC3339, s); err != nil {
		v.semErr(path, "timestamp %q is not RFC 3339", s)
	}
}

func containsOp(set []string, op string) bool {
	for _, s := range set {
		if s == op {
			return true
		}
	}
	return false
}
