package model

// Version of the typed rule-model representation.
const Version = "1.0"

// Kind discriminates the five evaluation variants.
type Kind string

const (
	KindComparison  Kind = "comparison"
	KindAggregation Kind = "aggregation"
	KindLogical     Kind = "logical"
	KindTimeBased   Kind = "time-based"
	KindConditional Kind = "conditional"
)

// Kinds lists every valid evaluation type tag.
func Kinds() []Kind {
	return []Kind{KindComparison, KindAggregation, KindLogical, KindTimeBased, KindConditional}
}

// ComparisonOperators is the closed operator set for comparison and
// time-based evaluations.
var ComparisonOperators = []string{">", "<", ">=", "<=", "==", "!=", "IN", "NOT IN", "LIKE", "NOT LIKE"}

// ConditionOperators is the narrower set allowed inside aggregation
// conditions (no set-membership or pattern operators).
var ConditionOperators = []string{">", "<", ">=", "<=", "==", "!="}

// LogicalOperators for logical evaluations.
var LogicalOperators = []string{"AND", "OR"}

// AggregationFunctions for aggregation evaluations.
var AggregationFunctions = []string{"SUM", "COUNT", "AVG", "MIN", "MAX", "STDDEV"}

// ActionTypes is the closed set of triggered action types.
// deny_transaction is accepted as an alias of block_transaction.
var ActionTypes = []string{"flag_transaction", "block_transaction", "deny_transaction", "send_alert"}

// RuleModel is the root of a parsed rule document. It is immutable once
// built; all downstream stages read it and produce derived artifacts.
type RuleModel struct {
	ModelID     string
	Name        string
	Description string
	Threshold   float64
	Evaluations []Evaluation
	Actions     []Action
	Metadata    *Metadata
}

// Evaluation is the closed sum over the five variant types. Only the
// structs in this package implement it.
type Evaluation interface {
	EvalName() string
	EvalKind() Kind
	// EvalWeight returns the weight in [1,5]; 1 when the document omitted it.
	EvalWeight() int
}

// Common carries the fields shared by every evaluation variant.
type Common struct {
	Name   string
	Weight int
}

func (c Common) EvalName() string { return c.Name }
func (c Common) EvalWeight() int  { return c.Weight }

// Comparison checks a field or literal against another via an operator.
type Comparison struct {
	Common
	Left     string
	Operator string
	Right    Value
}

func (Comparison) EvalKind() Kind { return KindComparison }

// Aggregation computes a windowed function over matching records.
// Limit bounds the window to the N most recent matches; 0 means unbounded.
type Aggregation struct {
	Common
	Function   string
	Field      string
	Conditions []Condition
	Limit      int
}

func (Aggregation) EvalKind() Kind { return KindAggregation }

// Condition is the restricted comparison used inside an aggregation's
// filter list.
type Condition struct {
	Left     string
	Operator string
	Right    Value
}

// Logical combines operands under AND/OR. Each operand is either a
// reference to a sibling evaluation by name or an inline sub-evaluation.
type Logical struct {
	Common
	Operator string
	Operands []Operand
}

func (Logical) EvalKind() Kind { return KindLogical }

// TimeBased is shaped like a comparison whose operands are expected to
// carry relative-time expressions; the core validates but never evaluates
// them.
type TimeBased struct {
	Common
	Left     string
	Operator string
	Right    Value
}

func (TimeBased) EvalKind() Kind { return KindTimeBased }

// Conditional selects a branch from an if condition. Branches may be
// literals, references, or further evaluations.
type Conditional struct {
	Common
	If   Operand
	Then Branch
	Else Branch
}

func (Conditional) EvalKind() Kind { return KindConditional }

// Operand is a two-case union: a by-name reference to a sibling
// evaluation, or an inline nested evaluation. Exactly one field is set.
type Operand struct {
	Ref    string
	Inline Evaluation
}

// IsRef reports whether the operand references a sibling by name.
func (o Operand) IsRef() bool { return o.Inline == nil }

// Branch is a conditional outcome: a literal value, a by-name reference,
// an inline evaluation, or a direct action. At most one field is set; an
// absent else branch has all fields zero.
type Branch struct {
	Ref     string
	Inline  Evaluation
	Literal *Value
	Action  *Action
}

// IsZero reports whether the branch was absent from the document.
func (b Branch) IsZero() bool {
	return b.Ref == "" && b.Inline == nil && b.Literal == nil && b.Action == nil
}

// Action is a triggered outcome attached to the model.
type Action struct {
	Type   string
	Reason string
}

// Metadata is the free-form provenance block; the core validates only the
// timestamp fields' format.
type Metadata struct {
	CreatedBy   string
	CreatedAt   string
	LastUpdated string
	Notes       string
}
