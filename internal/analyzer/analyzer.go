package analyzer

import (
	"fmt"
	"math"
	"sort"

	"github.com/codewithboateng/riskrule/internal/model"
	"github.com/codewithboateng/riskrule/internal/resolver"
)

// Severity ranks a warning.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// Category groups warnings by the concern they touch.
type Category string

const (
	CategoryComplexity  Category = "Complexity"
	CategoryPerformance Category = "Performance"
	CategoryCorrectness Category = "Correctness"
	CategoryStyle       Category = "Style"
)

// Warning is one analysis finding.
type Warning struct {
	Severity Severity `json:"severity"`
	Category Category `json:"category"`
	Message  string   `json:"message"`
	Context  string   `json:"context,omitempty"`
}

// Config carries the heuristic thresholds. They are tunables, injected
// rather than baked in, so policy changes never touch the pipeline.
type Config struct {
	MaxEvaluations  int `yaml:"max_evaluations" json:"max_evaluations"`
	MaxDepth        int `yaml:"max_depth" json:"max_depth"`
	MaxWeightSpread int `yaml:"max_weight_spread" json:"max_weight_spread"`
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{MaxEvaluations: 10, MaxDepth: 5, MaxWeightSpread: 3}
}

// Summary is the numeric digest of a model.
type Summary struct {
	TotalEvaluations   int            `json:"total_evaluations"`
	EvaluationTypes    map[string]int `json:"evaluation_types"`
	MaxEvaluationDepth int            `json:"max_evaluation_depth"`
	DependencyCount    int            `json:"dependency_count"`
	ComplexityScore    float64        `json:"complexity_score"`
}

// Details carries the structural views backing the summary.
type Details struct {
	EvaluationDependencies map[string][]string `json:"evaluation_dependencies"`
	DatetimeExpressions    []DatetimeExpr      `json:"datetime_expressions"`
	ReferenceChains        [][]string          `json:"reference_chains"`
	EvaluationWeights      map[string]int      `json:"evaluation_weights"`
}

// Report is the full analysis output for one model.
type Report struct {
	ModelID     string    `json:"model_id"`
	ModelName   string    `json:"model_name"`
	Summary     Summary   `json:"summary"`
	Details     Details   `json:"details"`
	Warnings    []Warning `json:"warnings"`
	Suggestions []string  `json:"suggestions"`
}

// Complexity score calibration. The score stays monotonic in evaluation
// count, chain depth, and branching regardless of these constants.
const (
	evalCountFactor = 1.0
	depthFactor     = 0.75
	branchingFactor = 0.5
	edgeFactor      = 0.3
	datetimeFactor  = 0.5
)

// Analyze derives the report from a parsed model and its resolved graph.
// It never fails: a degenerate model produces a degenerate report.
func Analyze(m *model.RuleModel, g *resolver.Graph, cfg Config) *Report {
	a := &analysis{m: m, g: g, cfg: cfg}
	return a.run()
}

type analysis struct {
	m   *model.RuleModel
	g   *resolver.Graph
	cfg Config

	report Report
}

func (a *analysis) run() *Report {
	a.report.ModelID = a.m.ModelID
	a.report.ModelName = a.m.Name

	a.histogram()
	a.dependencies()
	a.datetimes()
	a.weights()
	a.score()
	a.heuristics()

	return &a.report
}

func (a *analysis) histogram() {
	types := make(map[string]int, 5)
	for _, ev := range a.m.Evaluations {
		types[string(ev.EvalKind())]++
	}
	a.report.Summary.TotalEvaluations = len(a.m.Evaluations)
	a.report.Summary.EvaluationTypes = types
}

func (a *analysis) dependencies() {
	a.report.Summary.MaxEvaluationDepth = a.g.MaxDepth()
	a.report.Summary.DependencyCount = a.g.EdgeCount()
	a.report.Details.EvaluationDependencies = a.g.Adjacency()
	a.report.Details.ReferenceChains = a.chains()
}

// chains enumerates every root-to-leaf dependency path, roots being the
// nodes nothing else depends on.
func (a *analysis) chains() [][]string {
	incoming := make(map[string]int)
	for _, deps := range a.report.Details.EvaluationDependencies {
		for _, to := range deps {
			incoming[to]++
		}
	}

	var out [][]string
	seen := make(map[string]bool)
	var walk func(n string, path []string)
	walk = func(n string, path []string) {
		if seen[n] {
			return // cycle guard; the resolver already reported it
		}
		seen[n] = true
		defer func() { seen[n] = false }()

		path = append(path, n)
		deps := a.g.DependsOn(n)
		if len(deps) == 0 {
			if len(path) > 1 {
				out = append(out, append([]string(nil), path...))
			}
			return
		}
		for _, dep := range deps {
			walk(dep, path)
		}
	}
	for _, n := range a.g.Nodes {
		if incoming[n] == 0 {
			walk(n, nil)
		}
	}
	return out
}

// datetimes scans every string literal in the model. Well-formed
// expressions land in the details; malformed ones become warnings
// because the core does not evaluate them.
func (a *analysis) datetimes() {
	scan := func(context, s string) {
		exprs, malformed := findDatetime(s)
		a.report.Details.DatetimeExpressions = append(a.report.Details.DatetimeExpressions, exprs...)
		for _, msg := range malformed {
			a.warn(SeverityMedium, CategoryCorrectness,
				"malformed relative-time expression: "+msg, context)
		}
	}
	var scanValue func(context string, v model.Value)
	scanValue = func(context string, v model.Value) {
		switch v.Kind {
		case model.ValueString:
			scan(context, v.Str)
		case model.ValueArray:
			for _, item := range v.Arr {
				scanValue(context, item)
			}
		}
	}
	var scanEval func(ev model.Evaluation)
	scanEval = func(ev model.Evaluation) {
		name := ev.EvalName()
		switch e := ev.(type) {
		case *model.Comparison:
			scan(name, e.Left)
			scanValue(name, e.Right)
		case *model.TimeBased:
			scan(name, e.Left)
			scanValue(name, e.Right)
		case *model.Aggregation:
			for _, c := range e.Conditions {
				scan(name, c.Left)
				scanValue(name, c.Right)
			}
		case *model.Logical:
			for _, op := range e.Operands {
				if op.Inline != nil {
					scanEval(op.Inline)
				}
			}
		case *model.Conditional:
			if e.If.Inline != nil {
				scanEval(e.If.Inline)
			}
			for _, b := range []model.Branch{e.Then, e.Else} {
				if b.Inline != nil {
					scanEval(b.Inline)
				}
				if b.Literal != nil {
					scanValue(name, *b.Literal)
				}
			}
		}
	}
	for _, ev := range a.m.Evaluations {
		scanEval(ev)
	}
}

func (a *analysis) weights() {
	weights := make(map[string]int, len(a.m.Evaluations))
	for _, ev := range a.m.Evaluations {
		if name := ev.EvalName(); name != "" {
			weights[name] = ev.EvalWeight()
		}
	}
	a.report.Details.EvaluationWeights = weights
}

func (a *analysis) score() {
	branching := 0
	for _, ev := range a.m.Evaluations {
		switch ev.EvalKind() {
		case model.KindLogical, model.KindConditional:
			branching++
		}
	}
	s := evalCountFactor*float64(len(a.m.Evaluations)) +
		depthFactor*float64(a.g.MaxDepth()) +
		branchingFactor*float64(branching) +
		edgeFactor*float64(a.g.EdgeCount()) +
		datetimeFactor*float64(len(a.report.Details.DatetimeExpressions))
	// Two decimals keeps the score stable across formatting layers.
	a.report.Summary.ComplexityScore = math.Round(s*100) / 100
}

func (a *analysis) heuristics() {
	if n := len(a.m.Evaluations); n > a.cfg.MaxEvaluations {
		a.warn(SeverityMedium, CategoryComplexity,
			fmt.Sprintf("model has %d evaluations, above the limit of %d; consider splitting it", n, a.cfg.MaxEvaluations),
			a.m.ModelID)
	}
	if d := a.g.MaxDepth(); d > a.cfg.MaxDepth {
		a.warn(SeverityMedium, CategoryPerformance,
			fmt.Sprintf("deep dependency chain: depth %d exceeds the limit of %d", d, a.cfg.MaxDepth),
			a.m.ModelID)
	}

	if a.m.Description == "" {
		a.suggest("add a description so reviewers can tell what the model screens for")
	}
	if spread := a.weightSpread(); spread > a.cfg.MaxWeightSpread {
		a.suggest(fmt.Sprintf("evaluation weights spread across %d points; normalize them so no single check dominates", spread))
	}
}

func (a *analysis) weightSpread() int {
	w := a.report.Details.EvaluationWeights
	if len(w) == 0 {
		return 0
	}
	first := true
	var min, max int
	for _, v := range w {
		if first {
			min, max = v, v
			first = false
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return max - min
}

func (a *analysis) warn(sev Severity, cat Category, msg, context string) {
	a.report.Warnings = append(a.report.Warnings, Warning{
		Severity: sev, Category: cat, Message: msg, Context: context,
	})
}

func (a *analysis) suggest(s string) {
	a.report.Suggestions = append(a.report.Suggestions, s)
}

// SortWarnings orders findings by severity (high first), then category,
// then message, for stable rendering.
func SortWarnings(ws []Warning) {
	rank := map[Severity]int{SeverityHigh: 0, SeverityMedium: 1, SeverityLow: 2}
	sort.SliceStable(ws, func(i, j int) bool {
		if rank[ws[i].Severity] != rank[ws[j].Severity] {
			return rank[ws[i].Severity] < rank[ws[j].Severity]
		}
		if ws[i].Category != ws[j].Category {
			return ws[i].Category < ws[j].Category
		}
		return ws[i].Message < ws[j].Message
	})
}
