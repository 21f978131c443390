package pipeline

import (
	"github.com/codewithboateng/riskrule/internal/analyzer"
	"github.com/codewithboateng/riskrule/internal/model"
	"github.com/codewithboateng/riskrule/internal/parser"
	"github.com/codewithboateng/riskrule/internal/resolver"
	"github.com/codewithboateng/riskrule/internal/validator"
)

// Result carries everything one document run produces. Error slices are
// kept separate so renderers can group them the way operators read them.
type Result struct {
	Model            *model.RuleModel
	Graph            *resolver.Graph
	Report           *analyzer.Report
	ParserErrors     []error
	ResolverErrors   []error
	ValidationErrors []error
}

// Valid reports whether the document cleared every stage.
func (r *Result) Valid() bool {
	return len(r.ParserErrors) == 0 &&
		len(r.ResolverErrors) == 0 &&
		len(r.ValidationErrors) == 0
}

// Errors flattens every stage's findings in pipeline order.
func (r *Result) Errors() []error {
	out := make([]error, 0, len(r.ParserErrors)+len(r.ResolverErrors)+len(r.ValidationErrors))
	out = append(out, r.ParserErrors...)
	out = append(out, r.ResolverErrors...)
	out = append(out, r.ValidationErrors...)
	return out
}

// Run pushes one document through parse, resolve, validate, and analyze.
// A parse failure short-circuits; resolver and validator findings do not,
// so a single run reports everything wrong with the document. The whole
// pipeline is a pure function of its input bytes and configuration, so
// callers may run documents concurrently without coordination.
func Run(data []byte, cfg analyzer.Config) *Result {
	res := &Result{}

	m, err := parser.Parse(data)
	if err != nil {
		res.ParserErrors = parser.ErrList(err)
		return res
	}
	res.Model = m

	res.Graph, res.ResolverErrors = resolver.Resolve(m)
	res.ValidationErrors = validator.Validate(m)
	res.Report = analyzer.Analyze(m, res.Graph, cfg)
	return res
}

// Validate runs the error-reporting stages only, skipping analysis.
func Validate(data []byte) *Result {
	res := &Result{}
	m, err := parser.Parse(data)
	if err != nil {
		res.ParserErrors = parser.ErrList(err)
		return res
	}
	res.Model = m
	res.Graph, res.ResolverErrors = resolver.Resolve(m)
	res.ValidationErrors = validator.Validate(m)
	return res
}
