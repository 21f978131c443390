package reporting

import (
	"fmt"
	"io"
	"sort"

	"github.com/codewithboateng/riskrule/internal/analyzer"
	"github.com/codewithboateng/riskrule/internal/pipeline"
)

// WriteSummary prints the model identity block the validate and parse
// subcommands show on success.
func WriteSummary(w io.Writer, res *pipeline.Result) {
	m := res.Model
	if m == nil {
		return
	}
	fmt.Fprintf(w, "Model:       %s (%s)\n", m.Name, m.ModelID)
	if m.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", m.Description)
	}
	fmt.Fprintf(w, "Threshold:   %g\n", m.Threshold)
	fmt.Fprintf(w, "Evaluations: %d\n", len(m.Evaluations))
	fmt.Fprintf(w, "Actions:     %d\n", len(m.Actions))
	if md := m.Metadata; md != nil {
		if md.CreatedBy != "" {
			fmt.Fprintf(w, "Created by:  %s\n", md.CreatedBy)
		}
		if md.LastUpdated != "" {
			fmt.Fprintf(w, "Updated:     %s\n", md.LastUpdated)
		}
	}
}

// WriteErrors prints the per-stage findings the way operators read them:
// structural problems first, then meaning-level ones.
func WriteErrors(w io.Writer, res *pipeline.Result) {
	if len(res.ParserErrors) > 0 {
		fmt.Fprintln(w, "Parser Errors:")
		for _, e := range res.ParserErrors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
	if len(res.ResolverErrors) > 0 || len(res.ValidationErrors) > 0 {
		fmt.Fprintln(w, "Analyzer Errors:")
		for _, e := range res.ResolverErrors {
			fmt.Fprintf(w, "  %s\n", e)
		}
		for _, e := range res.ValidationErrors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
}

// WriteReport prints the analysis report as text.
func WriteReport(w io.Writer, report *analyzer.Report) {
	fmt.Fprintf(w, "Analysis of %s (%s)\n", report.ModelName, report.ModelID)
	fmt.Fprintf(w, "  Evaluations:  %d\n", report.Summary.TotalEvaluations)
	fmt.Fprintf(w, "  Dependencies: %d\n", report.Summary.DependencyCount)
	fmt.Fprintf(w, "  Max depth:    %d\n", report.Summary.MaxEvaluationDepth)
	fmt.Fprintf(w, "  Complexity:   %.2f\n", report.Summary.ComplexityScore)

	if len(report.Summary.EvaluationTypes) > 0 {
		kinds := make([]string, 0, len(report.Summary.EvaluationTypes))
		for k := range report.Summary.EvaluationTypes {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		fmt.Fprintln(w, "Evaluation types:")
		for _, k := range kinds {
			fmt.Fprintf(w, "  %-12s %d\n", k, report.Summary.EvaluationTypes[k])
		}
	}

	deps := report.Details.EvaluationDependencies
	var parents []string
	for p, children := range deps {
		if len(children) > 0 {
			parents = append(parents, p)
		}
	}
	if len(parents) > 0 {
		sort.Strings(parents)
		fmt.Fprintln(w, "Dependencies:")
		for _, p := range parents {
			fmt.Fprintf(w, "  %s ->", p)
			for _, c := range deps[p] {
				fmt.Fprintf(w, " %s", c)
			}
			fmt.Fprintln(w)
		}
	}

	if len(report.Details.DatetimeExpressions) > 0 {
		fmt.Fprintln(w, "Relative-time expressions:")
		for _, e := range report.Details.DatetimeExpressions {
			fmt.Fprintf(w, "  %s\n", e.Raw)
		}
	}

	if len(report.Warnings) > 0 {
		ws := append([]analyzer.Warning(nil), report.Warnings...)
		analyzer.SortWarnings(ws)
		fmt.Fprintln(w, "Warnings:")
		for _, wrn := range ws {
			fmt.Fprintf(w, "  [%s/%s] %s", wrn.Severity, wrn.Category, wrn.Message)
			if wrn.Context != "" {
				fmt.Fprintf(w, " (%s)", wrn.Context)
			}
			fmt.Fprintln(w)
		}
	}

	if len(report.Suggestions) > 0 {
		fmt.Fprintln(w, "Suggestions:")
		for _, s := range report.Suggestions {
			fmt.Fprintf(w, "  - %s\n", s)
		}
	}
}
