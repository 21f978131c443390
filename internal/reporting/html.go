package reporting

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"sort"

	"github.com/codewithboateng/riskrule/internal/analyzer"
)

func WriteHTML(runID, outDir string, report *analyzer.Report) (string, error) {
	path := filepath.Join(outDir, runID+".html")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	// Head + styles
	fmt.Fprintf(f, "<!doctype html><html><head><meta charset='utf-8'><title>%s</title>", html.EscapeString(report.ModelID))
	fmt.Fprint(f, "<style>body{font-family:system-ui,Arial,sans-serif;padding:20px;line-height:1.4} table{border-collapse:collapse;margin:8px 0} td,th{border:1px solid #ddd;padding:6px} h1,h2{margin:6px 0 4px} .dim{color:#666} .mono{font-family:ui-monospace,Menlo,Consolas,monospace}</style>")
	fmt.Fprint(f, "</head><body>")

	// Title + summary
	fmt.Fprintf(f, "<h1>riskrule report – <span class='mono'>%s</span></h1>", html.EscapeString(report.ModelID))
	fmt.Fprintf(f, "<p>%s</p>", html.EscapeString(report.ModelName))
	fmt.Fprintf(f, "<p>Evaluations: %d &nbsp; Dependencies: %d &nbsp; Max depth: %d &nbsp; Complexity: %.2f <span class='dim'>(heuristic)</span></p>",
		report.Summary.TotalEvaluations,
		report.Summary.DependencyCount,
		report.Summary.MaxEvaluationDepth,
		report.Summary.ComplexityScore,
	)

	// Type histogram
	if len(report.Summary.EvaluationTypes) > 0 {
		kinds := make([]string, 0, len(report.Summary.EvaluationTypes))
		for k := range report.Summary.EvaluationTypes {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		fmt.Fprint(f, "<h2>Evaluation Types</h2><table><tr><th>Type</th><th>Count</th></tr>")
		for _, k := range kinds {
			fmt.Fprintf(f, "<tr><td>%s</td><td>%d</td></tr>", html.EscapeString(k), report.Summary.EvaluationTypes[k])
		}
		fmt.Fprint(f, "</table>")
	}

	// Warnings (high severity first)
	if len(report.Warnings) > 0 {
		ws := append([]analyzer.Warning(nil), report.Warnings...)
		analyzer.SortWarnings(ws)
		fmt.Fprint(f, "<h2>Warnings</h2><table><tr><th>Severity</th><th>Category</th><th>Context</th><th>Message</th></tr>")
		for _, w := range ws {
			fmt.Fprintf(f, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>",
				html.EscapeString(string(w.Severity)),
				html.EscapeString(string(w.Category)),
				html.EscapeString(w.Context),
				html.EscapeString(w.Message),
			)
		}
		fmt.Fprint(f, "</table>")
	} else {
		fmt.Fprint(f, "<h2>Warnings</h2><p class='dim'>No warnings at the configured thresholds.</p>")
	}

	// Suggestions
	if len(report.Suggestions) > 0 {
		fmt.Fprint(f, "<h2>Suggestions</h2><ul>")
		for _, s := range report.Suggestions {
			fmt.Fprintf(f, "<li>%s</li>", html.EscapeString(s))
		}
		fmt.Fprint(f, "</ul>")
	}

	// Dependency view
	deps := report.Details.EvaluationDependencies
	var parents []string
	for p, children := range deps {
		if len(children) > 0 {
			parents = append(parents, p)
		}
	}
	if len(parents) > 0 {
		sort.Strings(parents)
		fmt.Fprint(f, "<h2>Dependencies</h2><table><tr><th>Evaluation</th><th>Depends on</th></tr>")
		for _, p := range parents {
			fmt.Fprintf(f, "<tr><td class='mono'>%s</td><td class='mono'>", html.EscapeString(p))
			for i, c := range deps[p] {
				if i > 0 {
					fmt.Fprint(f, ", ")
				}
				fmt.Fprint(f, html.EscapeString(c))
			}
			fmt.Fprint(f, "</td></tr>")
		}
		fmt.Fprint(f, "</table>")
	}

	// Relative-time expressions
	if len(report.Details.DatetimeExpressions) > 0 {
		fmt.Fprint(f, "<h2>Relative-Time Expressions</h2><table><tr><th>Expression</th><th>Anchor</th><th>Offset</th></tr>")
		for _, e := range report.Details.DatetimeExpressions {
			fmt.Fprintf(f, "<tr><td class='mono'>%s</td><td>%s</td><td>%s</td></tr>",
				html.EscapeString(e.Raw), html.EscapeString(e.Anchor), html.EscapeString(e.Offset))
		}
		fmt.Fprint(f, "</table>")
	}

	fmt.Fprint(f, "</body></html>")
	return path, nil
}
