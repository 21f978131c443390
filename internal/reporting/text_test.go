package reporting

import (
	"strings"
	"testing"

	"github.com/codewithboateng/riskrule/internal/analyzer"
	"github.com/codewithboateng/riskrule/internal/pipeline"
)

func TestWriteErrors_GroupsByStage(t *testing.T) {
	res := pipeline.Run([]byte(`{not json`), analyzer.DefaultConfig())
	var b strings.Builder
	WriteErrors(&b, res)
	out := b.String()
	if !strings.Contains(out, "Parser Errors:") {
		t.Fatalf("missing parser section:\n%s", out)
	}
	if !strings.Contains(out, "Syntax error at line ") {
		t.Fatalf("missing positional rendering:\n%s", out)
	}

	doc := `{
  "model_id": "M1", "name": "n", "threshold": 1.5,
  "evaluations": [{"name": "l", "type": "logical", "operator": "AND", "operands": ["missing"]}],
  "actions": [{"type": "send_alert", "reason": "r"}]
}`
	res = pipeline.Run([]byte(doc), analyzer.DefaultConfig())
	b.Reset()
	WriteErrors(&b, res)
	out = b.String()
	if strings.Contains(out, "Parser Errors:") {
		t.Fatalf("semantic failures should not render a parser section:\n%s", out)
	}
	if !strings.Contains(out, "Analyzer Errors:") {
		t.Fatalf("missing analyzer section:\n%s", out)
	}
}

func TestWriteReport_RendersSummary(t *testing.T) {
	doc := `{
  "model_id": "M501", "name": "High-Risk Open Banking Transactions", "description": "d", "threshold": 0.9,
  "evaluations": [
    {"name": "a", "type": "comparison", "left": "x", "operator": ">", "right": 1},
    {"name": "l", "type": "logical", "operator": "AND", "operands": ["a"]}
  ],
  "actions": [{"type": "flag_transaction", "reason": "r"}]
}`
	res := pipeline.Run([]byte(doc), analyzer.DefaultConfig())
	if !res.Valid() {
		t.Fatalf("unexpected errors: %v", res.Errors())
	}
	var b strings.Builder
	WriteReport(&b, res.Report)
	out := b.String()
	for _, want := range []string{"M501", "Evaluations:  2", "comparison", "l -> a"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}
