package analyzer

import (
	"fmt"
	"regexp"
	"strings"
)

// Relative-time expressions travel inside string literals as
// datetime(<anchor>, '<sign><n> <unit>'). The core recognizes and
// collects them but never evaluates them; that is the rule engine's job.

var datetimePattern = regexp.MustCompile(`datetime\([^)]*\)?`)

var offsetPattern = regexp.MustCompile(
	`^[+-]?\d+\s+(?i:minutes?|mins?|hours?|hrs?|days?|weeks?|months?|years?)$`)

// DatetimeExpr is one recognized relative-time expression.
type DatetimeExpr struct {
	Raw    string `json:"raw"`
	Anchor string `json:"anchor"`
	Offset string `json:"offset,omitempty"`
}

// findDatetime scans one string literal and splits the candidate
// expressions into the well-formed and the malformed.
func findDatetime(s string) (exprs []DatetimeExpr, malformed []string) {
	for _, raw := range datetimePattern.FindAllString(s, -1) {
		expr, err := parseDatetime(raw)
		if err != nil {
			malformed = append(malformed, fmt.Sprintf("%s (%s)", raw, err))
			continue
		}
		exprs = append(exprs, expr)
	}
	return exprs, malformed
}

func parseDatetime(raw string) (DatetimeExpr, error) {
	if !strings.HasSuffix(raw, ")") {
		return DatetimeExpr{}, fmt.Errorf("unterminated expression")
	}
	inner := raw[len("datetime(") : len(raw)-1]
	parts := splitArgs(inner)
	if len(parts) == 0 || len(parts) > 2 {
		return DatetimeExpr{}, fmt.Errorf("expected 1 or 2 arguments, got %d", len(parts))
	}

	expr := DatetimeExpr{Raw: raw}
	anchor := strings.TrimSpace(parts[0])
	// The anchor timestamp's format is the rule engine's concern; any
	// non-empty quoted string is accepted here.
	if strings.EqualFold(anchor, "now") {
		expr.Anchor = "now"
	} else if ts, ok := unquote(anchor); ok && ts != "" {
		expr.Anchor = ts
	} else {
		return DatetimeExpr{}, fmt.Errorf("anchor must be now or a quoted timestamp")
	}

	if len(parts) == 2 {
		off, ok := unquote(strings.TrimSpace(parts[1]))
		if !ok {
			return DatetimeExpr{}, fmt.Errorf("offset must be quoted")
		}
		if !offsetPattern.MatchString(off) {
			return DatetimeExpr{}, fmt.Errorf("unrecognized offset %q", off)
		}
		expr.Offset = off
	}
	return expr, nil
}

// unquote strips one matching pair of single or double quotes.
func unquote(s string) (string, bool) {
	if len(s) < 2 {
		return "", false
	}
	if q := s[0]; (q == '\'' || q == '"') && s[len(s)-1] == q {
		return s[1 : len(s)-1], true
	}
	return "", false
}

// splitArgs splits on commas outside quoted spans (single or double).
func splitArgs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var parts []string
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\'' || c == '"':
			if quote == 0 {
				quote = c
			} else if quote == c {
				quote = 0
			}
		case c == ',' && quote == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}
