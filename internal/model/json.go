package model

import (
	"bytes"
	"encoding/json"
)

// Canonical JSON forms. Serializing a parsed model and re-parsing the
// result yields a structurally identical AST: defaults are materialized
// (weight) and the conditional branch alias is normalized to then/else.

type wireModel struct {
	ModelID     string        `json:"model_id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Threshold   float64       `json:"threshold"`
	Evaluations []Evaluation  `json:"evaluations"`
	Actions     []Action      `json:"actions"`
	Metadata    *wireMetadata `json:"metadata,omitempty"`
}

type wireMetadata struct {
	CreatedBy   string `json:"created_by,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	LastUpdated string `json:"last_updated,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

func (m *RuleModel) MarshalJSON() ([]byte, error) {
	w := wireModel{
		ModelID:     m.ModelID,
		Name:        m.Name,
		Description: m.Description,
		Threshold:   m.Threshold,
		Evaluations: m.Evaluations,
		Actions:     m.Actions,
	}
	if w.Evaluations == nil {
		w.Evaluations = []Evaluation{}
	}
	if w.Actions == nil {
		w.Actions = []Action{}
	}
	if m.Metadata != nil {
		w.Metadata = &wireMetadata{
			CreatedBy:   m.Metadata.CreatedBy,
			CreatedAt:   m.Metadata.CreatedAt,
			LastUpdated: m.Metadata.LastUpdated,
			Notes:       m.Metadata.Notes,
		}
	}
	return json.Marshal(w)
}

// Serialize renders the model as indented canonical JSON.
func (m *RuleModel) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (a Action) MarshalJSON() ([]byte, error) {
	type wire struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	}
	return json.Marshal(wire{Type: a.Type, Reason: a.Reason})
}

func (c Comparison) MarshalJSON() ([]byte, error) {
	type wire struct {
		Name     string `json:"name,omitempty"`
		Type     Kind   `json:"type"`
		Left     string `json:"left"`
		Operator string `json:"operator"`
		Right    Value  `json:"right"`
		Weight   int    `json:"weight"`
	}
	return json.Marshal(wire{c.Name, KindComparison, c.Left, c.Operator, c.Right, c.Weight})
}

func (t TimeBased) MarshalJSON() ([]byte, error) {
	type wire struct {
		Name     string `json:"name,omitempty"`
		Type     Kind   `json:"type"`
		Left     string `json:"left"`
		Operator string `json:"operator"`
		Right    Value  `json:"right"`
		Weight   int    `json:"weight"`
	}
	return json.Marshal(wire{t.Name, KindTimeBased, t.Left, t.Operator, t.Right, t.Weight})
}

func (a Aggregation) MarshalJSON() ([]byte, error) {
	type wire struct {
		Name       string      `json:"name,omitempty"`
		Type       Kind        `json:"type"`
		Function   string      `json:"aggregation"`
		Field      string      `json:"field"`
		Conditions []Condition `json:"conditions,omitempty"`
		Limit      int         `json:"limit,omitempty"`
		Weight     int         `json:"weight"`
	}
	return json.Marshal(wire{a.Name, KindAggregation, a.Function, a.Field, a.Conditions, a.Limit, a.Weight})
}

func (c Condition) MarshalJSON() ([]byte, error) {
	type wire struct {
		Left     string `json:"left"`
		Operator string `json:"operator"`
		Right    Value  `json:"right"`
	}
	return json.Marshal(wire{c.Left, c.Operator, c.Right})
}

func (l Logical) MarshalJSON() ([]byte, error) {
	type wire struct {
		Name     string    `json:"name,omitempty"`
		Type     Kind      `json:"type"`
		Operator string    `json:"operator"`
		Operands []Operand `json:"operands"`
		Weight   int       `json:"weight"`
	}
	return json.Marshal(wire{l.Name, KindLogical, l.Operator, l.Operands, l.Weight})
}

func (c Conditional) MarshalJSON() ([]byte, error) {
	type wire struct {
		Name   string  `json:"name,omitempty"`
		Type   Kind    `json:"type"`
		If     Operand `json:"if"`
		Then   Branch  `json:"then"`
		Else   *Branch `json:"else,omitempty"`
		Weight int     `json:"weight"`
	}
	w := wire{Name: c.Name, Type: KindConditional, If: c.If, Then: c.Then, Weight: c.Weight}
	if !c.Else.IsZero() {
		e := c.Else
		w.Else = &e
	}
	return json.Marshal(w)
}

func (o Operand) MarshalJSON() ([]byte, error) {
	if o.Inline != nil {
		return json.Marshal(o.Inline)
	}
	return json.Marshal(o.Ref)
}

func (b Branch) MarshalJSON() ([]byte, error) {
	switch {
	case b.Inline != nil:
		return json.Marshal(b.Inline)
	case b.Literal != nil:
		return json.Marshal(*b.Literal)
	case b.Action != nil:
		return json.Marshal(*b.Action)
	default:
		return json.Marshal(b.Ref)
	}
}
