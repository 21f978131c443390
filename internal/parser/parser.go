package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/codewithboateng/riskrule/internal/model"
)

// Parse converts a raw rule document into a typed RuleModel. A malformed
// document yields a single SyntaxError; a well-formed document violating
// the structural contract yields an ErrorList of SchemaErrors collected
// across the whole document. Value-domain bounds (threshold, weight
// ranges) are left to the semantic validator.
func Parse(data []byte) (*model.RuleModel, error) {
	root, err := load(data)
	if err != nil {
		return nil, ErrorList{err}
	}

	p := &docParser{}
	m := p.parseModel(root)
	if len(p.errs) > 0 {
		return nil, p.errs
	}
	return m, nil
}

type docParser struct {
	errs ErrorList
}

func (p *docParser) errf(path, format string, args ...any) {
	p.errs = append(p.errs, schemaErrf(path, format, args...))
}

var modelFields = fieldSet("model_id", "name", "description", "threshold", "evaluations", "actions", "metadata")

func (p *docParser) parseModel(root *node) *model.RuleModel {
	if root.kind != nodeObject {
		p.errf("$", "expected object at document root, found %s", root.kind)
		return nil
	}
	p.rejectUnknown(root, "", modelFields)

	m := &model.RuleModel{}
	m.ModelID, _ = p.reqString(root, "", "model_id")
	m.Name, _ = p.reqString(root, "", "name")
	m.Description = p.optString(root, "", "description")
	m.Threshold = p.reqNumber(root, "", "threshold")

	evals, ok := root.get("evaluations")
	switch {
	case !ok:
		p.errf("evaluations", "missing required field")
	case evals.kind != nodeArray:
		p.errf("evaluations", "expected array, found %s", evals.kind)
	default:
		for i, item := range evals.items {
			path := fmt.Sprintf("evaluations[%d]", i)
			if ev := p.parseEvaluation(item, path, false); ev != nil {
				m.Evaluations = append(m.Evaluations, ev)
			}
		}
	}

	actions, ok := root.get("actions")
	switch {
	case !ok:
		p.errf("actions", "missing required field")
	case actions.kind != nodeArray:
		p.errf("actions", "expected array, found %s", actions.kind)
	default:
		for i, item := range actions.items {
			if a, ok := p.parseAction(item, fmt.Sprintf("actions[%d]", i)); ok {
				m.Actions = append(m.Actions, a)
			}
		}
	}

	if meta, ok := root.get("metadata"); ok {
		m.Metadata = p.parseMetadata(meta)
	}
	return m
}

var metadataFields = fieldSet("created_by", "created_at", "last_updated", "notes")

func (p *docParser) parseMetadata(n *node) *model.Metadata {
	if n.kind != nodeObject {
		p.errf("metadata", "expected object, found %s", n.kind)
		return nil
	}
	p.rejectUnknown(n, "metadata", metadataFields)
	return &model.Metadata{
		CreatedBy:   p.optString(n, "metadata", "created_by"),
		CreatedAt:   p.optString(n, "metadata", "created_at"),
		LastUpdated: p.optString(n, "metadata", "last_updated"),
		Notes:       p.optString(n, "metadata", "notes"),
	}
}

var actionFields = fieldSet("type", "reason")

func (p *docParser) parseAction(n *node, path string) (model.Action, bool) {
	if n.kind != nodeObject {
		p.errf(path, "expected object, found %s", n.kind)
		return model.Action{}, false
	}
	p.rejectUnknown(n, path, actionFields)
	typ, typOK := p.reqString(n, path, "type")
	reason, reasonOK := p.reqString(n, path, "reason")
	if typOK && !contains(model.ActionTypes, typ) {
		p.errf(path+".type", "invalid action type %q, allowed: %s", typ, strings.Join(model.ActionTypes, ", "))
		typOK = false
	}
	if !typOK || !reasonOK {
		return model.Action{}, false
	}
	return model.Action{Type: typ, Reason: reason}, true
}

// Field sets per variant. Each variant parser consumes exactly its set;
// anything else is rejected.
var (
	comparisonFields  = fieldSet("name", "type", "weight", "left", "operator", "right")
	aggregationFields = fieldSet("name", "type", "weight", "aggregation", "field", "conditions", "limit")
	logicalFields     = fieldSet("name", "type", "weight", "operator", "operands")
	conditionalFields = fieldSet("name", "type", "weight", "if", "then", "result", "else")
	conditionFields   = fieldSet("left", "operator", "right")
)

// parseEvaluation dispatches an evaluation object on its type tag.
// anonymous marks inline sub-evaluations, which may omit a name.
func (p *docParser) parseEvaluation(n *node, path string, anonymous bool) model.Evaluation {
	if n.kind != nodeObject {
		p.errf(path, "expected object, found %s", n.kind)
		return nil
	}
	typNode, ok := n.get("type")
	if !ok {
		p.errf(path+".type", "missing required field")
		return nil
	}
	if typNode.kind != nodeString {
		p.errf(path+".type", "expected string, found %s", typNode.kind)
		return nil
	}

	common := model.Common{Weight: 1}
	if nameNode, ok := n.get("name"); ok {
		if nameNode.kind != nodeString {
			p.errf(path+".name", "expected string, found %s", nameNode.kind)
		} else {
			common.Name = nameNode.str
		}
	} else if !anonymous {
		p.errf(path+".name", "missing required field")
	}
	if w, ok := p.optInt(n, path, "weight"); ok {
		common.Weight = w
	}

	kind := model.Kind(strings.ToLower(typNode.str))
	switch kind {
	case model.KindComparison, model.KindTimeBased:
		p.rejectUnknown(n, path, comparisonFields)
		left, _ := p.reqString(n, path, "left")
		op := p.reqOperator(n, path, model.ComparisonOperators)
		right := p.reqValue(n, path, "right")
		if kind == model.KindTimeBased {
			return &model.TimeBased{Common: common, Left: left, Operator: op, Right: right}
		}
		return &model.Comparison{Common: common, Left: left, Operator: op, Right: right}
	case model.KindAggregation:
		p.rejectUnknown(n, path, aggregationFields)
		return p.parseAggregation(n, path, common)
	case model.KindLogical:
		p.rejectUnknown(n, path, logicalFields)
		return p.parseLogical(n, path, common)
	case model.KindConditional:
		p.rejectUnknown(n, path, conditionalFields)
		return p.parseConditional(n, path, common)
	default:
		p.errf(path+".type", "unknown evaluation type %q, allowed: %s", typNode.str, kindList())
		return nil
	}
}

func (p *docParser) parseAggregation(n *node, path string, common model.Common) model.Evaluation {
	agg := &model.Aggregation{Common: common}
	fn, ok := p.reqString(n, path, "aggregation")
	if ok && !contains(model.AggregationFunctions, fn) {
		p.errf(path+".aggregation", "invalid aggregation %q, allowed: %s", fn, strings.Join(model.AggregationFunctions, ", "))
	}
	agg.Function = fn
	agg.Field, _ = p.reqString(n, path, "field")

	if conds, ok := n.get("conditions"); ok {
		if conds.kind != nodeArray {
			p.errf(path+".conditions", "expected array, found %s", conds.kind)
		} else {
			for i, item := range conds.items {
				if c, ok := p.parseCondition(item, fmt.Sprintf("%s.conditions[%d]", path, i)); ok {
					agg.Conditions = append(agg.Conditions, c)
				}
			}
		}
	}
	if limit, ok := p.optInt(n, path, "limit"); ok {
		agg.Limit = limit
	}
	return agg
}

func (p *docParser) parseCondition(n *node, path string) (model.Condition, bool) {
	if n.kind != nodeObject {
		p.errf(path, "expected object, found %s", n.kind)
		return model.Condition{}, false
	}
	p.rejectUnknown(n, path, conditionFields)
	c := model.Condition{}
	var ok bool
	c.Left, ok = p.reqString(n, path, "left")
	// Conditions share the comparison operator grammar here; the semantic
	// validator narrows out the set-membership family afterwards.
	c.Operator = p.reqOperator(n, path, model.ComparisonOperators)
	c.Right = p.reqValue(n, path, "right")
	return c, ok && c.Operator != ""
}

func (p *docParser) parseLogical(n *node, path string, common model.Common) model.Evaluation {
	l := &model.Logical{Common: common}
	op, ok := p.reqString(n, path, "operator")
	if ok && !contains(model.LogicalOperators, op) {
		p.errf(path+".operator", "invalid logical operator %q, allowed: AND, OR", op)
	}
	l.Operator = op

	operands, ok := n.get("operands")
	if !ok {
		p.errf(path+".operands", "missing required field")
		return l
	}
	if operands.kind != nodeArray {
		p.errf(path+".operands", "expected array, found %s", operands.kind)
		return l
	}
	for i, item := range operands.items {
		opath := fmt.Sprintf("%s.operands[%d]", path, i)
		switch item.kind {
		case nodeString:
			l.Operands = append(l.Operands, model.Operand{Ref: item.str})
		case nodeObject:
			if ev := p.parseEvaluation(item, opath, true); ev != nil {
				l.Operands = append(l.Operands, model.Operand{Inline: ev})
			}
		default:
			p.errf(opath, "operand must be an evaluation name or an inline evaluation, found %s", item.kind)
		}
	}
	return l
}

func (p *docParser) parseConditional(n *node, path string, common model.Common) model.Evaluation {
	c := &model.Conditional{Common: common}

	ifNode, ok := n.get("if")
	if !ok {
		p.errf(path+".if", "missing required field")
	} else {
		switch ifNode.kind {
		case nodeString:
			c.If = model.Operand{Ref: ifNode.str}
		case nodeObject:
			if ev := p.parseEvaluation(ifNode, path+".if", true); ev != nil {
				c.If = model.Operand{Inline: ev}
			}
		default:
			p.errf(path+".if", "condition must be an evaluation name or an inline evaluation, found %s", ifNode.kind)
		}
	}

	// Two spellings of the success branch exist in the wild; "result" is
	// accepted as an alias of "then" and normalized on serialization.
	thenNode, hasThen := n.get("then")
	resultNode, hasResult := n.get("result")
	switch {
	case hasThen && hasResult:
		p.errf(path, `fields "then" and "result" are mutually exclusive`)
	case hasThen:
		c.Then = p.parseBranch(thenNode, path+".then")
	case hasResult:
		c.Then = p.parseBranch(resultNode, path+".result")
	default:
		p.errf(path+".then", "missing required field")
	}

	if elseNode, ok := n.get("else"); ok {
		c.Else = p.parseBranch(elseNode, path+".else")
	}
	return c
}

func (p *docParser) parseBranch(n *node, path string) model.Branch {
	switch n.kind {
	case nodeObject:
		// An object branch is an inline evaluation or an action, told
		// apart by the value of its type tag.
		if typ, ok := n.get("type"); ok && typ.kind == nodeString && contains(model.ActionTypes, typ.str) {
			if a, ok := p.parseAction(n, path); ok {
				return model.Branch{Action: &a}
			}
			return model.Branch{}
		}
		if ev := p.parseEvaluation(n, path, true); ev != nil {
			return model.Branch{Inline: ev}
		}
		return model.Branch{}
	case nodeString, nodeNumber, nodeBool, nodeArray:
		v := p.toValue(n, path)
		return model.Branch{Literal: &v}
	default:
		p.errf(path, "branch must be a literal, evaluation, or action, found %s", n.kind)
		return model.Branch{}
	}
}

// toValue converts a loader node into a literal. Objects and nulls are
// rejected: literal positions carry scalars or arrays of scalars.
func (p *docParser) toValue(n *node, path string) model.Value {
	switch n.kind {
	case nodeString:
		return model.StringValue(n.str)
	case nodeNumber:
		return model.NumberValue(n.num)
	case nodeBool:
		return model.BoolValue(n.boolean)
	case nodeArray:
		arr := model.Value{Kind: model.ValueArray}
		for i, item := range n.items {
			arr.Arr = append(arr.Arr, p.toValue(item, fmt.Sprintf("%s[%d]", path, i)))
		}
		return arr
	default:
		p.errf(path, "expected literal value, found %s", n.kind)
		return model.Value{}
	}
}

func (p *docParser) reqString(obj *node, path, key string) (string, bool) {
	fp := joinPath(path, key)
	n, ok := obj.get(key)
	if !ok {
		p.errf(fp, "missing required field")
		return "", false
	}
	if n.kind != nodeString {
		p.errf(fp, "expected string, found %s", n.kind)
		return "", false
	}
	if n.str == "" {
		p.errf(fp, "must not be empty")
		return "", false
	}
	return n.str, true
}

func (p *docParser) optString(obj *node, path, key string) string {
	n, ok := obj.get(key)
	if !ok {
		return ""
	}
	if n.kind != nodeString {
		p.errf(joinPath(path, key), "expected string, found %s", n.kind)
		return ""
	}
	return n.str
}

func (p *docParser) reqNumber(obj *node, path, key string) float64 {
	fp := joinPath(path, key)
	n, ok := obj.get(key)
	if !ok {
		p.errf(fp, "missing required field")
		return 0
	}
	if n.kind != nodeNumber {
		p.errf(fp, "expected number, found %s", n.kind)
		return 0
	}
	return n.num
}

// optInt reads an optional integer field; a fractional or oversized
// literal is a shape error at parse time, range checks come later.
func (p *docParser) optInt(obj *node, path, key string) (int, bool) {
	fp := joinPath(path, key)
	n, ok := obj.get(key)
	if !ok {
		return 0, false
	}
	if n.kind != nodeNumber {
		p.errf(fp, "expected integer, found %s", n.kind)
		return 0, false
	}
	if !n.isInteger() {
		p.errf(fp, "expected integer, found %s", n.raw)
		return 0, false
	}
	v, err := strconv.ParseInt(n.raw, 10, 32)
	if err != nil {
		p.errf(fp, "integer out of range: %s", n.raw)
		return 0, false
	}
	return int(v), true
}

func (p *docParser) reqOperator(obj *node, path string, allowed []string) string {
	op, ok := p.reqString(obj, path, "operator")
	if !ok {
		return ""
	}
	if !contains(allowed, op) {
		p.errf(joinPath(path, "operator"), "invalid operator %q, allowed: %s", op, strings.Join(allowed, ", "))
		return ""
	}
	return op
}

func (p *docParser) reqValue(obj *node, path, key string) model.Value {
	fp := joinPath(path, key)
	n, ok := obj.get(key)
	if !ok {
		p.errf(fp, "missing required field")
		return model.Value{}
	}
	return p.toValue(n, fp)
}

func (p *docParser) rejectUnknown(obj *node, path string, allowed map[string]struct{}) {
	for _, f := range obj.fields {
		if _, ok := allowed[f.key]; !ok {
			p.errf(joinPath(path, f.key), "unexpected field")
		}
	}
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func fieldSet(keys ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func kindList() string {
	ks := model.Kinds()
	out := make([]string, len(ks))
	for i, k := range ks {
		out[i] = string(k)
	}
	return strings.Join(out, ", ")
}
