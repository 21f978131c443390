package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// The loader turns raw bytes into a generic value tree. Every node keeps
// the line/column where its token starts so schema diagnostics can point
// at the offending value.

type nodeKind int

const (
	nodeNull nodeKind = iota
	nodeString
	nodeNumber
	nodeBool
	nodeArray
	nodeObject
)

func (k nodeKind) String() string {
	switch k {
	case nodeString:
		return "string"
	case nodeNumber:
		return "number"
	case nodeBool:
		return "boolean"
	case nodeArray:
		return "array"
	case nodeObject:
		return "object"
	}
	return "null"
}

type node struct {
	kind    nodeKind
	str     string
	num     float64
	raw     string // number literal text, kept for integer shape checks
	boolean bool
	items   []*node
	fields  []objField // insertion order preserved
	line    int
	col     int
}

type objField struct {
	key string
	val *node
}

// get returns the named field of an object node.
func (n *node) get(key string) (*node, bool) {
	for _, f := range n.fields {
		if f.key == key {
			return f.val, true
		}
	}
	return nil, false
}

// isInteger reports whether a number node carries an integral literal.
func (n *node) isInteger() bool {
	if n.kind != nodeNumber {
		return false
	}
	for _, c := range n.raw {
		if c == '.' || c == 'e' || c == 'E' {
			return false
		}
	}
	return true
}

// maxNesting bounds container depth; rule documents are shallow and the
// recursive walk must not exhaust the stack on adversarial input.
const maxNesting = 200

type loader struct {
	dec   *json.Decoder
	data  []byte
	depth int
}

// load parses data into a value tree, failing with a SyntaxError on
// malformed input or trailing content.
func load(data []byte) (*node, error) {
	l := &loader{dec: json.NewDecoder(bytes.NewReader(data)), data: data}
	l.dec.UseNumber()

	root, err := l.value()
	if err != nil {
		return nil, l.syntaxError(err)
	}
	// A rule document is exactly one JSON value.
	if _, err := l.dec.Token(); err != io.EOF {
		line, col := lineCol(data, l.tokenStart())
		return nil, &SyntaxError{Line: line, Column: col, Message: "trailing data after document"}
	}
	return root, nil
}

func (l *loader) value() (*node, error) {
	start := l.tokenStart()
	tok, err := l.dec.Token()
	if err != nil {
		return nil, err
	}
	line, col := lineCol(l.data, start)
	n := &node{line: line, col: col}

	switch t := tok.(type) {
	case json.Delim:
		l.depth++
		if l.depth > maxNesting {
			return nil, fmt.Errorf("nesting exceeds %d levels", maxNesting)
		}
		defer func() { l.depth-- }()
		switch t {
		case '{':
			n.kind = nodeObject
			for l.dec.More() {
				keyTok, err := l.dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key is not a string")
				}
				val, err := l.value()
				if err != nil {
					return nil, err
				}
				n.fields = append(n.fields, objField{key: key, val: val})
			}
			if _, err := l.dec.Token(); err != nil { // consume '}'
				return nil, err
			}
		case '[':
			n.kind = nodeArray
			for l.dec.More() {
				item, err := l.value()
				if err != nil {
					return nil, err
				}
				n.items = append(n.items, item)
			}
			if _, err := l.dec.Token(); err != nil { // consume ']'
				return nil, err
			}
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", t.String())
		}
	case string:
		n.kind = nodeString
		n.str = t
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number literal %q", t.String())
		}
		n.kind = nodeNumber
		n.num = f
		n.raw = t.String()
	case bool:
		n.kind = nodeBool
		n.boolean = t
	case nil:
		n.kind = nodeNull
	}
	return n, nil
}

// tokenStart returns the byte offset of the next token, skipping the
// whitespace and separators between it and the previous one.
func (l *loader) tokenStart() int64 {
	off := l.dec.InputOffset()
	for off < int64(len(l.data)) {
		switch l.data[off] {
		case ' ', '\t', '\r', '\n', ',', ':':
			off++
		default:
			return off
		}
	}
	return off
}

func (l *loader) syntaxError(err error) *SyntaxError {
	var se *json.SyntaxError
	if errors.As(err, &se) {
		line, col := lineCol(l.data, se.Offset)
		return &SyntaxError{Line: line, Column: col, Message: se.Error()}
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		line, col := lineCol(l.data, int64(len(l.data)))
		return &SyntaxError{Line: line, Column: col, Message: "unexpected end of input"}
	}
	line, col := lineCol(l.data, l.dec.InputOffset())
	return &SyntaxError{Line: line, Column: col, Message: err.Error()}
}

// lineCol converts a byte offset into 1-based line and column numbers.
func lineCol(data []byte, offset int64) (int, int) {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	line, last := 1, int64(-1)
	for i := int64(0); i < offset; i++ {
		if data[i] == '\n' {
			line++
			last = i
		}
	}
	return line, int(offset - last)
}
