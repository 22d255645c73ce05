package model

import (
	"fmt"
	"slices"
	"strconv"
)

// StringPOD binds a field to a flat string attribute. An absent attribute
// reads as the empty string; writing nil removes the attribute, so the
// empty string and absence stay distinguishable on the wire.
func StringPOD(field, attr string) Binding {
	return &stringPOD{field: field, attr: attr}
}

type stringPOD struct {
	field, attr string
}

func (p *stringPOD) Field() string { return p.field }

func (p *stringPOD) get(e *Element) (any, error) {
	v, _ := e.node.Attr(p.attr)
	return v, nil
}

func (p *stringPOD) set(e *Element, v any) error {
	switch s := v.(type) {
	case nil:
		e.node.DelAttr(p.attr)
		return nil
	case string:
		e.node.SetAttr(p.attr, s)
		return nil
	}
	return fmt.Errorf("field %q takes a string, got %T", p.field, v)
}

// BoolPOD binds a field to a "true"/"false" attribute; absence reads as
// false, and writing false removes the attribute.
func BoolPOD(field, attr string) Binding {
	return &boolPOD{field: field, attr: attr}
}

type boolPOD struct {
	field, attr string
}

func (p *boolPOD) Field() string { return p.field }

func (p *boolPOD) get(e *Element) (any, error) {
	v, ok := e.node.Attr(p.attr)
	if !ok {
		return false, nil
	}
	switch v {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return nil, fmt.Errorf("field %q: invalid boolean text %q", p.field, v)
}

func (p *boolPOD) set(e *Element, v any) error {
	b, ok := v.(bool)
	if !ok {
		return fmt.Errorf("field %q takes a bool, got %T", p.field, v)
	}
	if b {
		e.node.SetAttr(p.attr, "true")
	} else {
		e.node.DelAttr(p.attr)
	}
	return nil
}

// IntPOD binds a field to a decimal integer attribute; absence reads as
// zero.
func IntPOD(field, attr string) Binding {
	return &intPOD{field: field, attr: attr}
}

type intPOD struct {
	field, attr string
}

func (p *intPOD) Field() string { return p.field }

func (p *intPOD) get(e *Element) (any, error) {
	v, ok := e.node.Attr(p.attr)
	if !ok {
		return int64(0), nil
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("field %q: invalid integer text %q", p.field, v)
	}
	return i, nil
}

func (p *intPOD) set(e *Element, v any) error {
	var i int64
	switch n := v.(type) {
	case int:
		i = int64(n)
	case int64:
		i = n
	case nil:
		e.node.DelAttr(p.attr)
		return nil
	default:
		return fmt.Errorf("field %q takes an integer, got %T", p.field, v)
	}
	e.node.SetAttr(p.attr, strconv.FormatInt(i, 10))
	return nil
}

// EnumValue is the result of reading an enumeration field. Known is false
// only in lenient mode, when the attribute text is outside the literal
// set and passed through opaquely.
type EnumValue struct {
	Literal string
	Known   bool
}

// EnumPOD binds a field to a closed literal set. The zero-th literal is
// the default unless overridden; reading an unmapped literal fails in
// strict mode and passes through as an unknown EnumValue in lenient mode.
func EnumPOD(field, attr string, literals []string, opts ...EnumOpt) Binding {
	if len(literals) == 0 {
		panic("EnumPOD needs at least one literal")
	}
	p := &enumPOD{field: field, attr: attr, literals: literals, def: literals[0]}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type EnumOpt func(*enumPOD)

// WithDefault overrides the literal an absent attribute decodes to.
func WithDefault(lit string) EnumOpt {
	return func(p *enumPOD) { p.def = lit }
}

// Lenient switches the binding to pass unmapped literals through instead
// of failing the read.
func Lenient() EnumOpt {
	return func(p *enumPOD) { p.lenient = true }
}

type enumPOD struct {
	field, attr string
	literals    []string
	def         string
	lenient     bool
}

func (p *enumPOD) Field() string { return p.field }

func (p *enumPOD) get(e *Element) (any, error) {
	v, ok := e.node.Attr(p.attr)
	if !ok {
		return EnumValue{Literal: p.def, Known: true}, nil
	}
	if slices.Contains(p.literals, v) {
		return EnumValue{Literal: v, Known: true}, nil
	}
	if p.lenient {
		return EnumValue{Literal: v}, nil
	}
	return nil, &UnknownLiteralError{Field: p.field, Literal: v}
}

func (p *enumPOD) set(e *Element, v any) error {
	var lit string
	switch s := v.(type) {
	case string:
		lit = s
	case EnumValue:
		lit = s.Literal
	default:
		return fmt.Errorf("field %q takes an enumeration literal, got %T", p.field, v)
	}
	if !slices.Contains(p.literals, lit) {
		return &UnknownLiteralError{Field: p.field, Literal: lit}
	}
	if lit == p.def {
		e.node.DelAttr(p.attr)
		return nil
	}
	e.node.SetAttr(p.attr, lit)
	return nil
}
