package model

import (
	"fmt"

	"go.uber.org/zap"
)

// Filter binds a field to a type-restricted view over another relation
// binding. Reads narrow the underlying members to the given classes;
// writes pass through to the underlying relation unchanged.
func Filter(field string, inner Binding, classes ...ClassRef) Binding {
	return &filterView{field: field, inner: inner, classes: classes}
}

type filterView struct {
	field   string
	inner   Binding
	classes []ClassRef
}

func (f *filterView) Field() string { return f.field }

func (f *filterView) get(e *Element) (any, error) {
	return f.getList(e)
}

func (f *filterView) getList(e *Element) (*ElementList, error) {
	base, err := innerList(f.inner, e)
	if err != nil {
		return nil, err
	}
	var items []item
	for _, it := range base.items {
		if it.node == nil {
			continue
		}
		m, err := base.model.Resolve(it.node)
		if err != nil {
			return nil, err
		}
		for _, ref := range f.classes {
			if m.IsA(ref) {
				items = append(items, it)
				break
			}
		}
	}
	// the view stays wired to the underlying relation for writes
	return &ElementList{model: e.model, items: items, field: f.field, owner: e, rel: base.rel}, nil
}

// Single wraps a relation and enforces the 0-or-1 bound: reads return the
// sole member or nil, reads over an over-full relation surface an
// ambiguity error, and mutations that would produce a second member fail
// before touching the tree.
func Single(field string, inner Binding, opts ...SingleOpt) Binding {
	s := &single{field: field, inner: inner}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SingleOpt configures a Single binding.
type SingleOpt func(*single)

// Mandatory marks the relation as required: reading an empty relation is
// a structural error and the member cannot be cleared.
func Mandatory() SingleOpt {
	return func(s *single) { s.mandatory = true }
}

type single struct {
	field     string
	inner     Binding
	mandatory bool
}

func (s *single) Field() string { return s.field }

func (s *single) get(e *Element) (any, error) {
	base, err := innerList(s.inner, e)
	if err != nil {
		return nil, err
	}
	switch base.Len() {
	case 0:
		if s.mandatory {
			return nil, fmt.Errorf("%w: mandatory relation %q is empty on %s",
				ErrStructure, s.field, e.class)
		}
		return nil, nil
	case 1:
		return base.At(0)
	}
	return nil, &AmbiguousResultError{Field: s.field, Count: base.Len()}
}

func (s *single) getList(e *Element) (*ElementList, error) {
	base, err := innerList(s.inner, e)
	if err != nil {
		return nil, err
	}
	res := &ElementList{model: base.model, items: base.items, field: s.field, owner: e}
	if base.rel != nil {
		res.rel = &singleGuard{single: s, inner: base.rel}
	}
	return res, nil
}

// set replaces the at-most-one member. nil clears the relation unless it
// is mandatory; an element or class reference replaces the current member
// through the underlying relation. The replacement is validated in full
// before the current member is detached, so a failed write never leaves
// the relation half-emptied.
func (s *single) set(e *Element, v any) error {
	if v == nil && s.mandatory {
		return &CardinalityError{Field: s.field, Limit: "exactly one member (mandatory)"}
	}
	if setter, ok := s.inner.(settable); ok {
		switch v.(type) {
		case nil, *Element:
			return setter.set(e, v)
		}
	}
	base, err := innerList(s.inner, e)
	if err != nil {
		return err
	}
	if base.rel == nil {
		return fmt.Errorf("%w: %q", ErrReadOnly, s.field)
	}
	switch v.(type) {
	case nil, *Element, ClassRef:
	default:
		return fmt.Errorf("field %q takes an element or class reference, got %T", s.field, v)
	}
	if ck, ok := base.rel.(mutationChecker); ok {
		switch t := v.(type) {
		case *Element:
			if err := ck.checkAttach(e, t); err != nil {
				return err
			}
		case ClassRef:
			if err := ck.checkCreate(e, t); err != nil {
				return err
			}
		}
	}
	if base.Len() > 0 {
		cur, err := base.At(0)
		if err != nil {
			return err
		}
		if err := base.rel.detach(e, cur); err != nil {
			return err
		}
	}
	switch t := v.(type) {
	case *Element:
		return base.rel.attach(e, t)
	case ClassRef:
		_, err := base.rel.create(e, t, -1)
		return err
	}
	return nil
}

// singleGuard enforces the singleton bound on list mutations before any
// tree state changes.
type singleGuard struct {
	single *single
	inner  listMutator
}

func (g *singleGuard) room(owner *Element) error {
	base, err := innerList(g.single.inner, owner)
	if err != nil {
		return err
	}
	if base.Len() >= 1 {
		return &CardinalityError{Field: g.single.field, Limit: "at most one member"}
	}
	return nil
}

func (g *singleGuard) create(owner *Element, ref ClassRef, at int) (*Element, error) {
	if err := g.room(owner); err != nil {
		return nil, err
	}
	return g.inner.create(owner, ref, at)
}

func (g *singleGuard) attach(owner *Element, target *Element) error {
	if err := g.room(owner); err != nil {
		return err
	}
	return g.inner.attach(owner, target)
}

func (g *singleGuard) detach(owner *Element, target *Element) error {
	if g.single.mandatory {
		return &CardinalityError{Field: g.single.field, Limit: "exactly one member (mandatory)"}
	}
	return g.inner.detach(owner, target)
}

// innerList evaluates a wrapped binding as a list, lifting single-valued
// results.
func innerList(b Binding, e *Element) (*ElementList, error) {
	if lb, ok := b.(listBinding); ok {
		return lb.getList(e)
	}
	v, err := b.get(e)
	if err != nil {
		return nil, err
	}
	switch r := v.(type) {
	case *ElementList:
		return r, nil
	case *Element:
		l := newDerivedList(e.model)
		if r != nil {
			l.items = append(l.items, item{node: r.node})
		}
		return l, nil
	case nil:
		return newDerivedList(e.model), nil
	}
	return nil, fmt.Errorf("field %q is scalar, cannot wrap it", b.Field())
}

// Alias re-exports another field under a second name. It holds no state
// of its own; both reads and writes go straight to the original field, so
// the two names can never disagree.
func Alias(field, of string) Binding {
	return &alias{field: field, of: of}
}

type alias struct {
	field, of string
}

func (a *alias) Field() string { return a.field }

func (a *alias) get(e *Element) (any, error) {
	return e.Get(a.of)
}

func (a *alias) getList(e *Element) (*ElementList, error) {
	return e.List(a.of)
}

func (a *alias) set(e *Element, v any) error {
	return e.Set(a.of, v)
}

// Deprecated keeps a retired field name alive: accesses forward to the
// renamed field and log a warning, but always go through.
func Deprecated(field, of string) Binding {
	return &deprecated{field: field, of: of}
}

type deprecated struct {
	field, of string
}

func (d *deprecated) Field() string { return d.field }

func (d *deprecated) warn(e *Element) {
	e.model.log.Warn("deprecated field accessed",
		zap.String("class", e.class.String()),
		zap.Error(&DeprecatedAccessError{Field: d.field, Use: d.of}))
}

func (d *deprecated) get(e *Element) (any, error) {
	d.warn(e)
	return e.Get(d.of)
}

func (d *deprecated) getList(e *Element) (*ElementList, error) {
	d.warn(e)
	return e.List(d.of)
}

func (d *deprecated) set(e *Element, v any) error {
	d.warn(e)
	return e.Set(d.of, v)
}
