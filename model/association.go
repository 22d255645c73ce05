package model

import (
	"fmt"
	"strings"
)

// Association binds a field to a flat attribute holding a space-separated
// list of target ids. It references, never owns: no node is created or
// destroyed through it, and removing a referenced node leaves the stored
// id dangling (surfacing only when that member is dereferenced).
func Association(field string, target ClassRef, attr string, opts ...RelOpt) Binding {
	a := &association{field: field, target: target, attr: attr}
	for _, opt := range opts {
		opt(&a.relSpec)
	}
	return a
}

type association struct {
	relSpec
	field  string
	target ClassRef
	attr   string
}

func (a *association) Field() string { return a.field }

func (a *association) refs(e *Element) []string {
	v, _ := e.node.Attr(a.attr)
	return strings.Fields(v)
}

func (a *association) store(e *Element, ids []string) {
	if len(ids) == 0 {
		e.node.DelAttr(a.attr)
		return
	}
	e.node.SetAttr(a.attr, strings.Join(ids, " "))
}

func (a *association) get(e *Element) (any, error) {
	return a.getList(e)
}

func (a *association) getList(e *Element) (*ElementList, error) {
	ids := a.refs(e)
	items := make([]item, len(ids))
	for i, id := range ids {
		items[i] = item{node: e.model.ids[id], id: id}
	}
	return &ElementList{model: e.model, items: items, field: a.field, owner: e, rel: a}, nil
}

func (a *association) checkCreate(owner *Element, ref ClassRef) error {
	return fmt.Errorf("association %q references existing elements, use Append", a.field)
}

func (a *association) checkAttach(owner *Element, target *Element) error {
	return a.checkTarget(target)
}

func (a *association) create(owner *Element, ref ClassRef, at int) (*Element, error) {
	return nil, a.checkCreate(owner, ref)
}

func (a *association) attach(owner *Element, target *Element) error {
	if err := a.checkTarget(target); err != nil {
		return err
	}
	ids := a.refs(owner)
	if err := a.checkGrow(a.field, len(ids)); err != nil {
		return err
	}
	a.store(owner, append(ids, target.UUID()))
	return nil
}

func (a *association) detach(owner *Element, target *Element) error {
	ids := a.refs(owner)
	for i, id := range ids {
		if id == target.UUID() {
			if err := a.checkShrink(a.field, len(ids)); err != nil {
				return err
			}
			a.store(owner, append(ids[:i:i], ids[i+1:]...))
			return nil
		}
	}
	return fmt.Errorf("%w: %s is not referenced by %q", ErrStructure, target, a.field)
}

// set replaces the whole reference list. nil clears it; a single element
// or a slice of elements is validated in full before the attribute is
// touched.
func (a *association) set(e *Element, v any) error {
	var targets []*Element
	switch t := v.(type) {
	case nil:
	case *Element:
		if t != nil {
			targets = []*Element{t}
		}
	case []*Element:
		targets = t
	case *ElementList:
		elems, err := t.Elements()
		if err != nil {
			return err
		}
		targets = elems
	default:
		return fmt.Errorf("field %q takes elements, got %T", a.field, v)
	}
	if a.bounds.Max > 0 && len(targets) > a.bounds.Max {
		return &CardinalityError{Field: a.field, Limit: fmt.Sprintf("at most %d members", a.bounds.Max)}
	}
	if len(targets) < a.bounds.Min {
		return &CardinalityError{Field: a.field, Limit: fmt.Sprintf("at least %d members", a.bounds.Min)}
	}
	ids := make([]string, len(targets))
	for i, t := range targets {
		if err := a.checkTarget(t); err != nil {
			return err
		}
		ids[i] = t.UUID()
	}
	a.store(e, ids)
	return nil
}

func (a *association) checkTarget(t *Element) error {
	if t.stale {
		return fmt.Errorf("%w: %s", ErrStaleElement, t.class)
	}
	if !t.IsA(a.target) {
		return fmt.Errorf("%w: %s does not satisfy constraint %s on %q",
			ErrStructure, t.class, a.target, a.field)
	}
	if t.UUID() == "" {
		return fmt.Errorf("%w: %s has no id", ErrStructure, t.class)
	}
	return nil
}
