package model

import (
	"fmt"

	"github.com/dbinfrago/py-capellambse/tree"
)

// Binding is one named capability on a class: a scalar attribute or a
// relation. Bindings are stateless; all state lives in the backing tree.
// Concrete bindings are built with the constructors in this package
// (StringPOD, Containment, Association, ...).
type Binding interface {
	Field() string
	get(e *Element) (any, error)
}

// settable is implemented by bindings that accept direct writes.
type settable interface {
	set(e *Element, v any) error
}

// listBinding is implemented by relation bindings whose read yields a
// collection; the returned list stays wired to the relation so that
// Create/Append/Remove on it mutate the tree.
type listBinding interface {
	Binding
	getList(e *Element) (*ElementList, error)
}

// Element is the typed wrapper for exactly one backing node. It holds the
// node's identity, never its ownership: the tree owns the node. An element
// whose node was detached is stale and fails every access.
type Element struct {
	model *Model
	node  *tree.Node
	class *Class
	stale bool
}

func (e *Element) Model() *Model { return e.model }
func (e *Element) Class() *Class { return e.class }

// UUID is the element's id attribute, empty if unset.
func (e *Element) UUID() string {
	id, _ := e.node.Attr(AttrID)
	return id
}

func (e *Element) String() string {
	return fmt.Sprintf("<%s %s>", e.class, e.UUID())
}

// IsA reports whether the element's class is ref or derives from it.
func (e *Element) IsA(ref ClassRef) bool {
	return e.class.DerivesFrom(ref)
}

func (e *Element) check(field string) (Binding, error) {
	if e.stale {
		return nil, fmt.Errorf("%w: %s (field %q)", ErrStaleElement, e.class, field)
	}
	b, ok := e.class.Binding(field)
	if !ok {
		return nil, fmt.Errorf("%w: %q on %s", ErrUnknownField, field, e.class)
	}
	return b, nil
}

// Get reads a field through its binding. Scalars come back as their typed
// values, Single-wrapped relations as *Element (nil when absent), other
// relations as *ElementList.
func (e *Element) Get(field string) (any, error) {
	b, err := e.check(field)
	if err != nil {
		return nil, err
	}
	return b.get(e)
}

// List reads a relation field as a collection. Single results are lifted
// into a list of zero or one member.
func (e *Element) List(field string) (*ElementList, error) {
	b, err := e.check(field)
	if err != nil {
		return nil, err
	}
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
	return nil, fmt.Errorf("field %q on %s is scalar, not a relation", field, e.class)
}

// GetElement reads a field expected to yield at most one element.
func (e *Element) GetElement(field string) (*Element, error) {
	v, err := e.Get(field)
	if err != nil {
		return nil, err
	}
	switch r := v.(type) {
	case *Element:
		return r, nil
	case nil:
		return nil, nil
	case *ElementList:
		return r.Exactly()
	}
	return nil, fmt.Errorf("field %q on %s is scalar, not a relation", field, e.class)
}

// GetString reads a string-valued scalar field.
func (e *Element) GetString(field string) (string, error) {
	v, err := e.Get(field)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q on %s is not a string", field, e.class)
	}
	return s, nil
}

// GetBool reads a boolean scalar field.
func (e *Element) GetBool(field string) (bool, error) {
	v, err := e.Get(field)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("field %q on %s is not a bool", field, e.class)
	}
	return b, nil
}

// Set writes a field through its binding. The binding validates the value
// and the relation's bounds before any tree mutation happens.
func (e *Element) Set(field string, v any) error {
	b, err := e.check(field)
	if err != nil {
		return err
	}
	s, ok := b.(settable)
	if !ok {
		return fmt.Errorf("%w: %q on %s", ErrReadOnly, field, e.class)
	}
	return s.set(e, v)
}

// Name is shorthand for the conventional "name" field; it returns the
// empty string for classes without one.
func (e *Element) Name() string {
	v, err := e.Get("name")
	if err != nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
