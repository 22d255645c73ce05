package model

import (
	"errors"
	"fmt"

	"github.com/expr-lang/expr"

	"github.com/dbinfrago/py-capellambse/tree"
)

// item is one list member. Relation reads keep members as node identities
// and resolve wrappers lazily; a reference whose target is gone keeps only
// its id and fails when dereferenced, not before.
type item struct {
	node *tree.Node
	id   string
}

// listMutator is the write side a relation binding hands to the lists it
// produces. Derived lists (filters, projections, concatenations) carry
// none and are read-only.
type listMutator interface {
	create(owner *Element, ref ClassRef, at int) (*Element, error)
	attach(owner *Element, target *Element) error
	detach(owner *Element, target *Element) error
}

// mutationChecker validates a prospective member without touching the
// tree. Single consults it so a replacement write can fail before the
// current member is detached.
type mutationChecker interface {
	checkCreate(owner *Element, ref ClassRef) error
	checkAttach(owner *Element, target *Element) error
}

// ElementList is an ordered, identity-preserving collection of wrappers
// tied to one model. Members resolve through the identity map, so the same
// node always yields the same wrapper (reference equality holds across
// lists).
type ElementList struct {
	model *Model
	items []item
	field string
	owner *Element
	rel   listMutator
}

func newDerivedList(m *Model) *ElementList {
	return &ElementList{model: m}
}

func (l *ElementList) derived(items []item) *ElementList {
	return &ElementList{model: l.model, items: items, field: l.field}
}

func (l *ElementList) Len() int { return len(l.items) }

// At resolves the i'th member. A dangling reference surfaces here as
// DanglingReferenceError; reading the list itself never fails on one.
func (l *ElementList) At(i int) (*Element, error) {
	it := l.items[i]
	if it.node == nil {
		return nil, &DanglingReferenceError{ID: it.id}
	}
	return l.model.Resolve(it.node)
}

// Elements resolves every member. It fails on the first dangling or
// unresolvable member.
func (l *ElementList) Elements() ([]*Element, error) {
	res := make([]*Element, len(l.items))
	for i := range l.items {
		e, err := l.At(i)
		if err != nil {
			return nil, err
		}
		res[i] = e
	}
	return res, nil
}

// Contains reports whether target is a member, by node identity. Dangling
// members never match.
func (l *ElementList) Contains(target *Element) bool {
	for _, it := range l.items {
		if it.node != nil && it.node == target.node {
			return true
		}
	}
	return false
}

// Exactly returns the sole member, or AmbiguousResultError when the match
// count is not one.
func (l *ElementList) Exactly() (*Element, error) {
	if len(l.items) != 1 {
		return nil, &AmbiguousResultError{Field: l.field, Count: len(l.items)}
	}
	return l.At(0)
}

// Concat appends other lists without deduplicating; repeated members stay
// reference-equal thanks to the identity map. The result is read-only.
func (l *ElementList) Concat(others ...*ElementList) *ElementList {
	items := append([]item(nil), l.items...)
	for _, o := range others {
		items = append(items, o.items...)
	}
	return l.derived(items)
}

// Filter keeps members the predicate accepts, in order. Dangling members
// are dropped rather than surfaced: they cannot be dereferenced, so no
// predicate could accept them.
func (l *ElementList) Filter(pred func(*Element) (bool, error)) (*ElementList, error) {
	var items []item
	for _, it := range l.items {
		if it.node == nil {
			continue
		}
		e, err := l.model.Resolve(it.node)
		if err != nil {
			return nil, err
		}
		ok, err := pred(e)
		if err != nil {
			return nil, err
		}
		if ok {
			items = append(items, it)
		}
	}
	return l.derived(items), nil
}

// ByClass narrows the list to members of the given classes or their
// subclasses.
func (l *ElementList) ByClass(refs ...ClassRef) (*ElementList, error) {
	return l.Filter(func(e *Element) (bool, error) {
		for _, ref := range refs {
			if e.IsA(ref) {
				return true, nil
			}
		}
		return false, nil
	})
}

// ByName keeps members whose "name" field equals name.
func (l *ElementList) ByName(name string) (*ElementList, error) {
	return l.ByField("name", name)
}

// ByUUID returns the member with the given id, or AmbiguousResultError
// when absent.
func (l *ElementList) ByUUID(id string) (*Element, error) {
	sub, err := l.Filter(func(e *Element) (bool, error) {
		return e.UUID() == id, nil
	})
	if err != nil {
		return nil, err
	}
	return sub.Exactly()
}

// ByField keeps members whose field reads equal to want. Members lacking
// the field are dropped, not failed.
func (l *ElementList) ByField(field string, want any) (*ElementList, error) {
	return l.Filter(func(e *Element) (bool, error) {
		v, err := e.Get(field)
		if err != nil {
			if isSkippable(err) {
				return false, nil
			}
			return false, err
		}
		return v == want, nil
	})
}

// Map reads field across every member and flattens the results: lists are
// spliced in place (duplicates preserved), single elements appended,
// absent results dropped. The result is a read-only list.
func (l *ElementList) Map(field string) (*ElementList, error) {
	var items []item
	for i := range l.items {
		e, err := l.At(i)
		if err != nil {
			return nil, err
		}
		v, err := e.Get(field)
		if err != nil {
			if isSkippable(err) {
				continue
			}
			return nil, err
		}
		switch r := v.(type) {
		case *ElementList:
			items = append(items, r.items...)
		case *Element:
			items = append(items, item{node: r.node})
		case nil:
			// absent single member, dropped
		default:
			return nil, fmt.Errorf("cannot map scalar field %q (%T)", field, v)
		}
	}
	res := l.derived(items)
	res.field = field
	return res, nil
}

// MapValues reads a scalar field across every member, dropping members
// that lack the field.
func (l *ElementList) MapValues(field string) ([]any, error) {
	var res []any
	for i := range l.items {
		e, err := l.At(i)
		if err != nil {
			return nil, err
		}
		v, err := e.Get(field)
		if err != nil {
			if isSkippable(err) {
				continue
			}
			return nil, err
		}
		res = append(res, v)
	}
	return res, nil
}

// isSkippable tells projection reads apart from real failures: a member
// simply not carrying the field is no error for Map and friends.
func isSkippable(err error) bool {
	return errors.Is(err, ErrUnknownField)
}

// Where filters with a compiled expression. The expression sees name,
// uuid and class plus attr(name) and field(name) helpers, and must yield
// a boolean.
func (l *ElementList) Where(src string) (*ElementList, error) {
	prg, err := expr.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("bad filter expression: %w", err)
	}
	return l.Filter(func(e *Element) (bool, error) {
		env := map[string]any{
			"name":  e.Name(),
			"uuid":  e.UUID(),
			"class": e.Class().Name(),
			"attr": func(name string) string {
				v, _ := e.node.Attr(name)
				return v
			},
			"field": func(name string) any {
				v, err := e.Get(name)
				if err != nil {
					return nil
				}
				return v
			},
		}
		out, err := expr.Run(prg, env)
		if err != nil {
			return false, err
		}
		keep, ok := out.(bool)
		if !ok {
			return false, fmt.Errorf("filter expression yields %T, want bool", out)
		}
		return keep, nil
	})
}

// Create instantiates a new member of the given class through the backing
// relation and returns its wrapper.
func (l *ElementList) Create(ref ClassRef) (*Element, error) {
	return l.CreateAt(-1, ref)
}

// CreateAt instantiates a new member at position at among the relation's
// members (-1 appends).
func (l *ElementList) CreateAt(at int, ref ClassRef) (*Element, error) {
	if l.rel == nil {
		return nil, fmt.Errorf("%w: derived list", ErrReadOnly)
	}
	return l.rel.create(l.owner, ref, at)
}

// Append attaches an existing element through the backing relation.
func (l *ElementList) Append(target *Element) error {
	if l.rel == nil {
		return fmt.Errorf("%w: derived list", ErrReadOnly)
	}
	return l.rel.attach(l.owner, target)
}

// Remove detaches target from the backing relation. What that means is
// the relation's business: cascading node removal for containment,
// dropping a reference for association, deleting the link node for
// allocation.
func (l *ElementList) Remove(target *Element) error {
	if l.rel == nil {
		return fmt.Errorf("%w: derived list", ErrReadOnly)
	}
	return l.rel.detach(l.owner, target)
}
