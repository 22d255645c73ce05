package model

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/dbinfrago/py-capellambse/tree"
)

// Allocation binds a field to an indirect edge: the owner holds link
// nodes of class link under the given relation tag, and each link's attr
// attribute references the logical target. backattr, when non-empty,
// names the attribute holding the source end and is filled with the
// owner's id on append. Removing a logical member deletes its link node,
// never the target.
func Allocation(field, role string, link, target ClassRef, attr, backattr string, opts ...AllocOpt) Binding {
	a := &allocation{
		field: field, role: role,
		link: link, target: target,
		attr: attr, backattr: backattr,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AllocOpt configures an Allocation binding.
type AllocOpt func(*allocation)

// Swapped exposes the reversed view of the edge: reads follow backattr
// and appends store the logical target there instead, with attr holding
// the owner. The link nodes stay owned by the same element either way.
func Swapped() AllocOpt {
	return func(a *allocation) { a.attr, a.backattr = a.backattr, a.attr }
}

// AllocBounds constrains the number of logical members.
func AllocBounds(min, max int) AllocOpt {
	return func(a *allocation) { a.bounds = Bounds{Min: min, Max: max} }
}

type allocation struct {
	field    string
	role     string
	link     ClassRef
	target   ClassRef
	attr     string
	backattr string
	bounds   Bounds
}

func (a *allocation) Field() string { return a.field }

// links enumerates the owned link nodes in document order.
func (a *allocation) links(e *Element) []*tree.Node {
	var res []*tree.Node
	for _, n := range e.node.ChildrenByRole(a.role) {
		class, err := e.model.registry.Resolve(n.Tag.NS, n.Tag.Local)
		if err != nil {
			e.model.log.Warn("skipping unresolvable link node",
				zap.String("role", a.role),
				zap.String("tag", n.Tag.String()))
			continue
		}
		if class.DerivesFrom(a.link) {
			res = append(res, n)
		}
	}
	return res
}

func (a *allocation) get(e *Element) (any, error) {
	return a.getList(e)
}

func (a *allocation) getList(e *Element) (*ElementList, error) {
	var items []item
	for _, ln := range a.links(e) {
		id, ok := ln.Attr(a.attr)
		if !ok || id == "" {
			e.model.log.Warn("link node lacks target reference",
				zap.String("field", a.field),
				zap.String("attr", a.attr))
			continue
		}
		items = append(items, item{node: e.model.ids[id], id: id})
	}
	return &ElementList{model: e.model, items: items, field: a.field, owner: e, rel: a}, nil
}

func (a *allocation) checkCreate(owner *Element, ref ClassRef) error {
	return fmt.Errorf("allocation %q links existing elements, use Append", a.field)
}

func (a *allocation) checkAttach(owner *Element, target *Element) error {
	if target.stale {
		return fmt.Errorf("%w: %s", ErrStaleElement, target.class)
	}
	if !target.IsA(a.target) {
		return fmt.Errorf("%w: %s does not satisfy constraint %s on %q",
			ErrStructure, target.class, a.target, a.field)
	}
	if target.UUID() == "" {
		return fmt.Errorf("%w: %s has no id", ErrStructure, target.class)
	}
	return nil
}

func (a *allocation) create(owner *Element, ref ClassRef, at int) (*Element, error) {
	return nil, a.checkCreate(owner, ref)
}

// attach realizes the logical edge owner->target by creating one owned
// link node and wiring both ends, in that order; a failed validation
// leaves the tree untouched.
func (a *allocation) attach(owner *Element, target *Element) error {
	if err := a.checkAttach(owner, target); err != nil {
		return err
	}
	links := a.links(owner)
	if a.bounds.Max > 0 && len(links)+1 > a.bounds.Max {
		return &CardinalityError{Field: a.field, Limit: fmt.Sprintf("at most %d members", a.bounds.Max)}
	}
	link, err := owner.model.newChild(owner.node, a.role, a.link, -1)
	if err != nil {
		return err
	}
	link.node.SetAttr(a.attr, target.UUID())
	if a.backattr != "" {
		link.node.SetAttr(a.backattr, owner.UUID())
	}
	return nil
}

// detach removes the first link node realizing the edge to target. The
// target itself is never touched.
func (a *allocation) detach(owner *Element, target *Element) error {
	links := a.links(owner)
	for _, ln := range links {
		if id, _ := ln.Attr(a.attr); id == target.UUID() && id != "" {
			if len(links)-1 < a.bounds.Min {
				return &CardinalityError{Field: a.field, Limit: fmt.Sprintf("at least %d members", a.bounds.Min)}
			}
			owner.model.removeSubtree(ln)
			return nil
		}
	}
	return fmt.Errorf("%w: no link from %s to %s via %q", ErrStructure, owner, target, a.field)
}
