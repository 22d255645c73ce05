package model

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/dbinfrago/py-capellambse/tree"
)

// Bounds limits a relation's member count. Max 0 means unbounded.
type Bounds struct {
	Min, Max int
}

// RelOpt configures a relation binding.
type RelOpt func(*relSpec)

// WithBounds constrains the relation to [min, max] members; max 0 leaves
// the upper bound open.
func WithBounds(min, max int) RelOpt {
	return func(s *relSpec) { s.bounds = Bounds{Min: min, Max: max} }
}

type relSpec struct {
	bounds Bounds
}

func (s *relSpec) checkGrow(field string, have int) error {
	if s.bounds.Max > 0 && have+1 > s.bounds.Max {
		return &CardinalityError{Field: field, Limit: fmt.Sprintf("at most %d members", s.bounds.Max)}
	}
	return nil
}

func (s *relSpec) checkShrink(field string, have int) error {
	if have-1 < s.bounds.Min {
		return &CardinalityError{Field: field, Limit: fmt.Sprintf("at least %d members", s.bounds.Min)}
	}
	return nil
}

// Containment binds a field to the owned child group sitting under the
// given relation tag. Members are created and destroyed through this
// binding; destroying one cascades over its whole subtree.
func Containment(field, role string, target ClassRef, opts ...RelOpt) Binding {
	c := &containment{field: field, role: role, target: target}
	for _, opt := range opts {
		opt(&c.relSpec)
	}
	return c
}

type containment struct {
	relSpec
	field  string
	role   string
	target ClassRef
}

func (c *containment) Field() string { return c.field }

func (c *containment) get(e *Element) (any, error) {
	return c.getList(e)
}

func (c *containment) getList(e *Element) (*ElementList, error) {
	items := make([]item, 0, 4)
	for _, n := range c.members(e) {
		items = append(items, item{node: n})
	}
	return &ElementList{model: e.model, items: items, field: c.field, owner: e, rel: c}, nil
}

// members enumerates the owned children in document order. Children with
// no registered binding are skipped with a diagnostic; children of the
// wrong class never belong to this relation in the first place.
func (c *containment) members(e *Element) []*tree.Node {
	var res []*tree.Node
	for _, n := range e.node.ChildrenByRole(c.role) {
		class, err := e.model.registry.Resolve(n.Tag.NS, n.Tag.Local)
		if err != nil {
			e.model.log.Warn("skipping unresolvable child",
				zap.String("role", c.role),
				zap.String("tag", n.Tag.String()))
			continue
		}
		if class.DerivesFrom(c.target) {
			res = append(res, n)
		}
	}
	return res
}

func (c *containment) checkCreate(owner *Element, ref ClassRef) error {
	class, err := owner.model.registry.ResolveAt(ref, owner.model.version)
	if err != nil {
		return err
	}
	if class.Abstract() {
		return fmt.Errorf("%w: cannot instantiate abstract class %s", ErrStructure, class)
	}
	if !class.DerivesFrom(c.target) {
		return fmt.Errorf("%w: %s does not satisfy constraint %s on %q",
			ErrStructure, class, c.target, c.field)
	}
	return nil
}

func (c *containment) checkAttach(owner *Element, target *Element) error {
	return fmt.Errorf("containment members of %q are created, not attached", c.field)
}

func (c *containment) create(owner *Element, ref ClassRef, at int) (*Element, error) {
	if err := c.checkCreate(owner, ref); err != nil {
		return nil, err
	}
	members := c.members(owner)
	if err := c.checkGrow(c.field, len(members)); err != nil {
		return nil, err
	}
	pos := len(owner.node.Children)
	if at >= 0 && at < len(members) {
		pos = members[at].Index()
	} else if len(members) > 0 {
		pos = members[len(members)-1].Index() + 1
	}
	return owner.model.newChild(owner.node, c.role, ref, pos)
}

func (c *containment) attach(owner *Element, target *Element) error {
	return c.checkAttach(owner, target)
}

func (c *containment) detach(owner *Element, target *Element) error {
	members := c.members(owner)
	found := false
	for _, n := range members {
		if n == target.node {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: %s is not a member of %q", ErrStructure, target, c.field)
	}
	if err := c.checkShrink(c.field, len(members)); err != nil {
		return err
	}
	owner.model.removeSubtree(target.node)
	return nil
}
