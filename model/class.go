package model

import "fmt"

// Class is one entry of the entity catalog: a (namespace, tag) binding
// carrying an ordered set of named capabilities (scalar and relation
// bindings) plus an explicit super list for is-a matching. Classes are
// plain data until the owning registry is frozen; the effective field
// table and the is-a closure are computed exactly once at that point.
type Class struct {
	ns       *Namespace
	name     string
	span     VRange
	abstract bool
	supers   []ClassRef
	bindings []Binding

	// filled in by Registry.Freeze
	resolved bool
	fields   map[string]Binding
	order    []string
	isa      map[classKey]bool
}

type classKey struct {
	ns   *Namespace
	name string
}

// NewClass declares a concrete class bound to (ns, name) for the given
// version range.
func NewClass(ns *Namespace, name string, span VRange) *Class {
	return &Class{ns: ns, name: name, span: span}
}

// NewAbstractClass declares a class that cannot be instantiated but can
// carry bindings and serve as a type constraint.
func NewAbstractClass(ns *Namespace, name string, span VRange) *Class {
	c := NewClass(ns, name, span)
	c.abstract = true
	return c
}

func (c *Class) NS() *Namespace { return c.ns }
func (c *Class) Name() string   { return c.name }
func (c *Class) Abstract() bool { return c.abstract }
func (c *Class) Ref() ClassRef  { return ClassRef{NS: c.ns, Name: c.name} }

func (c *Class) String() string { return c.Ref().String() }

// Super appends base classes to the explicit is-a list. Earlier supers win
// on field-name collisions; the class's own bindings win over all supers.
func (c *Class) Super(refs ...ClassRef) *Class {
	c.supers = append(c.supers, refs...)
	return c
}

// Bind appends bindings in declaration order.
func (c *Class) Bind(bindings ...Binding) *Class {
	c.bindings = append(c.bindings, bindings...)
	return c
}

// DerivesFrom reports whether c is ref or transitively declares ref as a
// super. Only valid after the registry has been frozen.
func (c *Class) DerivesFrom(ref ClassRef) bool {
	return c.isa[classKey{ns: ref.NS, name: ref.Name}]
}

// Binding returns the effective binding for a field name, honoring the
// declaration-order collision rule.
func (c *Class) Binding(field string) (Binding, bool) {
	b, ok := c.fields[field]
	return b, ok
}

// Fields lists the effective field names in declaration order, own fields
// first, then inherited ones.
func (c *Class) Fields() []string {
	return append([]string(nil), c.order...)
}

// resolveTables builds the field table and is-a closure. seen guards
// against declaration cycles.
func (c *Class) resolveTables(reg *Registry, seen []*Class) error {
	for _, s := range seen {
		if s == c {
			return fmt.Errorf("super cycle through %s", c)
		}
	}
	if c.resolved {
		return nil
	}
	c.fields = map[string]Binding{}
	c.isa = map[classKey]bool{classKey{ns: c.ns, name: c.name}: true}
	for _, b := range c.bindings {
		if _, dup := c.fields[b.Field()]; dup {
			return fmt.Errorf("%s: duplicate field %q", c, b.Field())
		}
		c.fields[b.Field()] = b
		c.order = append(c.order, b.Field())
	}
	for _, ref := range c.supers {
		super, err := reg.classRef(ref)
		if err != nil {
			return fmt.Errorf("%s: super %s: %w", c, ref, err)
		}
		if err := super.resolveTables(reg, append(seen, c)); err != nil {
			return err
		}
		for key := range super.isa {
			c.isa[key] = true
		}
		for _, field := range super.order {
			if _, shadowed := c.fields[field]; shadowed {
				continue
			}
			c.fields[field] = super.fields[field]
			c.order = append(c.order, field)
		}
	}
	c.resolved = true
	return nil
}
