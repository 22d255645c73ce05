package model

import "fmt"

// Registry maps (namespace, tag, version) to classes. It is filled in two
// phases: Register collects class declarations, Freeze resolves
// cross-namespace super references and builds the per-class field tables.
// After Freeze the registry is immutable and resolution is a pure lookup.
type Registry struct {
	frozen     bool
	namespaces []*Namespace
	classes    map[classKey][]*Class
}

func NewRegistry() *Registry {
	return &Registry{classes: map[classKey][]*Class{}}
}

// Register adds a class declaration. Two registrations of the same
// (namespace, tag) with overlapping version ranges are a configuration
// error and are rejected here, not at resolution time.
func (r *Registry) Register(classes ...*Class) error {
	if r.frozen {
		return ErrFrozen
	}
	for _, c := range classes {
		if c.ns == nil || c.name == "" {
			return fmt.Errorf("class %q lacks a namespace binding", c.name)
		}
		key := classKey{ns: c.ns, name: c.name}
		for _, prev := range r.classes[key] {
			if prev.span.overlaps(c.span) {
				return fmt.Errorf("overlapping registrations for %s: %s and %s",
					c, prev.span, c.span)
			}
		}
		if len(r.classes[key]) == 0 {
			r.noteNamespace(c.ns)
		}
		r.classes[key] = append(r.classes[key], c)
	}
	return nil
}

func (r *Registry) noteNamespace(ns *Namespace) {
	for _, known := range r.namespaces {
		if known == ns {
			return
		}
	}
	r.namespaces = append(r.namespaces, ns)
}

// Freeze ends the registration phase. Every super reference must resolve
// to a registered class; field tables and is-a closures are built here so
// that access-time dispatch is a plain map lookup.
func (r *Registry) Freeze() error {
	if r.frozen {
		return ErrFrozen
	}
	r.frozen = true
	for _, versions := range r.classes {
		for _, c := range versions {
			if err := c.resolveTables(r, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Registry) Frozen() bool { return r.frozen }

// Namespaces lists every namespace with at least one registered class, in
// first-registration order.
func (r *Registry) Namespaces() []*Namespace {
	return append([]*Namespace(nil), r.namespaces...)
}

// Resolve maps a node's namespace URI and tag to the class whose version
// range contains the version carried by the URI. No binding means
// ErrUnknownType; there is no silent fallback to a base class.
func (r *Registry) Resolve(nsURI, tag string) (*Class, error) {
	for _, ns := range r.namespaces {
		version, ok := ns.Match(nsURI)
		if !ok {
			continue
		}
		for _, c := range r.classes[classKey{ns: ns, name: tag}] {
			if c.span.Contains(version) {
				return c, nil
			}
		}
		return nil, &UnknownTypeError{NS: nsURI, Tag: tag, Version: version}
	}
	return nil, &UnknownTypeError{NS: nsURI, Tag: tag}
}

// ResolveAt looks a class up by reference for a concrete schema version,
// used when instantiating nodes.
func (r *Registry) ResolveAt(ref ClassRef, version string) (*Class, error) {
	if err := ref.valid(); err != nil {
		return nil, err
	}
	for _, c := range r.classes[classKey{ns: ref.NS, name: ref.Name}] {
		if c.span.Contains(version) {
			return c, nil
		}
	}
	return nil, &UnknownTypeError{NS: ref.NS.URI(version), Tag: ref.Name, Version: version}
}

// classRef resolves a reference regardless of version, for super-list
// resolution at freeze time. Ambiguity across version spans is fine there:
// the spans' tables are built independently.
func (r *Registry) classRef(ref ClassRef) (*Class, error) {
	if err := ref.valid(); err != nil {
		return nil, err
	}
	versions := r.classes[classKey{ns: ref.NS, name: ref.Name}]
	if len(versions) == 0 {
		return nil, &UnknownTypeError{NS: ref.NS.template, Tag: ref.Name}
	}
	return versions[0], nil
}
