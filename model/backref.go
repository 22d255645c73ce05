package model

import "strings"

// Backref binds a field to the computed inverse of one or more forward
// relation paths: the members are exactly those instances of source whose
// forward path evaluates to the element being read. Nothing is ever
// stored; every read recomputes against the live tree, so the inverse can
// never drift from the forward relation. Backrefs are read-only.
//
// Each path is a dotted chain of field names; several paths union their
// matches (a matching source appears once even when several paths hit).
func Backref(field string, source ClassRef, paths ...string) Binding {
	split := make([][]string, len(paths))
	for i, p := range paths {
		split[i] = strings.Split(p, ".")
	}
	return &backref{field: field, source: source, paths: split}
}

type backref struct {
	field  string
	source ClassRef
	paths  [][]string
}

func (b *backref) Field() string { return b.field }

func (b *backref) get(e *Element) (any, error) {
	return b.getList(e)
}

func (b *backref) getList(e *Element) (*ElementList, error) {
	candidates := e.model.Search(b.source)
	var items []item
	for i := range candidates.items {
		cand, err := candidates.At(i)
		if err != nil {
			return nil, err
		}
		hit, err := b.matches(cand, e)
		if err != nil {
			return nil, err
		}
		if hit {
			items = append(items, item{node: cand.node})
		}
	}
	return &ElementList{model: e.model, items: items, field: b.field}, nil
}

func (b *backref) matches(cand, target *Element) (bool, error) {
	for _, path := range b.paths {
		reached, err := followPath(cand, path)
		if err != nil {
			return false, err
		}
		for _, r := range reached {
			if r == target {
				return true, nil
			}
		}
	}
	return false, nil
}

// followPath evaluates a dotted forward path from e, fanning out through
// collection-valued segments. Members a segment cannot reach (dangling
// references, classes lacking the segment's field) drop out silently:
// they cannot equal an existing target.
func followPath(e *Element, path []string) ([]*Element, error) {
	cur := []*Element{e}
	for _, seg := range path {
		var next []*Element
		for _, c := range cur {
			v, err := c.Get(seg)
			if err != nil {
				if isSkippable(err) {
					continue
				}
				return nil, err
			}
			switch r := v.(type) {
			case *ElementList:
				for i := range r.items {
					if r.items[i].node == nil {
						continue
					}
					m, err := r.At(i)
					if err != nil {
						return nil, err
					}
					next = append(next, m)
				}
			case *Element:
				if r != nil {
					next = append(next, r)
				}
			}
		}
		cur = next
	}
	return cur, nil
}
