package model

import (
	"go.uber.org/zap"

	"github.com/dbinfrago/py-capellambse/tree"
)

// Search walks the whole document in depth-first document order and
// collects every element matching one of the class constraints (subtypes
// included); with no constraint it collects everything resolvable. Nodes
// with no registered binding are skipped with a diagnostic; an unknown
// type is fatal only when a node is resolved explicitly.
func (m *Model) Search(refs ...ClassRef) *ElementList {
	return m.search(m.root, true, refs)
}

// SearchBelow restricts the search to the strict descendants of scope.
func (m *Model) SearchBelow(scope *Element, refs ...ClassRef) *ElementList {
	if scope == nil || scope.stale {
		return newDerivedList(m)
	}
	return m.search(scope.node, false, refs)
}

func (m *Model) search(start *tree.Node, includeStart bool, refs []ClassRef) *ElementList {
	res := newDerivedList(m)
	start.Walk(func(n *tree.Node, post bool) (bool, error) {
		if post {
			return true, nil
		}
		if n == start && !includeStart {
			return true, nil
		}
		class, err := m.registry.Resolve(n.Tag.NS, n.Tag.Local)
		if err != nil {
			m.log.Warn("search skipping unresolvable node",
				zap.String("tag", n.Tag.String()),
				zap.Error(err))
			return true, nil
		}
		if len(refs) == 0 {
			res.items = append(res.items, item{node: n})
			return true, nil
		}
		for _, ref := range refs {
			if class.DerivesFrom(ref) {
				res.items = append(res.items, item{node: n})
				break
			}
		}
		return true, nil
	})
	return res
}
