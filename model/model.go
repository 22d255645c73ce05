package model

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dbinfrago/py-capellambse/tree"
)

// AttrID is the attribute holding an element's unique id; references
// between elements are lists of these ids.
const AttrID = "id"

// Model is one session over a loaded document. It owns the backing tree
// root, the identity map guaranteeing one live wrapper per node, and the
// id index used to resolve references. A Model is not safe for concurrent
// use; callers serialize access.
type Model struct {
	registry *Registry
	version  string
	root     *tree.Node
	wrappers map[*tree.Node]*Element
	ids      map[string]*tree.Node
	log      *zap.Logger
}

// Option configures a Model at construction.
type Option func(*Model)

// WithVersion fixes the schema version instead of deriving it from the
// root node's namespace URI.
func WithVersion(v string) Option {
	return func(m *Model) { m.version = v }
}

// WithLogger overrides the package-level logger for this model.
func WithLogger(l *zap.Logger) Option {
	return func(m *Model) { m.log = l }
}

// New builds a model session over root. The registry must be frozen. The
// schema version is derived from the root's namespace URI unless fixed
// with WithVersion; the root itself must resolve to a registered class.
func New(reg *Registry, root *tree.Node, opts ...Option) (*Model, error) {
	if !reg.Frozen() {
		return nil, fmt.Errorf("%w: registry must be frozen before use", ErrStructure)
	}
	if root == nil {
		return nil, fmt.Errorf("%w: missing document root", ErrStructure)
	}
	m := &Model{
		registry: reg,
		root:     root,
		wrappers: map[*tree.Node]*Element{},
		ids:      map[string]*tree.Node{},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = Logger()
	}
	if m.version == "" {
		for _, ns := range reg.namespaces {
			if v, ok := ns.Match(root.Tag.NS); ok {
				m.version = v
				break
			}
		}
	}
	if _, err := reg.Resolve(root.Tag.NS, root.Tag.Local); err != nil {
		return nil, err
	}
	err := root.Walk(func(n *tree.Node, post bool) (bool, error) {
		if post {
			return true, nil
		}
		if id, ok := n.Attr(AttrID); ok && id != "" {
			if prev, dup := m.ids[id]; dup && prev != n {
				return false, fmt.Errorf("%w: duplicate id %q", ErrStructure, id)
			}
			m.ids[id] = n
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Version is the document's declared schema version.
func (m *Model) Version() string { return m.version }

// Registry exposes the frozen registry the model was built with.
func (m *Model) Registry() *Registry { return m.registry }

// Root resolves the document root.
func (m *Model) Root() (*Element, error) {
	return m.Resolve(m.root)
}

// Resolve returns the one live wrapper for node, creating it on first
// resolution. Resolving a node with no registered binding fails with
// ErrUnknownType.
func (m *Model) Resolve(node *tree.Node) (*Element, error) {
	if node == nil {
		return nil, fmt.Errorf("%w: nil node", ErrStructure)
	}
	if e, ok := m.wrappers[node]; ok {
		return e, nil
	}
	class, err := m.registry.Resolve(node.Tag.NS, node.Tag.Local)
	if err != nil {
		return nil, err
	}
	e := &Element{model: m, node: node, class: class}
	m.wrappers[node] = e
	return e, nil
}

// ByUUID resolves an element by id.
func (m *Model) ByUUID(id string) (*Element, error) {
	node, ok := m.ids[id]
	if !ok {
		return nil, &DanglingReferenceError{ID: id}
	}
	return m.Resolve(node)
}

// newChild creates a node of the given class under parent at position at
// (-1 appends), assigns it a fresh id, and resolves it. All node creation
// funnels through here so the id index never goes stale.
func (m *Model) newChild(parent *tree.Node, role string, ref ClassRef, at int) (*Element, error) {
	class, err := m.registry.ResolveAt(ref, m.version)
	if err != nil {
		return nil, err
	}
	if class.Abstract() {
		return nil, fmt.Errorf("%w: cannot instantiate abstract class %s", ErrStructure, class)
	}
	node := tree.New(tree.QName{NS: ref.NS.URI(m.version), Local: ref.Name})
	node.Role = role
	id := uuid.NewString()
	node.SetAttr(AttrID, id)
	if at < 0 || at > len(parent.Children) {
		parent.AppendChild(node)
	} else {
		parent.InsertChild(at, node)
	}
	m.ids[id] = node
	e := &Element{model: m, node: node, class: class}
	m.wrappers[node] = e
	return e, nil
}

// removeSubtree detaches node and invalidates every wrapper and id-index
// entry in its subtree. All node removal funnels through here.
func (m *Model) removeSubtree(node *tree.Node) {
	node.Detach()
	node.Walk(func(n *tree.Node, post bool) (bool, error) {
		if post {
			return true, nil
		}
		if e, ok := m.wrappers[n]; ok {
			e.stale = true
			delete(m.wrappers, n)
		}
		if id, ok := n.Attr(AttrID); ok {
			if m.ids[id] == n {
				delete(m.ids, id)
			}
		}
		return true, nil
	})
}
