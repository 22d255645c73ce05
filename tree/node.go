package tree

import "slices"

// QName is a qualified tag: a namespace URI plus a local name. For model
// documents the URI usually carries the concrete schema version, e.g.
// "http://www.polarsys.org/capella/core/fa/7.0.0".
type QName struct {
	NS    string
	Local string
}

func (q QName) String() string {
	if q.NS == "" {
		return q.Local
	}
	return "{" + q.NS + "}" + q.Local
}

func (q QName) IsZero() bool {
	return q.NS == "" && q.Local == ""
}

// Attr is one scalar attribute. Order of attributes on a node is
// significant and preserved through load and persist.
type Attr struct {
	Name  string
	Value string
}

// Node is one element of the backing document. The tree owns its nodes;
// wrapper objects built on top of it only ever hold references.
//
// Tag identifies the node's concrete type. Role is the relation tag under
// which the node sits in its parent ("ownedFunctions" and the like); it is
// empty for the document root.
type Node struct {
	Tag    QName
	Role   string
	Parent *Node

	Attrs    []Attr
	Children []*Node
}

// New returns a parentless node with the given tag.
func New(tag QName) *Node {
	return &Node{Tag: tag}
}

// Attr returns the value of the named attribute. The second result
// distinguishes an absent attribute from one holding the empty string.
func (n *Node) Attr(name string) (string, bool) {
	for i := range n.Attrs {
		if n.Attrs[i].Name == name {
			return n.Attrs[i].Value, true
		}
	}
	return "", false
}

// SetAttr sets the named attribute, appending it if absent.
func (n *Node) SetAttr(name, value string) {
	for i := range n.Attrs {
		if n.Attrs[i].Name == name {
			n.Attrs[i].Value = value
			return
		}
	}
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: value})
}

// DelAttr removes the named attribute, reporting whether it was present.
func (n *Node) DelAttr(name string) bool {
	for i := range n.Attrs {
		if n.Attrs[i].Name == name {
			n.Attrs = slices.Delete(n.Attrs, i, i+1)
			return true
		}
	}
	return false
}

// AppendChild attaches c as the last child of n. c must be detached.
func (n *Node) AppendChild(c *Node) {
	c.Parent = n
	n.Children = append(n.Children, c)
}

// InsertChild attaches c at position i among n's children. i may equal
// len(n.Children), which is equivalent to AppendChild.
func (n *Node) InsertChild(i int, c *Node) {
	c.Parent = n
	n.Children = slices.Insert(n.Children, i, c)
}

// RemoveChild detaches c from n, reporting whether c was a child of n.
// Sibling order of the remaining children is untouched.
func (n *Node) RemoveChild(c *Node) bool {
	for i, cc := range n.Children {
		if cc == c {
			n.Children = slices.Delete(n.Children, i, i+1)
			c.Parent = nil
			return true
		}
	}
	return false
}

// Detach removes n from its parent, if any.
func (n *Node) Detach() {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// Index returns n's position among its parent's children, or -1 for a
// parentless node.
func (n *Node) Index() int {
	if n.Parent == nil {
		return -1
	}
	return slices.Index(n.Parent.Children, n)
}

// Root walks parent links up to the tree root.
func (n *Node) Root() *Node {
	res := n
	for res.Parent != nil {
		res = res.Parent
	}
	return res
}

// HasAncestor reports whether a is n or an ancestor of n.
func (n *Node) HasAncestor(a *Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur == a {
			return true
		}
	}
	return false
}

// ChildrenByRole returns the children sitting under the given relation tag,
// in document order.
func (n *Node) ChildrenByRole(role string) []*Node {
	var res []*Node
	for _, c := range n.Children {
		if c.Role == role {
			res = append(res, c)
		}
	}
	return res
}

// Walk visits n and its descendants in document order. f is called twice
// per node, pre- and post-order; returning false from the pre-order call
// skips the node's children, returning an error aborts the walk.
func (n *Node) Walk(f func(n *Node, post bool) (bool, error)) error {
	dive, err := f(n, false)
	if err != nil {
		return err
	}
	if dive {
		for _, c := range n.Children {
			if err := c.Walk(f); err != nil {
				return err
			}
		}
	}
	_, err = f(n, true)
	return err
}
