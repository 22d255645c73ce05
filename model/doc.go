// Package model is the object-graph runtime: it resolves backing-tree
// nodes to typed wrapper elements through a versioned namespace registry,
// guarantees one live wrapper per node, and exposes scalar and relation
// bindings that operate directly on the tree. The entity catalog that
// instantiates these bindings is data, fed either from Go declarations
// (package metamodel) or from YAML documents (package schema).
//
// A Model is a single-threaded session over one loaded document. All tree
// mutation funnels through the bindings so the identity map and id index
// never go stale.
package model
