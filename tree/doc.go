// Package tree holds the mutable backing tree of a loaded model document:
// ordered attributes, ordered children, parent links. It knows nothing
// about the metamodel; typed access lives in the model package.
package tree
