// Package xmlio loads model documents into a backing tree and persists the
// tree back to bytes. It is the only package that touches raw bytes; the
// model runtime operates purely on the in-memory tree.
//
// The wire shape follows the modeling tool's conventions: the element name
// of a nested node is its relation tag (its Role), the concrete type is
// carried in an xsi:type attribute resolved against the document's
// namespace declarations, and references between elements are id strings
// held in flat attributes.
package xmlio
