// Package metamodel carries the compiled-in subset of the entity catalog:
// namespace identities and class declarations that instantiate the model
// runtime's binding types. It is data, not behavior: the runtime in
// package model does all the work.
//
// Out-of-tree viewpoint extensions feed the same runtime through package
// schema instead.
package metamodel
