// Package core contains the foundational value types and contracts of
// taskmesh: the Task/Result protocol, the Agent abstraction, the shared
// context interface and the delegation error taxonomy.
//
// The package depends on nothing else inside the module so that every other
// component (bus, limiter, registry, shared context) can build on it without
// import cycles. All types here are either immutable values or pure
// interfaces; concrete behavior lives in the sibling packages.
package core
