// Package plan defines the immutable query plan that the rest of the
// compiler consumes.
//
// A plan is a linear chain of nodes: Source at the leaf, every other node
// holding exactly one input. Nodes are never mutated after construction;
// the optimizer replaces them wholesale. Structural identity is defined by
// canonical serialization and domain-separated SHA-256 hashing, so two
// plans built from the same calls with the same values always hash equal.
package plan
