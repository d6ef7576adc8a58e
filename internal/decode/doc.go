// Package decode is the discrete controller: it collapses a supergraph's
// mixture weights into a single typed graph, enforces the budget through
// greedy candidate swaps, and runs the direct-evaluation pass that lets
// non-differentiable operators into a decoded graph. Decoding is
// single-threaded; it is cheap next to optimization.
package decode
