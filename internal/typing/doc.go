// Package typing is the symbolic type model shared by the catalog, the graph
// builder and the search engine. A Type classifies the data flowing between
// operators by kind, shape, metric and invariance group. Shapes may contain
// symbolic dimensions; symbols are bound to concrete sizes through an explicit
// Bindings environment that is threaded through graph construction, so the
// same symbol must resolve to the same size everywhere in one graph.
package typing
