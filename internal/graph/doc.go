// Package graph is the typed DAG of instantiated operators. Construction is
// type-checked: every edge is unified against the destination operator's
// declared input slot under the graph's shared symbol bindings, adapter nodes
// are inserted automatically where a registered adapter bridges a slot, and
// anything else is rejected atomically. Execution walks the graph in node-id
// order and invokes each operator through the catalog's handler contract.
package graph
