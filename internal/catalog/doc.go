// Package catalog is the registry of declared operators. Every operator the
// engine may place in a graph is registered here exactly once, as an immutable
// record pairing a declared type signature with the Go handler that executes
// it. The catalog is built at load time and frozen before any search runs;
// after Freeze it is safe to share by reference across concurrent workers.
package catalog
