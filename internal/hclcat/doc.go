// Package hclcat loads operator catalogs from HCL declarations. A catalog
// file declares kinds and operators; each operator names a compiled handler
// from the handlers registry. Loading is per-entry fault tolerant: a
// malformed declaration fails that entry and loading continues, with every
// failure aggregated into the returned error.
package hclcat
