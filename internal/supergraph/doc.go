// Package supergraph builds the searchable structure: a layered graph of
// typed states where each state holds the masked set of catalog operators
// that can fire there. Masking happens through type unification against the
// catalog, never by instantiating candidates, and every candidate kept is
// guaranteed to leave the requested output type reachable within the
// remaining stages.
package supergraph
