// Package search drives the budget-constrained architecture search: it
// relaxes the supergraph's candidate choices into temperature-annealed
// softmax mixtures, optimizes mixture weights and operator parameters against
// the task objective with a soft budget penalty, prunes, and hands the result
// to the decoder. One logical optimization loop owns all mutable state;
// candidate evaluations inside a step fan out over workers and join at a
// barrier before any update.
package search
