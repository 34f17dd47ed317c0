// Package indicators is a pure technical indicator library.
//
// Every function borrows its input, never mutates it, and returns output
// aligned to a suffix of the input: len(out) == len(in) - warmup + 1. When the
// input is shorter than the warm-up the result is empty (nil), never an error.
// Callers treat an empty result as "indicator unavailable".
package indicators
