// Package chunking computes chunk and buffer shapes for datasets under byte
// budgets.
//
// A [Plan] pairs a chunk shape, the unit of compressed storage, with a
// buffer shape, the chunk-aligned unit the writer fills before flushing.
// [Compute] derives both from a dataset's full shape and item size:
//
//	plan, err := chunking.Compute([]uint64{64, 30_000_000}, 8, chunking.Options{})
//	// plan.ChunkShape == [64 19531]
//
// # Growth Order
//
// Chunks start at one element per axis and grow one axis at a time, each
// taking as much of the remaining budget as fits. The default order treats
// axis 0 as the primary axis (channels, units) and the last axis as the
// extent axis (time, samples); middle axes grow last and only once both
// primary and extent axes span the full dataset. [Options.AxisPriority]
// replaces this order for data where it does not apply.
//
// # Arithmetic
//
// Byte sizes are computed with saturating uint64 products and integer
// division, so very large shapes and item sizes cannot overflow into a
// plan that silently exceeds its budget.
//
// Budgets use decimal units: [MB] is 1e6 bytes and [GB] is 1e9 bytes.
package chunking
