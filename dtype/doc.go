// Package dtype infers storage element types for array-like values.
//
// A [Descriptor] is a closed description of one element: a fixed-width
// numeric or boolean type, or a variable-length string or bytes type whose
// item size is an estimate.
//
// # Inference
//
// [Infer] accepts typed Go slices and arrays, values that declare their own
// element type through [Typed], lazily loaded string columns implementing
// [StringSampler], and untyped nested sequences ([]any) as produced by
// ragged table columns:
//
//	d, err := dtype.Infer([]any{"a", "bb", nil, "cccc"})
//	// d == Descriptor{Kind: String, Size: 4}
//
// Untyped sequences are unified leaf by leaf. Missing values (nil) are
// skipped. Leaves of one kind widen to the largest width seen; leaves of
// different kinds are rejected with [ErrTypeConflict]:
//
//	_, err := dtype.Infer([]any{1, "a"})
//	// ErrTypeConflict.Is(err) == true
//
// # String Item Sizes
//
// The item size of a string column is the largest UTF-8 byte length found
// in a bounded sample of the first [DefaultSampleSize] strings. When the
// sample is empty the descriptor falls back to [DefaultStringSize] and is
// marked Provisional. A sample that stopped before the end of the column is
// also marked Provisional, since a longer string may follow it.
//
// # Encoding
//
// [Encode] flattens a value in row-major order into little-endian fixed
// width bytes for a descriptor. Strings are null padded to the item size.
package dtype
