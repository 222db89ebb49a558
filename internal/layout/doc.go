// Package layout stores and locates the chunks of HDF5 datasets.
//
// A [Grid] tiles a dataset shape by a chunk shape. [Grid.SplitRegion] cuts a
// buffered hyperslab into full-size, zero-padded chunks, and [CopyBox]
// moves boxes of elements between row-major arrays in either direction.
//
// [ChunkWriter] filters and stores chunks, possibly from several goroutines,
// then writes the chunk index: a single chunk index for one-chunk datasets
// and an unpaged fixed array ("FAHD"/"FADB") otherwise. [ReadIndex] reads
// single chunk, implicit and fixed array indexes back; B-tree and
// extensible array indexes return [ErrUnsupportedIndex].
package layout
