// Package filter implements the HDF5 chunk filter pipeline.
//
// Writers apply filters in pipeline order and readers undo them in reverse,
// skipping any filter whose bit is set in the chunk's filter mask. The
// standard filters are implemented:
//
//   - Deflate (ID 1): zlib-framed DEFLATE via [Deflate], backed by
//     klauspost/compress.
//   - Shuffle (ID 2): byte transposition via [Shuffle].
//   - Fletcher32 (ID 3): a trailing checksum via [Fletcher32Filter].
//
// Other registered IDs (szip, nbit, scaleoffset) are recognized by name
// only; a dataset that requires them cannot be decoded, but its pipeline
// can still be described.
//
// [Settings] turns dataset creation options into a pipeline message:
//
//	fp := filter.Settings{Deflate: true, Level: 4, Shuffle: true}.Message(8)
//	p, err := filter.NewPipeline(fp)
//	encoded, mask, err := p.Encode(chunk)
package filter
