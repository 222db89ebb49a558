// Package zarr reads and writes Zarr v2 hierarchies in directory stores.
//
// Arrays are stored in C order with "." separated chunk keys. Each chunk
// passes through the array's filters and then its compressor; the gzip,
// zlib, zstd and shuffle codecs are supported:
//
//	root, err := zarr.Create("out.zarr")
//	if err != nil {
//		return err
//	}
//	g, _ := root.RequireGroup("acquisition/ElectricalSeries")
//	arr, err := g.CreateArray("data", []uint64{30000, 64}, dtype.Int16,
//		zarr.WithChunks(19531, 64),
//		zarr.WithCompressor(map[string]any{"id": "gzip", "level": 4}),
//	)
//	...
//	err = arr.WriteRegion(ctx, start, count, data)
//
// Nothing is buffered: metadata documents are written when a node is
// created and chunk files when a region is written.
package zarr
