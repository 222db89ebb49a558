// Package hdf5 reads and writes chunked datasets in HDF5 files.
//
// Files are written with a version 3 superblock and version 2 object
// headers. Every dataset is chunked; chunks may pass through the shuffle,
// deflate and Fletcher-32 filters:
//
//	f, err := hdf5.Create("out.h5")
//	if err != nil {
//		return err
//	}
//	g, _ := f.Root().RequireGroup("acquisition/ElectricalSeries")
//	w, err := g.CreateDataset("data", []uint64{30000, 64}, dtype.Int16,
//		hdf5.WithChunks(19531, 64),
//		hdf5.WithGzip(4),
//	)
//	...
//	err = w.WriteRegion(start, count, data)
//	...
//	err = f.Close()
//
// Open reads files that use the same structures: compact-link groups,
// contiguous, compact and chunked layouts, and single chunk, implicit or
// fixed array chunk indexes. Other features report ErrUnsupported.
package hdf5
