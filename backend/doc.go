// Package backend builds storage plans for the datasets of an object graph.
//
// A DatasetIOConfiguration binds one dataset's location, shape, element
// type, chunk plan and compression to a storage backend (HDF5 or Zarr). A
// Configuration collects the plans for every dataset of one conversion,
// keyed by location.
//
// Plans are produced by FromObjectGraph, which walks the graph, infers each
// field's element type, and computes chunk and buffer shapes:
//
//	cfg, err := backend.FromObjectGraph(ctx, root, backend.HDF5,
//		backend.WithChunkMB(10),
//		backend.WithBufferGB(1),
//	)
//	if err != nil {
//		return err
//	}
//	for _, d := range cfg.Datasets() {
//		kwargs := d.ToBackendKwargs()
//		...
//	}
//
// FromWrittenFile rebuilds a Configuration from the chunk and filter
// metadata of an existing file, so a plan can be compared with what was
// written.
//
// Entries are replaced, never edited: Override swaps one entry for another
// with the same location, backend and shape, and ApplyOverrides does the
// same from a YAML Document.
package backend
