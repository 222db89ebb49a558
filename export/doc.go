// Package export writes the datasets of an object graph to a file using a
// backend.Configuration.
//
// Each planned dataset is created with the chunking and compression of its
// plan and filled one buffer at a time, so at most Concurrency buffers are
// held in memory:
//
//	cfg, err := backend.FromObjectGraph(ctx, root, backend.Zarr)
//	if err != nil {
//		return err
//	}
//	report, err := export.Write(ctx, "session.zarr", root, cfg)
//
// Fields must be ArrayLike values that also implement graph.RegionReader,
// or plain Go values that graph.AsArray can materialize.
package export
