// Package message decodes and encodes HDF5 object header messages.
//
// Reading covers what is needed to describe a dataset written by any HDF5
// library: [Dataspace], [Datatype], [DataLayout] (versions 3 and 4, every
// chunk index type), [FilterPipeline] (versions 1 and 2) and [Link].
// Everything else is returned as [Unknown].
//
// Writing covers the messages of compact groups and chunked datasets. Each
// writable message implements [Encodable]; the object package frames the
// encoded bodies into a header.
//
// Datatypes map to and from dtype descriptors with [FromDescriptor] and
// [Datatype.Descriptor]. Strings are fixed length, null padded UTF-8, bytes
// are opaque and bool is an 8-bit FALSE/TRUE enum.
package message
