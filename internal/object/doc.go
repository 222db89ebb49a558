// Package object reads and writes version 2 HDF5 object headers.
//
// A header ("OHDR") is a checksummed block of header messages; messages that
// do not fit may continue in further "OCHK" blocks named by continuation
// messages. [Read] follows continuations and verifies every checksum, and
// exposes the messages a group or dataset reader needs through typed
// getters such as [Header.Dataspace] and [Header.Links].
//
// [Encode] frames a list of encodable messages into a single header block,
// padding it with a NIL message up to a minimum size:
//
//	buf, err := object.Encode(msgs, cfg, object.MinGroupChunkSize)
//
// Version 1 headers, written by libraries configured for the oldest file
// format, return ErrUnsupportedVersion.
package object
