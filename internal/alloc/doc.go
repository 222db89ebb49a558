// Package alloc manages file space while an HDF5 file is written.
//
// Space is appended at the end of file: chunk data, chunk indexes and object
// headers each take the next free block, and the final end-of-file address
// is recorded in the superblock. The allocator is shared by concurrent
// chunk writers and keeps per-use byte totals for reporting.
package alloc
