// Package superblock reads and writes the HDF5 superblock, the fixed
// structure that locates the root group and declares the width of file
// addresses.
//
// Only the compact version 2 and 3 layouts are supported; [Read] searches
// for the signature at offsets 0, 512, 1024 and 2048 and verifies the
// lookup3 checksum. Files written by this module always carry a version 3
// superblock at offset 0:
//
//	sb := superblock.New()
//	sb.RootGroupAddress = root
//	sb.EOFAddress = eof
//	f.WriteAt(sb.Encode(), 0)
package superblock
