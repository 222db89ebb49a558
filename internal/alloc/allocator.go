package alloc

import (
	"fmt"
	"sort"
	"sync"
)

// Use classifies an allocation.
type Use uint8

const (
	Metadata Use = iota
	RawData
)

func (u Use) String() string {
	if u == RawData {
		return "raw"
	}
	return "metadata"
}

// Allocator hands out file space by appending at the end of file. It is
// safe for concurrent use by chunk writers.
type Allocator struct {
	mu          sync.Mutex
	base        uint64
	eof         uint64
	allocations []Allocation
	stats       Stats
}

// Allocation is one block handed out.
type Allocation struct {
	Addr uint64
	Size uint64
	Use  Use
}

// Stats totals the bytes allocated per use.
type Stats struct {
	Allocations   int
	MetadataBytes uint64
	RawDataBytes  uint64
}

// New returns an allocator whose first block starts at base.
func New(base uint64) *Allocator {
	return &Allocator{base: base, eof: base}
}

// Alloc reserves size bytes and returns their address. A zero size returns
// the current end of file without reserving anything.
func (a *Allocator) Alloc(size uint64, use Use) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	addr := a.eof
	if size == 0 {
		return addr
	}
	a.eof += size
	a.allocations = append(a.allocations, Allocation{Addr: addr, Size: size, Use: use})
	a.stats.Allocations++
	if use == RawData {
		a.stats.RawDataBytes += size
	} else {
		a.stats.MetadataBytes += size
	}
	return addr
}

// EOF returns the end-of-file address.
func (a *Allocator) EOF() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.eof
}

// Stats returns the allocation totals.
func (a *Allocator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// Validate checks that no two allocations overlap and that all lie between
// the base address and the end of file.
func (a *Allocator) Validate() error {
	a.mu.Lock()
	allocs := append([]Allocation(nil), a.allocations...)
	base, eof := a.base, a.eof
	a.mu.Unlock()

	sort.Slice(allocs, func(i, j int) bool { return allocs[i].Addr < allocs[j].Addr })
	prevEnd := base
	for _, al := range allocs {
		if al.Addr < prevEnd {
			return fmt.Errorf("%s allocation at 0x%x overlaps the block ending at 0x%x", al.Use, al.Addr, prevEnd)
		}
		prevEnd = al.Addr + al.Size
	}
	if prevEnd > eof {
		return fmt.Errorf("allocation ending at 0x%x extends past EOF 0x%x", prevEnd, eof)
	}
	return nil
}
