package alloc

import (
	"sync"
	"testing"
)

func TestAllocatorBasic(t *testing.T) {
	a := New(48)

	if addr := a.Alloc(100, Metadata); addr != 48 {
		t.Errorf("first allocation at %d, want 48", addr)
	}
	if addr := a.Alloc(50, RawData); addr != 148 {
		t.Errorf("second allocation at %d, want 148", addr)
	}
	if eof := a.EOF(); eof != 198 {
		t.Errorf("EOF = %d, want 198", eof)
	}
}

func TestAllocatorZeroSize(t *testing.T) {
	a := New(10)
	if addr := a.Alloc(0, RawData); addr != 10 {
		t.Errorf("zero allocation at %d", addr)
	}
	if s := a.Stats(); s.Allocations != 0 {
		t.Errorf("zero allocation was counted: %+v", s)
	}
}

func TestAllocatorStats(t *testing.T) {
	a := New(0)
	a.Alloc(10, Metadata)
	a.Alloc(1000, RawData)
	a.Alloc(24, RawData)

	s := a.Stats()
	if s.Allocations != 3 || s.MetadataBytes != 10 || s.RawDataBytes != 1024 {
		t.Errorf("stats = %+v", s)
	}
}

func TestAllocatorConcurrent(t *testing.T) {
	a := New(0)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				a.Alloc(7, RawData)
			}
		}()
	}
	wg.Wait()

	if eof := a.EOF(); eof != 16*100*7 {
		t.Errorf("EOF = %d", eof)
	}
	if err := a.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}
