package message

import (
	"bytes"
	"errors"
	"testing"

	"github.com/robert-malhotra/go-chunkplan/dtype"
	"github.com/robert-malhotra/go-chunkplan/internal/binary"
)

var cfg = binary.DefaultConfig()

func roundTrip(t *testing.T, m Encodable) Message {
	t.Helper()
	e := binary.NewEncoder(cfg)
	m.Encode(e)
	got, err := Parse(m.Type(), e.Bytes(), cfg)
	if err != nil {
		t.Fatalf("Parse(%v): %v", m.Type(), err)
	}
	return got
}

func TestDataspaceRoundTrip(t *testing.T) {
	ds := roundTrip(t, NewDataspace([]uint64{64, 30_000_000})).(*Dataspace)
	if ds.SpaceType != DataspaceSimple || len(ds.Dimensions) != 2 {
		t.Fatalf("got %+v", ds)
	}
	if ds.Dimensions[1] != 30_000_000 {
		t.Errorf("dim 1 = %d", ds.Dimensions[1])
	}
	if ds.NumElements() != 64*30_000_000 {
		t.Errorf("NumElements = %d", ds.NumElements())
	}
	if ds.MaxDims != nil {
		t.Errorf("unexpected max dims %v", ds.MaxDims)
	}
}

func TestDatatypeDescriptors(t *testing.T) {
	descs := []dtype.Descriptor{
		dtype.Int8, dtype.Int64, dtype.Uint16, dtype.Float32, dtype.Float64,
		{Kind: dtype.Float, Size: 2},
		dtype.StringOf(12),
		{Kind: dtype.Bytes, Size: 5},
		dtype.Bool8,
	}
	for _, want := range descs {
		dt, err := FromDescriptor(want)
		if err != nil {
			t.Fatalf("FromDescriptor(%s): %v", want, err)
		}
		got, err := roundTrip(t, dt).(*Datatype).Descriptor()
		if err != nil {
			t.Fatalf("Descriptor(%s): %v", want, err)
		}
		if got != want {
			t.Errorf("round trip %s -> %s", want, got)
		}
	}
}

func TestDatatypeFloatLayout(t *testing.T) {
	dt, _ := FromDescriptor(dtype.Float64)
	e := binary.NewEncoder(cfg)
	dt.Encode(e)
	b := e.Bytes()
	// class 1, version 1; sign at bit 63
	if b[0] != 0x11 || b[2] != 63 {
		t.Errorf("header bytes %x", b[:4])
	}
	if len(b) != 8+12 {
		t.Errorf("float datatype is %d bytes", len(b))
	}
}

func TestDatatypeRejectsBigEndian(t *testing.T) {
	dt := &Datatype{Version: 1, Class: ClassFixedPoint, Size: 4, BigEndian: true}
	if _, err := roundTrip(t, dt).(*Datatype).Descriptor(); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestChunkedLayoutRoundTrip(t *testing.T) {
	l := NewChunkedLayout([]uint64{64, 19531}, 8)
	l.Index = ChunkIndexFixedArray
	l.PageBits = 11
	l.Address = 4096
	got := roundTrip(t, l).(*DataLayout)
	if got.Class != LayoutChunked || got.Index != ChunkIndexFixedArray {
		t.Fatalf("got class %v index %d", got.Class, got.Index)
	}
	if len(got.ChunkDims) != 2 || got.ChunkDims[0] != 64 || got.ChunkDims[1] != 19531 {
		t.Errorf("chunk dims %v", got.ChunkDims)
	}
	if got.ElementSize != 8 || got.PageBits != 11 || got.Address != 4096 {
		t.Errorf("got %+v", got)
	}
}

func TestSingleChunkFilteredLayout(t *testing.T) {
	l := NewChunkedLayout([]uint64{10}, 4)
	l.Index = ChunkIndexSingleChunk
	l.Flags = FlagSingleIndexWithFilter
	l.FilteredSize = 17
	l.Address = 200
	got := roundTrip(t, l).(*DataLayout)
	if got.FilteredSize != 17 || got.FilterMask != 0 || got.Address != 200 {
		t.Errorf("got %+v", got)
	}
}

func TestParseV3ChunkedLayout(t *testing.T) {
	e := binary.NewEncoder(cfg)
	e.Uint8(3)
	e.Uint8(uint8(LayoutChunked))
	e.Uint8(3)
	e.Offset(800)
	e.Uint32(100)
	e.Uint32(20)
	e.Uint32(4)
	m, err := Parse(TypeDataLayout, e.Bytes(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	l := m.(*DataLayout)
	if l.Index != ChunkIndexBTreeV1 || l.Address != 800 {
		t.Errorf("got %+v", l)
	}
	if len(l.ChunkDims) != 2 || l.ChunkDims[1] != 20 || l.ElementSize != 4 {
		t.Errorf("chunk dims %v element %d", l.ChunkDims, l.ElementSize)
	}
}

func TestFilterPipelineRoundTrip(t *testing.T) {
	fp := &FilterPipeline{Filters: []FilterInfo{
		{ID: FilterShuffle, ClientData: []uint32{8}},
		{ID: FilterDeflate, ClientData: []uint32{4}},
		{ID: FilterFletcher32},
	}}
	got := roundTrip(t, fp).(*FilterPipeline)
	if len(got.Filters) != 3 {
		t.Fatalf("got %d filters", len(got.Filters))
	}
	if got.Filters[1].ID != FilterDeflate || got.Filters[1].ClientData[0] != 4 {
		t.Errorf("deflate filter %+v", got.Filters[1])
	}
	if !got.Has(FilterFletcher32) || got.Has(FilterSZIP) {
		t.Error("Has reported the wrong filters")
	}
}

func TestParseV1FilterPipeline(t *testing.T) {
	e := binary.NewEncoder(cfg)
	e.Uint8(1)
	e.Uint8(1)
	e.Zeros(6)
	e.Uint16(FilterDeflate)
	e.Uint16(8)
	e.Uint16(0)
	e.Uint16(1)
	e.String("deflate\x00")
	e.Uint32(6)
	e.Zeros(4)
	m, err := Parse(TypeFilterPipeline, e.Bytes(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	f := m.(*FilterPipeline).Filters[0]
	if f.Name != "deflate" || f.ClientData[0] != 6 {
		t.Errorf("got %+v", f)
	}
}

func TestLinks(t *testing.T) {
	hard := roundTrip(t, NewHardLink("timeseries", 1234)).(*Link)
	if hard.LinkType != LinkTypeHard || hard.Name != "timeseries" || hard.ObjectAddress != 1234 {
		t.Errorf("hard link %+v", hard)
	}

	long := string(bytes.Repeat([]byte("n"), 300))
	if got := roundTrip(t, NewHardLink(long, 1)).(*Link); got.Name != long {
		t.Errorf("long name truncated to %d bytes", len(got.Name))
	}

	ext := roundTrip(t, NewExternalLink("raw", "other.h5", "/acquisition/raw")).(*Link)
	if ext.LinkType != LinkTypeExternal || ext.ExternalFile != "other.h5" || ext.ExternalPath != "/acquisition/raw" {
		t.Errorf("external link %+v", ext)
	}
}

func TestLinkInfoCompact(t *testing.T) {
	li := roundTrip(t, NewLinkInfo()).(*LinkInfo)
	if li.Dense(cfg) {
		t.Error("new link info reports dense storage")
	}
}

func TestContinuationAndUnknown(t *testing.T) {
	c := roundTrip(t, &Continuation{Offset: 10, Length: 20}).(*Continuation)
	if c.Offset != 10 || c.Length != 20 {
		t.Errorf("got %+v", c)
	}
	m, err := Parse(TypeAttribute, []byte{1, 2, 3}, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if u, ok := m.(*Unknown); !ok || len(u.Data()) != 3 {
		t.Errorf("got %#v", m)
	}
}
