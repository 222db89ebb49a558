package binary

import (
	"testing"
)

func TestLookup3Checksum(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  uint32
	}{
		{"empty", []byte{}, 0xdeadbeef},
		{"four score", []byte("Four score and seven years ago"), 0x17770551},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Lookup3Checksum(tt.input); got != tt.want {
				t.Errorf("Lookup3Checksum = 0x%08x, want 0x%08x", got, tt.want)
			}
		})
	}
}

func TestLookup3ChecksumLengthVariations(t *testing.T) {
	checksums := make(map[uint32]int)

	for length := 0; length <= 24; length++ {
		data := make([]byte, length)
		for i := range data {
			data[i] = byte(i)
		}
		checksums[Lookup3Checksum(data)] = length
	}

	if len(checksums) != 25 {
		t.Errorf("expected 25 unique checksums for lengths 0-24, got %d", len(checksums))
	}
}

func TestFletcher32(t *testing.T) {
	if got := Fletcher32(nil); got != 0 {
		t.Errorf("Fletcher32(empty) = 0x%08x, want 0", got)
	}
	if got := Fletcher32([]byte{0x01, 0x02}); got != 0x01020102 {
		t.Errorf("Fletcher32(01 02) = 0x%08x, want 0x01020102", got)
	}
}

func TestFletcher32OddLength(t *testing.T) {
	odd := []byte{0x01, 0x02, 0x03}
	even := []byte{0x01, 0x02, 0x03, 0x00}

	if Fletcher32(odd) != Fletcher32(even) {
		t.Errorf("odd-length input not zero padded: odd=0x%08x, even=0x%08x",
			Fletcher32(odd), Fletcher32(even))
	}
}

func BenchmarkLookup3Checksum(b *testing.B) {
	data := make([]byte, 4096)
	for i := range data {
		data[i] = byte(i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Lookup3Checksum(data)
	}
}
