package binary

// Lookup3Checksum returns Bob Jenkins' lookup3 hashlittle of data with an
// initial value of 0, the checksum of HDF5 v2 metadata blocks.
func Lookup3Checksum(data []byte) uint32 {
	a := uint32(0xdeadbeef) + uint32(len(data))
	b, c := a, a
	k := data

	// The final 1 to 12 bytes go through the final mix, never the loop.
	for len(k) > 12 {
		a += le32(k[0:4])
		b += le32(k[4:8])
		c += le32(k[8:12])
		a, b, c = mix(a, b, c)
		k = k[12:]
	}
	if len(k) == 0 {
		return c
	}

	var tail [12]byte
	copy(tail[:], k)
	a += le32(tail[0:4])
	b += le32(tail[4:8])
	c += le32(tail[8:12])
	_, _, c = final(a, b, c)
	return c
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func mix(a, b, c uint32) (uint32, uint32, uint32) {
	a -= c
	a ^= rotl(c, 4)
	c += b
	b -= a
	b ^= rotl(a, 6)
	a += c
	c -= b
	c ^= rotl(b, 8)
	b += a
	a -= c
	a ^= rotl(c, 16)
	c += b
	b -= a
	b ^= rotl(a, 19)
	a += c
	c -= b
	c ^= rotl(b, 4)
	b += a
	return a, b, c
}

func final(a, b, c uint32) (uint32, uint32, uint32) {
	c ^= b
	c -= rotl(b, 14)
	a ^= c
	a -= rotl(c, 11)
	b ^= a
	b -= rotl(a, 25)
	c ^= b
	c -= rotl(b, 16)
	a ^= c
	a -= rotl(c, 4)
	b ^= a
	b -= rotl(a, 14)
	c ^= b
	c -= rotl(b, 24)
	return a, b, c
}

func rotl(x uint32, k uint) uint32 {
	return x<<k | x>>(32-k)
}

// Fletcher32 returns the Fletcher-32 checksum HDF5 appends to filtered
// chunks. Data is read as big-endian 16-bit words; an odd trailing byte is
// padded with zero.
func Fletcher32(data []byte) uint32 {
	var sum1, sum2 uint32
	i := 0
	for ; i+1 < len(data); i += 2 {
		sum1 = (sum1 + (uint32(data[i])<<8 | uint32(data[i+1]))) % 65535
		sum2 = (sum2 + sum1) % 65535
	}
	if i < len(data) {
		sum1 = (sum1 + uint32(data[i])<<8) % 65535
		sum2 = (sum2 + sum1) % 65535
	}
	return sum2<<16 | sum1
}
