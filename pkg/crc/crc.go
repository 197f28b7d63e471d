// Package crc implements the table-driven CRC-32 used by the Ogg
// container format.
//
// Unlike hash/crc32, which only implements reflected (LSB-first)
// variants, Ogg folds bytes MSB-first with a zero initial remainder
// and no final inversion. The engine is parameterized by polynomial
// so the same tables serve other big-endian CRC-32 framings.
package crc

// Table is a 256-entry lookup table for a CRC-32 polynomial.
//
// The polynomial is given in big-endian bit order with the leading
// term implicit: the Ogg polynomial 0x104C11DB7 is written 0x04C11DB7.
// Tables are immutable after construction and safe for concurrent use.
type Table [256]uint32

// MakeTable builds the lookup table for poly.
func MakeTable(poly uint32) *Table {
	var t Table
	for i := range t {
		t[i] = tableEntry(uint8(i), poly)
	}
	return &t
}

// tableEntry shifts mask left through 8 bit positions, folding the
// polynomial in whenever the top bit is set. The mask correction by
// poly>>25 accounts for the implicit leading 1.
func tableEntry(mask uint8, poly uint32) uint32 {
	var out uint32
	for i := 0; i < 8; i++ {
		if mask&0x80 != 0 {
			out ^= poly << (7 - i)
			mask ^= uint8(poly >> 25)
		}
		mask <<= 1
	}
	return out
}

// Update folds p into the running remainder crc and returns the new
// remainder. Passing the remainder of one call as the initial value of
// the next is equivalent to a single call over the concatenated input:
//
//	t.Update(t.Update(r, a), b) == t.Update(r, append(a, b...))
func (t *Table) Update(crc uint32, p []byte) uint32 {
	for _, b := range p {
		crc = (crc << 8) ^ t[b^uint8(crc>>24)]
	}
	return crc
}

// UpdateByte folds a single byte into crc.
func (t *Table) UpdateByte(crc uint32, b byte) uint32 {
	return (crc << 8) ^ t[b^uint8(crc>>24)]
}

// Checksum returns the remainder of p with a zero initial remainder.
func (t *Table) Checksum(p []byte) uint32 {
	return t.Update(0, p)
}
