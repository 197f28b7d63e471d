// Package ogg implements the Ogg container format: page framing with
// CRC-32 validation, demultiplexing of interleaved logical streams,
// and multiplexed page output over a shared sink.
//
// The physical stream is a sequence of pages, each tagged with a
// 32-bit serial number identifying its logical stream. PageReader
// recovers pages from any io.Reader, resynchronizing on the "OggS"
// capture pattern; Demuxer dispatches page payloads to per-stream
// subscribers; Muxer fans multiple logical writers into one sink.
package ogg

import (
	"encoding/binary"

	"github.com/haivivi/oggstream/pkg/crc"
)

const (
	// MaxPayload is the maximum payload size of a single page:
	// 255 segments of 255 bytes.
	MaxPayload = 255 * 255

	// MaxSegments is the maximum number of entries in a segment table.
	MaxSegments = 255

	// headerSize is the fixed header length after the capture pattern.
	headerSize = 23
)

// Header type flag bits.
const (
	flagContinued = 0x01 // payload continues a packet from the previous page
	flagBOS       = 0x02 // beginning of stream
	flagEOS       = 0x04 // end of stream
)

var capturePattern = [4]byte{'O', 'g', 'g', 'S'}

// oggCRC is the page checksum table: polynomial 0x04C11DB7, zero
// initial remainder, no final inversion.
var oggCRC = crc.MakeTable(0x04C11DB7)

// Page is one Ogg page.
type Page struct {
	// Continued indicates the payload continues a packet from the
	// previous page of the same logical stream.
	Continued bool
	// BOS indicates the beginning of a logical stream.
	BOS bool
	// EOS indicates the end of a logical stream.
	EOS bool

	// GranulePosition is an opaque 64-bit codec timestamp.
	GranulePosition int64
	// Serial identifies the logical stream.
	Serial uint32
	// Sequence is the page counter within the logical stream.
	Sequence uint32
	// Checksum is the CRC-32 carried in the header.
	Checksum uint32

	// SegmentTable holds the lacing values. A value below 255
	// terminates a packet; a page-final 255 continues it on the
	// next page.
	SegmentTable []byte
	// Payload is the concatenation of all segment bytes.
	Payload []byte
}

// lacing derives the segment table for a payload of n bytes that
// terminates its packet. Payloads that are a non-zero multiple of 255
// get a trailing zero-length segment so the packet does not read as
// continued, except at MaxPayload where the table is exactly 255
// entries of 255 and the packet necessarily spills over.
func lacing(n int) []byte {
	if n == 0 {
		return nil
	}
	if n == MaxPayload {
		segs := make([]byte, MaxSegments)
		for i := range segs {
			segs[i] = 255
		}
		return segs
	}
	segs := make([]byte, n/255+1)
	for i := range segs[:len(segs)-1] {
		segs[i] = 255
	}
	segs[len(segs)-1] = byte(n % 255)
	return segs
}

// encodePage builds the header and segment table for one page. The
// CRC is folded over capture pattern, header with a zeroed checksum
// slot, segment table and payload, then patched into the header.
// len(payload) must not exceed MaxPayload.
func encodePage(flags byte, granule int64, serial, sequence uint32, payload []byte) (hdr [headerSize]byte, segs []byte) {
	segs = lacing(len(payload))

	hdr[0] = 0 // stream structure version
	hdr[1] = flags
	binary.LittleEndian.PutUint64(hdr[2:10], uint64(granule))
	binary.LittleEndian.PutUint32(hdr[10:14], serial)
	binary.LittleEndian.PutUint32(hdr[14:18], sequence)
	// hdr[18:22] is the checksum slot, zero while the CRC is folded
	hdr[22] = byte(len(segs))

	sum := oggCRC.Update(0, capturePattern[:])
	sum = oggCRC.Update(sum, hdr[:])
	sum = oggCRC.Update(sum, segs)
	sum = oggCRC.Update(sum, payload)
	binary.LittleEndian.PutUint32(hdr[18:22], sum)

	return hdr, segs
}
