package ogg

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// PageReader reads Ogg pages from an io.Reader, scanning for the
// capture pattern between pages so that garbage bytes on the physical
// stream are skipped without failing.
type PageReader struct {
	src *bufio.Reader
}

// NewPageReader creates a PageReader over r.
func NewPageReader(r io.Reader) *PageReader {
	return &PageReader{src: bufio.NewReader(r)}
}

// Next returns the next page on the stream.
//
// It returns io.EOF when the source ends cleanly: before a capture
// pattern completes, or immediately after one with no header bytes.
// A source that ends inside a page yields ErrUnexpectedEOF, and a
// page whose CRC does not match yields ErrBadChecksum.
func (pr *PageReader) Next() (*Page, error) {
	if err := pr.resync(); err != nil {
		return nil, err
	}
	return pr.readPage()
}

// resync consumes bytes until the four-byte capture pattern has been
// matched contiguously. On a mismatch the matcher falls back to state
// 1 when the mismatching byte is itself an 'O', so overlapping
// windows are not lost.
func (pr *PageReader) resync() error {
	matched := 0
	for matched < len(capturePattern) {
		b, err := pr.src.ReadByte()
		if err != nil {
			if err == io.EOF {
				return io.EOF
			}
			return fmt.Errorf("ogg: read: %w", err)
		}
		switch {
		case b == capturePattern[matched]:
			matched++
		case b == capturePattern[0]:
			matched = 1
		default:
			matched = 0
		}
	}
	return nil
}

// readPage decodes one page, positioned immediately after a verified
// capture pattern.
func (pr *PageReader) readPage() (*Page, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(pr.src, hdr[:]); err != nil {
		switch err {
		case io.EOF:
			// The stream ended at a page boundary.
			return nil, io.EOF
		case io.ErrUnexpectedEOF:
			return nil, fmt.Errorf("%w: truncated header", ErrUnexpectedEOF)
		default:
			return nil, fmt.Errorf("ogg: read: %w", err)
		}
	}

	if hdr[0] != 0 {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, hdr[0])
	}

	p := &Page{
		Continued:       hdr[1]&flagContinued != 0,
		BOS:             hdr[1]&flagBOS != 0,
		EOS:             hdr[1]&flagEOS != 0,
		GranulePosition: int64(binary.LittleEndian.Uint64(hdr[2:10])),
		Serial:          binary.LittleEndian.Uint32(hdr[10:14]),
		Sequence:        binary.LittleEndian.Uint32(hdr[14:18]),
		Checksum:        binary.LittleEndian.Uint32(hdr[18:22]),
	}

	// Fold the CRC over the header with the checksum slot zeroed.
	hdr[18], hdr[19], hdr[20], hdr[21] = 0, 0, 0, 0
	sum := oggCRC.Update(0, capturePattern[:])
	sum = oggCRC.Update(sum, hdr[:])

	numSegments := int(hdr[22])
	p.SegmentTable = make([]byte, numSegments)
	if _, err := io.ReadFull(pr.src, p.SegmentTable); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: truncated segment table", ErrUnexpectedEOF)
		}
		return nil, fmt.Errorf("ogg: read: %w", err)
	}
	sum = oggCRC.Update(sum, p.SegmentTable)

	payloadSize := 0
	for _, l := range p.SegmentTable {
		payloadSize += int(l)
	}
	p.Payload = make([]byte, payloadSize)
	if _, err := io.ReadFull(pr.src, p.Payload); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: truncated payload", ErrUnexpectedEOF)
		}
		return nil, fmt.Errorf("ogg: read: %w", err)
	}
	sum = oggCRC.Update(sum, p.Payload)

	if sum != p.Checksum {
		return nil, fmt.Errorf("%w: stream %#08x page %d", ErrBadChecksum, p.Serial, p.Sequence)
	}
	return p, nil
}
