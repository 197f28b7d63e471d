package oggopus

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/haivivi/oggstream/pkg/ogg"
)

/*
ref: https://tools.ietf.org/html/rfc7845.html

	Page 0         Pages 1 ... n        Pages (n+1) ...

+------------+ +---+ +---+ ... +---+ +-----------+ +---------+ +--
|            | |   | |   |     |   | |           | |         | |
|+----------+| |+-----------------+| |+-------------------+ +-----
|||ID Header|| ||  Comment Header || ||Audio Data Packet 1| | ...
|+----------+| |+-----------------+| |+-------------------+ +-----
|            | |   | |   |     |   | |           | |         | |
+------------+ +---+ +---+ ... +---+ +-----------+ +---------+ +--
^      ^                           ^
|      |                           |
|      |                           Mandatory Page Break
|      |
|      ID header is contained on a single page
|
'Beginning Of Stream'
*/
const (
	idSignature      = "OpusHead"
	commentSignature = "OpusTags"
	vendor           = "oggstream"

	// DefaultPreSkip is the pre-skip written into the ID header:
	// RFC 7845 §5.1 recommends 80ms (3840 samples at 48kHz).
	DefaultPreSkip = 3840
)

var errEmptyPacket = errors.New("oggopus: empty packet")

// Writer packages Opus packets into one logical stream of an Ogg
// physical stream. Several Writers may share a Muxer.
type Writer struct {
	stream  *ogg.LogicalWriter
	granule int64
	closed  bool
}

// NewWriter allocates a logical stream on mux and writes the OpusHead
// and OpusTags header pages. sampleRate is the original input rate
// recorded in the ID header; granule positions always count 48 kHz
// samples.
func NewWriter(mux *ogg.Muxer, sampleRate int, channels int) (*Writer, error) {
	w := &Writer{stream: mux.NewStream()}
	if err := w.writeHeaders(sampleRate, channels); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Writer) writeHeaders(sampleRate, channels int) error {
	// ID header, its own beginning-of-stream page
	id := make([]byte, 19)
	copy(id, idSignature)
	id[8] = 1 // version
	id[9] = uint8(channels)
	binary.LittleEndian.PutUint16(id[10:], DefaultPreSkip)
	binary.LittleEndian.PutUint32(id[12:], uint32(sampleRate))
	binary.LittleEndian.PutUint16(id[16:], 0) // output gain
	id[18] = 0                                // channel map 0: one stream, mono or stereo

	if err := w.stream.WritePage(id, 0, true, false); err != nil {
		return fmt.Errorf("oggopus: id header: %w", err)
	}

	// Comment header (RFC 7845 §5.2)
	tags := make([]byte, 8+4+len(vendor)+4)
	copy(tags, commentSignature)
	binary.LittleEndian.PutUint32(tags[8:], uint32(len(vendor)))
	copy(tags[12:], vendor)
	binary.LittleEndian.PutUint32(tags[12+len(vendor):], 0) // user comment list length

	if err := w.stream.WritePage(tags, 0, true, false); err != nil {
		return fmt.Errorf("oggopus: comment header: %w", err)
	}
	return nil
}

// Serial returns the serial number of the underlying logical stream.
func (w *Writer) Serial() uint32 { return w.stream.Serial() }

// GranulePosition returns the running granule position in 48 kHz
// samples.
func (w *Writer) GranulePosition() int64 { return w.granule }

// Append writes one Opus packet starting on a page of its own (a
// packet larger than ogg.MaxPayload continues onto further pages),
// advancing the granule position by the packet's duration per its TOC
// byte.
func (w *Writer) Append(packet []byte) error {
	if len(packet) == 0 {
		return errEmptyPacket
	}
	w.granule += int64(PacketSamples(packet))
	return w.stream.Write(packet, w.granule, true, false)
}

// Close finishes the logical stream with an end-of-stream page. It is
// a no-op when already closed.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.stream.Close(w.granule)
}
