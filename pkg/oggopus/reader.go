package oggopus

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/haivivi/oggstream/pkg/ogg"
)

// Head is the decoded OpusHead identity header of a stream.
type Head struct {
	Version    uint8
	Channels   uint8
	PreSkip    uint16
	SampleRate uint32
	OutputGain uint16
	MappingFam uint8
}

// Packet is one Opus packet recovered from an Ogg stream.
type Packet struct {
	// Data is the raw Opus packet.
	Data []byte
	// GranulePosition is the granule position of the page on which
	// the packet completed.
	GranulePosition int64
	// EOS is true on the last packet of the stream.
	EOS bool
}

// Reader extracts the Opus packets of the first logical stream that
// begins in an Ogg physical stream. Header packets are consumed
// internally; Next returns audio packets only.
type Reader struct {
	pages  *ogg.PageReader
	serial uint32
	locked bool

	pending []*Packet
	partial []byte
	eos     bool

	headers int
	head    Head
	ahead   *Packet
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{pages: ogg.NewPageReader(r)}
}

// Head returns the stream's identity header. Its fields are zero
// until the first packet has been read.
func (r *Reader) Head() Head { return r.head }

// Next returns the next audio packet. The final packet of the stream
// is marked EOS; afterwards Next returns io.EOF.
func (r *Reader) Next() (*Packet, error) {
	if r.ahead == nil {
		p, err := r.fetch()
		if err != nil {
			return nil, err
		}
		r.ahead = p
	}

	// Look one packet ahead so the last one can be marked EOS even
	// when the stream closes with an empty end-of-stream page.
	next, err := r.fetch()
	if err == io.EOF {
		out := r.ahead
		r.ahead = nil
		out.EOS = true
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	out := r.ahead
	r.ahead = next
	return out, nil
}

// fetch returns the next audio packet of the locked stream, ingesting
// pages as needed and skipping the two header packets.
func (r *Reader) fetch() (*Packet, error) {
	for {
		if len(r.pending) > 0 {
			p := r.pending[0]
			r.pending = r.pending[1:]
			if r.headers < 2 && isOpusHeader(p.Data) {
				if r.headers == 0 {
					r.head = parseHead(p.Data)
				}
				r.headers++
				continue
			}
			return p, nil
		}
		if r.eos {
			return nil, io.EOF
		}

		page, err := r.pages.Next()
		if err != nil {
			return nil, err
		}
		if !r.locked {
			if !page.BOS {
				continue
			}
			r.serial = page.Serial
			r.locked = true
		} else if page.Serial != r.serial {
			continue
		}
		r.ingest(page)
	}
}

// ingest reassembles packets from one page's segment table. A lacing
// value below 255 terminates a packet; a page-final 255 leaves it
// open into the next page. A non-continued page discards any dangling
// partial, and a continued page without a matching partial drops the
// tail of the packet whose start was never seen.
func (r *Reader) ingest(p *ogg.Page) {
	if !p.Continued {
		r.partial = nil
	}
	drop := p.Continued && r.partial == nil

	off := 0
	for _, l := range p.SegmentTable {
		r.partial = append(r.partial, p.Payload[off:off+int(l)]...)
		off += int(l)
		if l < 255 {
			data := r.partial
			r.partial = nil
			if drop {
				drop = false
				continue
			}
			r.pending = append(r.pending, &Packet{
				Data:            data,
				GranulePosition: p.GranulePosition,
			})
		}
	}
	if p.EOS {
		r.eos = true
	}
}

// isOpusHeader checks if the packet is an OpusHead or OpusTags header.
func isOpusHeader(data []byte) bool {
	if len(data) < 8 {
		return false
	}
	return bytes.HasPrefix(data, []byte(idSignature)) || bytes.HasPrefix(data, []byte(commentSignature))
}

// parseHead decodes an OpusHead packet. Truncated headers yield a
// zero Head.
func parseHead(data []byte) Head {
	if len(data) < 19 {
		return Head{}
	}
	return Head{
		Version:    data[8],
		Channels:   data[9],
		PreSkip:    binary.LittleEndian.Uint16(data[10:12]),
		SampleRate: binary.LittleEndian.Uint32(data[12:16]),
		OutputGain: binary.LittleEndian.Uint16(data[16:18]),
		MappingFam: data[18],
	}
}
