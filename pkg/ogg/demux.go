package ogg

import (
	"io"
	"slices"
)

// Metadata accompanies every payload delivered to a DataHandler.
type Metadata struct {
	// GranulePosition is the granule position of the delivering page.
	GranulePosition int64
	// SkippedPages is the number of pages missing before this one,
	// derived from the gap in sequence numbers. Zero on the first
	// page of a stream.
	SkippedPages uint32
	// First is true on the first payload delivered for the stream.
	First bool
	// Continued is true when the payload continues a packet from the
	// previous page.
	Continued bool
	// Closing is true on the final page of the stream.
	Closing bool
}

// DataHandler receives page payloads of one logical stream, in page
// order.
type DataHandler interface {
	OnData(payload []byte, meta Metadata)
}

// NewStreamHandler is notified when a serial number is seen for the
// first time, before any payload of that stream is dispatched.
type NewStreamHandler interface {
	OnNewStream(s *LogicalStream)
}

// LogicalStream is the read-side state of one logical stream. It is
// created and owned by the Demuxer; handlers receive it during
// OnNewStream and may register data handlers on it. It must not be
// retained past the Demuxer's lifetime.
type LogicalStream struct {
	serial   uint32
	granule  int64
	lastSeq  uint32
	started  bool
	handlers []DataHandler
}

// Serial returns the stream serial number.
func (s *LogicalStream) Serial() uint32 { return s.serial }

// GranulePosition returns the granule position of the last page
// dispatched on this stream.
func (s *LogicalStream) GranulePosition() int64 { return s.granule }

// AddDataHandler registers h. Handlers are invoked in registration
// order. Registering from inside a dispatch callback is undefined.
func (s *LogicalStream) AddDataHandler(h DataHandler) {
	s.handlers = append(s.handlers, h)
}

// RemoveDataHandler unregisters the handler equal to h.
func (s *LogicalStream) RemoveDataHandler(h DataHandler) {
	for i, x := range s.handlers {
		if x == h {
			s.handlers = slices.Delete(s.handlers, i, i+1)
			return
		}
	}
}

// dispatch delivers one page to all data handlers and advances the
// sequence state.
func (s *LogicalStream) dispatch(p *Page) error {
	var skipped uint32
	if s.started && !p.BOS {
		if p.Sequence <= s.lastSeq {
			return &LatePageError{Page: p, Last: s.lastSeq}
		}
		skipped = p.Sequence - (s.lastSeq + 1)
	}

	s.granule = p.GranulePosition
	meta := Metadata{
		GranulePosition: p.GranulePosition,
		SkippedPages:    skipped,
		First:           !s.started,
		Continued:       p.Continued,
		Closing:         p.EOS,
	}
	for _, h := range s.handlers {
		h.OnData(p.Payload, meta)
	}

	s.lastSeq = p.Sequence
	s.started = true
	return nil
}

// Demuxer splits a physical Ogg stream into its logical streams and
// dispatches page payloads to subscribers. It is not safe for
// concurrent use; handlers may be mutated only between Process calls.
type Demuxer struct {
	pages    *PageReader
	handlers []NewStreamHandler
	streams  map[uint32]*LogicalStream
}

// NewDemuxer creates a Demuxer over r.
func NewDemuxer(r io.Reader) *Demuxer {
	return &Demuxer{
		pages:   NewPageReader(r),
		streams: make(map[uint32]*LogicalStream),
	}
}

// AddNewStreamHandler registers h for first sightings of serial
// numbers.
func (d *Demuxer) AddNewStreamHandler(h NewStreamHandler) {
	d.handlers = append(d.handlers, h)
}

// RemoveNewStreamHandler unregisters the handler equal to h.
func (d *Demuxer) RemoveNewStreamHandler(h NewStreamHandler) {
	for i, x := range d.handlers {
		if x == h {
			d.handlers = slices.Delete(d.handlers, i, i+1)
			return
		}
	}
}

// Process drains the source: it resynchronizes on the capture
// pattern, decodes pages and dispatches them per serial number until
// the source ends. Clean EOF returns nil; decode failures
// (ErrBadChecksum, ErrUnexpectedEOF, ErrBadVersion), late pages and
// source errors terminate processing and surface to the caller.
func (d *Demuxer) Process() error {
	for {
		p, err := d.pages.Next()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		s, ok := d.streams[p.Serial]
		if !ok {
			s = &LogicalStream{serial: p.Serial}
			d.streams[p.Serial] = s
			for _, h := range d.handlers {
				h.OnNewStream(s)
			}
		}
		if err := s.dispatch(p); err != nil {
			return err
		}
	}
}
