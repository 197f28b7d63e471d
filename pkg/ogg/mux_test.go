package ogg

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
)

func TestSerialAllocation(t *testing.T) {
	m := NewMuxer(&bytes.Buffer{})

	// 1, then the LFSR walk from the maximum allocated serial:
	// lfsr(1) = 3, lfsr(3) = 6.
	for i, want := range []uint32{1, 3, 6} {
		if got := m.NewStream().Serial(); got != want {
			t.Errorf("stream %d serial = %d, want %d", i, got, want)
		}
	}
}

func TestSerialAllocationSkipsClaimed(t *testing.T) {
	m := NewMuxer(&bytes.Buffer{})
	if _, err := m.NewStreamSerial(3); err != nil {
		t.Fatalf("NewStreamSerial(3) error: %v", err)
	}

	// max allocated is 3; lfsr(3) = 6
	if got := m.NewStream().Serial(); got != 6 {
		t.Errorf("serial = %d, want 6", got)
	}
}

func TestNewStreamSerialConflict(t *testing.T) {
	m := NewMuxer(&bytes.Buffer{})
	if _, err := m.NewStreamSerial(42); err != nil {
		t.Fatalf("NewStreamSerial(42) error: %v", err)
	}
	if _, err := m.NewStreamSerial(42); !errors.Is(err, ErrSerialInUse) {
		t.Errorf("second claim error = %v, want ErrSerialInUse", err)
	}
	if got := m.NewStream().Serial(); got == 42 {
		t.Errorf("NewStream() reused claimed serial %d", got)
	}
}

func TestLFSR(t *testing.T) {
	// taps at bits 0, 1, 21, 31
	tests := []struct{ in, want uint32 }{
		{1, 3},
		{3, 6},
		{6, 13},
		{5, 11},
		{1 << 31, 1},
	}
	for _, tt := range tests {
		if got := lfsrNext(tt.in); got != tt.want {
			t.Errorf("lfsrNext(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestWriteAfterCloseStream(t *testing.T) {
	w := NewMuxer(&bytes.Buffer{}).NewStream()
	if err := w.Write([]byte("end"), 0, true, true); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if err := w.Write([]byte("more"), 0, true, false); !errors.Is(err, ErrStreamClosed) {
		t.Errorf("Write() after close error = %v, want ErrStreamClosed", err)
	}
}

func TestWritePageTooLarge(t *testing.T) {
	w := NewMuxer(&bytes.Buffer{}).NewStream()
	err := w.WritePage(make([]byte, MaxPayload+1), 0, true, false)
	if !errors.Is(err, ErrPageTooLarge) {
		t.Errorf("WritePage() error = %v, want ErrPageTooLarge", err)
	}
}

func readAllPages(t *testing.T, data []byte) []*Page {
	t.Helper()
	var pages []*Page
	r := NewPageReader(bytes.NewReader(data))
	for {
		p, err := r.Next()
		if err != nil {
			if err == io.EOF {
				return pages
			}
			t.Fatalf("Next() error: %v", err)
		}
		pages = append(pages, p)
	}
}

func TestWriteSplitsOversizedPayload(t *testing.T) {
	data := make([]byte, MaxPayload+1)
	for i := range data {
		data[i] = byte(i)
	}

	var buf bytes.Buffer
	w := NewMuxer(&buf).NewStream()
	if err := w.Write(data, 77, true, true); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	pages := readAllPages(t, buf.Bytes())
	if len(pages) != 2 {
		t.Fatalf("got %d pages, want 2", len(pages))
	}

	first, second := pages[0], pages[1]
	if len(first.Payload) != MaxPayload || len(second.Payload) != 1 {
		t.Errorf("payload sizes = %d, %d; want %d, 1", len(first.Payload), len(second.Payload), MaxPayload)
	}
	if first.Continued || !second.Continued {
		t.Errorf("continued flags = %v, %v; want false, true", first.Continued, second.Continued)
	}
	if !first.BOS || second.BOS {
		t.Errorf("BOS flags = %v, %v; want true, false", first.BOS, second.BOS)
	}
	if first.EOS || !second.EOS {
		t.Errorf("EOS flags = %v, %v; want false, true", first.EOS, second.EOS)
	}
	if first.GranulePosition != 77 || second.GranulePosition != 77 {
		t.Errorf("granules = %d, %d; want 77, 77", first.GranulePosition, second.GranulePosition)
	}

	joined := append(append([]byte{}, first.Payload...), second.Payload...)
	if !bytes.Equal(joined, data) {
		t.Error("reassembled payload differs from written data")
	}
}

func TestWriteExactMultipleEndsWithEmptyPage(t *testing.T) {
	var buf bytes.Buffer
	w := NewMuxer(&buf).NewStream()
	if err := w.Write(make([]byte, 2*MaxPayload), 0, true, true); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	pages := readAllPages(t, buf.Bytes())
	if len(pages) != 3 {
		t.Fatalf("got %d pages, want 3", len(pages))
	}
	last := pages[2]
	if len(last.Payload) != 0 || len(last.SegmentTable) != 0 {
		t.Errorf("final page has %d payload bytes, %d segments; want empty", len(last.Payload), len(last.SegmentTable))
	}
	if !last.Continued || !last.EOS {
		t.Errorf("final page continued=%v eos=%v, want true, true", last.Continued, last.EOS)
	}
}

func TestPacketOpenMarksContinuation(t *testing.T) {
	var buf bytes.Buffer
	w := NewMuxer(&buf).NewStream()
	if err := w.WritePage([]byte("part one "), 0, false, false); err != nil {
		t.Fatalf("WritePage() error: %v", err)
	}
	if err := w.WritePage([]byte("part two"), 0, true, true); err != nil {
		t.Fatalf("WritePage() error: %v", err)
	}

	pages := readAllPages(t, buf.Bytes())
	if pages[0].Continued || !pages[1].Continued {
		t.Errorf("continued flags = %v, %v; want false, true", pages[0].Continued, pages[1].Continued)
	}
}

func TestSequenceNumbersAscend(t *testing.T) {
	var buf bytes.Buffer
	w := NewMuxer(&buf).NewStream()
	for i := 0; i < 5; i++ {
		if err := w.WritePacket([]byte{byte(i)}, int64(i)); err != nil {
			t.Fatalf("WritePacket() error: %v", err)
		}
	}

	for i, p := range readAllPages(t, buf.Bytes()) {
		if p.Sequence != uint32(i) {
			t.Errorf("page %d sequence = %d", i, p.Sequence)
		}
	}
}

func TestCloseEmitsEmptyEOSPage(t *testing.T) {
	var buf bytes.Buffer
	w := NewMuxer(&buf).NewStream()
	if err := w.WritePacket([]byte("data"), 100); err != nil {
		t.Fatalf("WritePacket() error: %v", err)
	}
	if err := w.Close(100); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := w.Close(100); err != nil {
		t.Fatalf("second Close() error: %v", err)
	}

	pages := readAllPages(t, buf.Bytes())
	if len(pages) != 2 {
		t.Fatalf("got %d pages, want 2", len(pages))
	}
	last := pages[1]
	if !last.EOS || len(last.Payload) != 0 {
		t.Errorf("close page eos=%v payload=%d, want true, 0", last.EOS, len(last.Payload))
	}
}

// failWriter fails after n successful writes.
type failWriter struct {
	n int
}

func (w *failWriter) Write(p []byte) (int, error) {
	if w.n == 0 {
		return 0, fmt.Errorf("sink broke")
	}
	w.n--
	return len(p), nil
}

func TestSinkErrorSurfaces(t *testing.T) {
	w := NewMuxer(&failWriter{n: 1}).NewStream()
	err := w.WritePacket([]byte("data"), 0)
	if err == nil || !bytes.Contains([]byte(err.Error()), []byte("sink broke")) {
		t.Errorf("WritePacket() error = %v, want wrapped sink error", err)
	}
}

func TestConcurrentWritersPagesStayAtomic(t *testing.T) {
	var buf lockedBuffer
	m := NewMuxer(&buf)

	const perWriter = 50
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		w := m.NewStream()
		wg.Add(1)
		go func(w *LogicalWriter) {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				payload := bytes.Repeat([]byte{byte(w.Serial())}, 100+j)
				if err := w.WritePacket(payload, int64(j)); err != nil {
					t.Errorf("WritePacket() error: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	pages := readAllPages(t, buf.Bytes())
	if len(pages) != 4*perWriter {
		t.Fatalf("got %d pages, want %d", len(pages), 4*perWriter)
	}
	seqs := map[uint32]uint32{}
	for _, p := range pages {
		if p.Sequence != seqs[p.Serial] {
			t.Errorf("stream %d: page sequence %d out of order", p.Serial, p.Sequence)
		}
		seqs[p.Serial]++
		for _, b := range p.Payload {
			if b != byte(p.Serial) {
				t.Fatalf("stream %d: foreign byte %d in payload", p.Serial, b)
			}
		}
	}
}

// lockedBuffer is a bytes.Buffer safe for writes from multiple
// goroutines.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Bytes()
}
