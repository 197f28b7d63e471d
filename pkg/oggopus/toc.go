// Package oggopus packages Opus audio in Ogg per RFC 7845: identity
// and comment header packets, one audio packet per page on the write
// side, and segment-table packet reassembly on the read side.
//
// Only the Opus TOC byte is interpreted, and only as far as granule
// position accounting requires; payload decoding is codec work and
// out of scope here.
package oggopus

// TOC is the table-of-contents byte that leads every Opus packet,
// composed of a configuration number, a stereo flag and a frame count
// code:
//
//	 0 1 2 3 4 5 6 7
//	+-+-+-+-+-+-+-+-+
//	| config  |s| c |
//	+-+-+-+-+-+-+-+-+
//
// https://datatracker.ietf.org/doc/html/rfc6716#section-3.1
type TOC byte

// Configuration is the 5-bit configuration number selecting mode,
// bandwidth and frame duration.
type Configuration byte

// Configuration returns the configuration number from the TOC byte.
func (t TOC) Configuration() Configuration {
	return Configuration(t >> 3)
}

// IsStereo returns true if the TOC indicates stereo audio.
func (t TOC) IsStereo() bool {
	return t&0b00000100 != 0
}

// Channels returns the channel count indicated by the TOC.
func (t TOC) Channels() int {
	if t.IsStereo() {
		return 2
	}
	return 1
}

// FrameCode returns the frame count code: 0 is one frame, 1 and 2 are
// two frames, 3 is an arbitrary count carried in the next byte.
func (t TOC) FrameCode() byte {
	return byte(t & 0b00000011)
}

// FrameSamples returns the duration of one frame of this
// configuration in 48 kHz samples.
func (c Configuration) FrameSamples() int {
	switch c {
	case 16, 20, 24, 28:
		return 120 // 2.5ms
	case 17, 21, 25, 29:
		return 240 // 5ms
	case 0, 4, 8, 12, 14, 18, 22, 26, 30:
		return 480 // 10ms
	case 1, 5, 9, 13, 15, 19, 23, 27, 31:
		return 960 // 20ms
	case 2, 6, 10:
		return 1920 // 40ms
	case 3, 7, 11:
		return 2880 // 60ms
	}
	return 0
}

// PacketSamples returns the duration of a whole Opus packet in 48 kHz
// samples, which is the packet's granule position increment. Returns
// 0 for packets too short to carry their frame count.
func PacketSamples(packet []byte) int {
	if len(packet) == 0 {
		return 0
	}
	toc := TOC(packet[0])
	perFrame := toc.Configuration().FrameSamples()
	switch toc.FrameCode() {
	case 0:
		return perFrame
	case 1, 2:
		return perFrame * 2
	default:
		if len(packet) < 2 {
			return 0
		}
		return perFrame * int(packet[1]&0b00111111)
	}
}
