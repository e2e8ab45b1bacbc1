package pcm

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"
)

// mp3ScanLimit bounds how far past the ID3 tag we look for the first frame.
const mp3ScanLimit = 64 << 10

var (
	errMP3Short   = errors.New("short mp3 header")
	errMP3Sync    = errors.New("invalid mp3 sync")
	errMP3Layer   = errors.New("not layer iii")
	errMP3Fields  = errors.New("invalid mp3 header fields")
	errMP3NoFrame = errors.New("no mp3 frame found")
)

type mp3FrameHeader struct {
	channels int
}

// mp3ChannelCount reads the channel mode of the first MPEG audio frame.
// go-mp3 upmixes everything to stereo, so this is the only way to learn
// whether the file was mono.
func mp3ChannelCount(f *os.File) (int, error) {
	start, err := id3TagEnd(f)
	if err != nil {
		return 0, err
	}

	buf := make([]byte, mp3ScanLimit)
	n, err := f.ReadAt(buf, start)
	if n == 0 && err != nil {
		return 0, err
	}
	buf = buf[:n]

	for i := 0; i+4 <= len(buf); i++ {
		if h, err := parseMP3FrameHeader(buf[i:]); err == nil {
			return h.channels, nil
		}
	}
	return 0, errMP3NoFrame
}

// id3TagEnd returns the offset just past a leading ID3v2 tag, or 0.
func id3TagEnd(f *os.File) (int64, error) {
	var tag [10]byte
	n, err := f.ReadAt(tag[:], 0)
	if n < len(tag) {
		if err == nil || err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return 0, err
	}
	if string(tag[:3]) != "ID3" {
		return 0, nil
	}

	end := int64(10 + synchsafeUint32(tag[6:10]))
	if tag[5]&0x10 != 0 {
		end += 10 // footer
	}
	return end, nil
}

func synchsafeUint32(b []byte) int {
	v := 0
	for _, c := range b[:4] {
		v = v<<7 | int(c&0x7f)
	}
	return v
}

// parseMP3FrameHeader validates a Layer III frame header at the start of b.
func parseMP3FrameHeader(b []byte) (mp3FrameHeader, error) {
	if len(b) < 4 {
		return mp3FrameHeader{}, errMP3Short
	}
	h := binary.BigEndian.Uint32(b)
	if h>>21 != 0x7ff {
		return mp3FrameHeader{}, errMP3Sync
	}

	var (
		version    = h >> 19 & 0x3
		layer      = h >> 17 & 0x3
		bitrate    = h >> 12 & 0xf
		sampleRate = h >> 10 & 0x3
		mode       = h >> 6 & 0x3
	)
	switch {
	case layer != 0x1:
		return mp3FrameHeader{}, errMP3Layer
	case version == 0x1, bitrate == 0xf, sampleRate == 0x3:
		return mp3FrameHeader{}, errMP3Fields
	}

	if mode == 0x3 {
		return mp3FrameHeader{channels: 1}, nil
	}
	return mp3FrameHeader{channels: 2}, nil
}
