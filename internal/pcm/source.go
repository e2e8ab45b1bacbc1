package pcm

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Source gives random access to the decoded samples of a mono recording
// as floating-point values in [-1, 1).
type Source struct {
	dec    Decoder
	closer io.Closer
	buf    []byte
}

// NewSource opens path for analysis. Files with more than one channel are
// rejected with a *FormatError.
func NewSource(path string) (*Source, error) {
	f, err := Open(path)
	if err != nil {
		return nil, err
	}
	if ch := f.ChannelCount(); ch != 1 {
		f.Close()
		return nil, &FormatError{Path: path, Channels: ch}
	}
	return &Source{dec: f, closer: f}, nil
}

// NewSourceFromDecoder wraps an already opened mono decoder.
func NewSourceFromDecoder(dec Decoder) (*Source, error) {
	if ch := dec.ChannelCount(); ch != 1 {
		return nil, &FormatError{Channels: ch}
	}
	s := &Source{dec: dec}
	if c, ok := dec.(io.Closer); ok {
		s.closer = c
	}
	return s, nil
}

func (s *Source) SampleRate() int { return s.dec.SampleRate() }
func (s *Source) Channels() int   { return s.dec.ChannelCount() }

// Frames returns the total number of sample frames in the recording.
func (s *Source) Frames() int64 {
	return s.dec.Length() / BytesPerSample
}

// SeekFrame positions the source at frame. Frames past the end clamp to the
// end of the stream, where the next read returns nothing.
func (s *Source) SeekFrame(frame int64) error {
	if frame < 0 {
		frame = 0
	}
	if _, err := s.dec.Seek(frame*BytesPerSample, io.SeekStart); err != nil {
		return errors.Wrapf(err, "seeking to frame %d", frame)
	}
	return nil
}

// ReadFrames fills dst with up to len(dst) samples and returns how many were
// read. A short count comes with io.EOF; dst beyond the count is untouched.
func (s *Source) ReadFrames(dst []float64) (int, error) {
	need := len(dst) * BytesPerSample
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	buf := s.buf[:need]

	n, err := io.ReadFull(s.dec, buf)
	frames := n / BytesPerSample
	for i := 0; i < frames; i++ {
		v := int16(binary.LittleEndian.Uint16(buf[i*BytesPerSample:]))
		dst[i] = float64(v) / 32768.0
	}

	switch err {
	case nil:
		return frames, nil
	case io.EOF, io.ErrUnexpectedEOF:
		return frames, io.EOF
	default:
		return frames, errors.Wrap(err, "reading frames")
	}
}

// Close releases the decoder handle.
func (s *Source) Close() error {
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}
