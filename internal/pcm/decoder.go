package pcm

import (
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/go-audio/riff"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"
	"github.com/olivier-w/spectra/internal/media"
	"github.com/pkg/errors"
)

// BytesPerSample is the width of one decoded sample. Every decoder emits
// signed 16-bit little-endian PCM regardless of the source bit depth.
const BytesPerSample = 2

// Decoder is implemented by all format-specific decoders. Read and Seek
// operate on interleaved s16le bytes.
type Decoder interface {
	io.ReadSeeker
	Length() int64
	SampleRate() int
	ChannelCount() int
}

// File is a decoder bound to the file handle it reads from.
type File struct {
	Decoder
	file *os.File
}

// Open opens path and picks a decoder from its extension.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}

	dec, err := newDecoder(f)
	if err != nil {
		f.Close()
		return nil, &OpenError{Path: path, Err: err}
	}
	return &File{Decoder: dec, file: f}, nil
}

// Close releases the underlying file handle.
func (f *File) Close() error {
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}

// newDecoder picks the decoder for the file's extension.
func newDecoder(f *os.File) (Decoder, error) {
	switch format := media.FormatOf(f.Name()); format {
	case media.MP3:
		return newMP3Decoder(f)
	case media.WAV:
		return newWAVDecoder(f)
	case media.FLAC:
		return newFLACDecoder(f)
	case media.Ogg:
		return newOGGDecoder(f)
	default:
		return nil, errors.Errorf("unsupported format %q (supported: %s)", filepath.Ext(f.Name()), media.SupportedExtsList())
	}
}

func clampSeek(pos, offset, length int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = pos + offset
	case io.SeekEnd:
		newPos = length + offset
	default:
		return pos, errors.Errorf("invalid seek whence: %d", whence)
	}
	if newPos < 0 {
		newPos = 0
	}
	if newPos > length {
		newPos = length
	}
	return newPos, nil
}

func clampInt16(sample int) int16 {
	if sample > math.MaxInt16 {
		return math.MaxInt16
	}
	if sample < math.MinInt16 {
		return math.MinInt16
	}
	return int16(sample)
}

// --- MP3 decoder ---

// mp3Decoder wraps go-mp3, which always produces stereo. Files whose frame
// header declares a single channel are folded back to mono.
type mp3Decoder struct {
	dec     mp3Stream
	mono    bool
	scratch []byte
}

// mp3Stream is the part of *mp3.Decoder used here: interleaved stereo s16le.
type mp3Stream interface {
	io.ReadSeeker
	Length() int64
	SampleRate() int
}

func newMP3Decoder(f *os.File) (*mp3Decoder, error) {
	channels, err := mp3ChannelCount(f)
	if err != nil {
		return nil, errors.Wrap(err, "reading mp3 frame header")
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, errors.Wrap(err, "decoding mp3")
	}
	return &mp3Decoder{dec: dec, mono: channels == 1}, nil
}

func (d *mp3Decoder) Read(p []byte) (int, error) {
	if !d.mono {
		return d.dec.Read(p)
	}

	frames := len(p) / BytesPerSample
	if frames == 0 {
		return 0, nil
	}
	need := frames * 2 * BytesPerSample
	if cap(d.scratch) < need {
		d.scratch = make([]byte, need)
	}
	src := d.scratch[:need]

	n, err := io.ReadFull(d.dec, src)
	n -= n % (2 * BytesPerSample)
	for i := 0; i < n/(2*BytesPerSample); i++ {
		p[i*BytesPerSample] = src[i*2*BytesPerSample]
		p[i*BytesPerSample+1] = src[i*2*BytesPerSample+1]
	}
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return n / 2, err
}

func (d *mp3Decoder) Seek(offset int64, whence int) (int64, error) {
	if !d.mono {
		return d.dec.Seek(offset, whence)
	}
	pos, err := d.dec.Seek(offset*2, whence)
	return pos / 2, err
}

func (d *mp3Decoder) Length() int64 {
	if d.mono {
		return d.dec.Length() / 2
	}
	return d.dec.Length()
}

func (d *mp3Decoder) SampleRate() int { return d.dec.SampleRate() }

func (d *mp3Decoder) ChannelCount() int {
	if d.mono {
		return 1
	}
	return 2
}

// staged holds converted s16le bytes that did not fit the caller's buffer,
// plus the output position in bytes.
type staged struct {
	buf []byte
	pos int64
}

// drain copies previously converted bytes into p.
func (s *staged) drain(p []byte) (int, bool) {
	if len(s.buf) == 0 {
		return 0, false
	}
	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	s.pos += int64(n)
	return n, true
}

// emit hands raw to p and keeps whatever does not fit.
func (s *staged) emit(p, raw []byte) int {
	n := copy(p, raw)
	if n < len(raw) {
		s.buf = raw[n:]
	}
	s.pos += int64(n)
	return n
}

// reset drops staged bytes and moves the output position.
func (s *staged) reset(pos int64) {
	s.buf = nil
	s.pos = pos
}

func putSample(raw []byte, i int, v int16) {
	binary.LittleEndian.PutUint16(raw[i*BytesPerSample:], uint16(v))
}

// --- WAV ---

const (
	wavFormatIEEEFloat  = 3
	wavFormatExtensible = 0xfffe
)

// wavDecoder converts 8/16/24/32-bit integer and 32-bit float PCM to s16le.
type wavDecoder struct {
	staged
	file       *os.File
	scratch    []byte
	totalBytes int64
	dataStart  int64
	sampleRate int
	channels   int
	srcWidth   int // bytes per source sample
	srcFloat   bool
}

func newWAVDecoder(f *os.File) (*wavDecoder, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, errors.New("invalid WAV file")
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, errors.Wrap(err, "locating WAV data chunk")
	}

	bitDepth := int(dec.BitDepth)
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, errors.Errorf("unsupported WAV bit depth: %d", bitDepth)
	}
	channels := int(dec.NumChans)
	if channels < 1 {
		return nil, errors.Errorf("invalid WAV channel count: %d", channels)
	}

	srcWidth := bitDepth / 8
	frames := dec.PCMLen() / int64(channels*srcWidth)

	dataStart, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, errors.Wrap(err, "locating WAV data chunk")
	}

	format := dec.WavAudioFormat
	if format == wavFormatExtensible {
		if format, err = wavSubFormat(io.NewSectionReader(f, 0, dataStart)); err != nil {
			return nil, errors.Wrap(err, "reading WAV extensible format")
		}
	}

	return &wavDecoder{
		file:       f,
		totalBytes: frames * int64(channels) * BytesPerSample,
		dataStart:  dataStart,
		sampleRate: int(dec.SampleRate),
		channels:   channels,
		srcWidth:   srcWidth,
		srcFloat:   format == wavFormatIEEEFloat && bitDepth == 32,
	}, nil
}

// wavSubFormat reads the format code from the subformat GUID of a
// WAVE_FORMAT_EXTENSIBLE fmt chunk. go-audio/wav skips those bytes.
func wavSubFormat(r io.Reader) (uint16, error) {
	parser := riff.New(r)
	if err := parser.ParseHeaders(); err != nil {
		return 0, err
	}
	for {
		ch, err := parser.NextChunk()
		if err != nil {
			return 0, err
		}
		if ch.ID != riff.FmtID {
			ch.Drain()
			continue
		}

		var ext struct {
			Common      [16]byte
			ExtraSize   uint16
			ValidBits   uint16
			ChannelMask uint32
			SubFormat   uint16
		}
		if ch.Size < binary.Size(ext) {
			return 0, errors.Errorf("fmt chunk too short for extensible format: %d bytes", ch.Size)
		}
		if err := ch.ReadLE(&ext); err != nil {
			return 0, err
		}
		return ext.SubFormat, nil
	}
}

func (d *wavDecoder) Read(p []byte) (int, error) {
	if n, ok := d.drain(p); ok {
		return n, nil
	}
	if d.pos >= d.totalBytes {
		return 0, io.EOF
	}

	want := len(p) / BytesPerSample
	if want == 0 {
		want = 1
	}
	if left := int((d.totalBytes - d.pos) / BytesPerSample); want > left {
		want = left
	}
	need := want * d.srcWidth
	if cap(d.scratch) < need {
		d.scratch = make([]byte, need)
	}
	src := d.scratch[:need]

	n, err := io.ReadFull(d.file, src)
	got := n / d.srcWidth
	if got == 0 {
		if err == nil || err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return 0, err
	}

	raw := make([]byte, got*BytesPerSample)
	for i := 0; i < got; i++ {
		putSample(raw, i, d.sample(src[i*d.srcWidth:]))
	}
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return d.emit(p, raw), err
}

func (d *wavDecoder) sample(b []byte) int16 {
	switch d.srcWidth {
	case 1:
		// 8-bit WAV is unsigned
		return int16((int(b[0]) - 128) << 8)
	case 2:
		return int16(binary.LittleEndian.Uint16(b))
	case 3:
		v := int32(b[0]) | int32(b[1])<<8 | int32(int8(b[2]))<<16
		return int16(v >> 8)
	default:
		if d.srcFloat {
			f := math.Float32frombits(binary.LittleEndian.Uint32(b))
			return clampInt16(int(math.Round(float64(f) * math.MaxInt16)))
		}
		return int16(int32(binary.LittleEndian.Uint32(b)) >> 16)
	}
}

func (d *wavDecoder) Seek(offset int64, whence int) (int64, error) {
	target, err := clampSeek(d.pos, offset, d.totalBytes, whence)
	if err != nil {
		return d.pos, err
	}

	frame := target / (int64(d.channels) * BytesPerSample)
	srcOffset := frame * int64(d.channels*d.srcWidth)
	if _, err := d.file.Seek(d.dataStart+srcOffset, io.SeekStart); err != nil {
		return d.pos, err
	}

	d.reset(frame * int64(d.channels) * BytesPerSample)
	return d.pos, nil
}

func (d *wavDecoder) Length() int64     { return d.totalBytes }
func (d *wavDecoder) SampleRate() int   { return d.sampleRate }
func (d *wavDecoder) ChannelCount() int { return d.channels }

// --- FLAC ---

type flacDecoder struct {
	staged
	stream     *flac.Stream
	totalBytes int64
	sampleRate int
	channels   int
	bps        int
}

func newFLACDecoder(f *os.File) (*flacDecoder, error) {
	stream, err := flac.NewSeek(f)
	if err != nil {
		return nil, errors.Wrap(err, "decoding FLAC")
	}

	info := stream.Info
	channels := int(info.NChannels)
	return &flacDecoder{
		stream:     stream,
		totalBytes: int64(info.NSamples) * int64(channels) * BytesPerSample,
		sampleRate: int(info.SampleRate),
		channels:   channels,
		bps:        int(info.BitsPerSample),
	}, nil
}

// scale brings a sample of any bit depth to 16 bits.
func (d *flacDecoder) scale(v int32) int16 {
	s := int(v)
	switch {
	case d.bps > 16:
		s >>= d.bps - 16
	case d.bps < 16:
		s <<= 16 - d.bps
	}
	return clampInt16(s)
}

// atEnd reports whether every sample has been read. Streams that do not
// declare their length never end early.
func (d *flacDecoder) atEnd() bool {
	return d.totalBytes > 0 && d.pos >= d.totalBytes
}

// nextBlock decodes the next FLAC frame into interleaved s16le.
func (d *flacDecoder) nextBlock() ([]byte, error) {
	frame, err := d.stream.ParseNext()
	if err != nil {
		return nil, err
	}

	nSamples := frame.Subframes[0].NSamples
	raw := make([]byte, nSamples*d.channels*BytesPerSample)
	for i := 0; i < nSamples; i++ {
		for ch := 0; ch < d.channels; ch++ {
			putSample(raw, i*d.channels+ch, d.scale(frame.Subframes[ch].Samples[i]))
		}
	}
	return raw, nil
}

func (d *flacDecoder) Read(p []byte) (int, error) {
	if n, ok := d.drain(p); ok {
		return n, nil
	}
	if d.atEnd() {
		return 0, io.EOF
	}

	raw, err := d.nextBlock()
	if err != nil {
		return 0, err
	}
	return d.emit(p, raw), nil
}

// Seek lands on the exact sample. flac.Stream.Seek stops at the start of the
// frame holding the target, so the head of that frame is decoded and
// dropped.
func (d *flacDecoder) Seek(offset int64, whence int) (int64, error) {
	target, err := clampSeek(d.pos, offset, d.totalBytes, whence)
	if err != nil {
		return d.pos, err
	}

	frameBytes := int64(d.channels) * BytesPerSample
	target -= target % frameBytes
	if d.totalBytes > 0 && target >= d.totalBytes {
		d.reset(d.totalBytes)
		return d.pos, nil
	}

	want := uint64(target / frameBytes)
	first, err := d.stream.Seek(want)
	if err != nil {
		return d.pos, err
	}
	d.reset(int64(first) * frameBytes)
	if first == want {
		return d.pos, nil
	}

	raw, err := d.nextBlock()
	if err != nil {
		return d.pos, err
	}
	skip := int64(want-first) * frameBytes
	if skip > int64(len(raw)) {
		skip = int64(len(raw))
	}
	d.buf = raw[skip:]
	d.pos = int64(first)*frameBytes + skip
	return d.pos, nil
}

func (d *flacDecoder) Length() int64     { return d.totalBytes }
func (d *flacDecoder) SampleRate() int   { return d.sampleRate }
func (d *flacDecoder) ChannelCount() int { return d.channels }

// --- Ogg Vorbis ---

type oggDecoder struct {
	staged
	reader     *oggvorbis.Reader
	samples    []float32
	totalBytes int64
	sampleRate int
	channels   int
}

func newOGGDecoder(f *os.File) (*oggDecoder, error) {
	reader, err := oggvorbis.NewReader(f)
	if err != nil {
		return nil, errors.Wrap(err, "decoding Ogg Vorbis")
	}

	channels := reader.Channels()
	return &oggDecoder{
		reader:     reader,
		totalBytes: reader.Length() * int64(channels) * BytesPerSample,
		sampleRate: reader.SampleRate(),
		channels:   channels,
	}, nil
}

func (d *oggDecoder) Read(p []byte) (int, error) {
	if n, ok := d.drain(p); ok {
		return n, nil
	}

	want := len(p) / BytesPerSample
	if want == 0 {
		want = 1
	}
	if cap(d.samples) < want {
		d.samples = make([]float32, want)
	}
	samples := d.samples[:want]

	n, err := d.reader.Read(samples)
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		return 0, err
	}

	raw := make([]byte, n*BytesPerSample)
	for i, s := range samples[:n] {
		putSample(raw, i, clampInt16(int(s*math.MaxInt16)))
	}
	return d.emit(p, raw), err
}

func (d *oggDecoder) Seek(offset int64, whence int) (int64, error) {
	target, err := clampSeek(d.pos, offset, d.totalBytes, whence)
	if err != nil {
		return d.pos, err
	}

	frameBytes := int64(d.channels) * BytesPerSample
	sample := target / frameBytes
	if err := d.reader.SetPosition(sample); err != nil {
		return d.pos, err
	}

	d.reset(sample * frameBytes)
	return d.pos, nil
}

func (d *oggDecoder) Length() int64     { return d.totalBytes }
func (d *oggDecoder) SampleRate() int   { return d.sampleRate }
func (d *oggDecoder) ChannelCount() int { return d.channels }
