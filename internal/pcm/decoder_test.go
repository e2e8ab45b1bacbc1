package pcm

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

const (
	flacBlockSize = 4096
	flacBlocks    = 4
)

// rampSample is the value written at sample index i in the FLAC fixture.
func rampSample(i int64) int32 {
	return int32(i - flacBlockSize*flacBlocks/2)
}

func writeRampFLAC(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "ramp.flac")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create(%q) error = %v", path, err)
	}

	info := &meta.StreamInfo{
		BlockSizeMin:  flacBlockSize,
		BlockSizeMax:  flacBlockSize,
		SampleRate:    44100,
		NChannels:     1,
		BitsPerSample: 16,
	}
	enc, err := flac.NewEncoder(f, info)
	if err != nil {
		f.Close()
		t.Fatalf("NewEncoder() error = %v", err)
	}

	for b := 0; b < flacBlocks; b++ {
		samples := make([]int32, flacBlockSize)
		for i := range samples {
			samples[i] = rampSample(int64(b*flacBlockSize + i))
		}
		fr := &frame.Frame{
			Header: frame.Header{
				HasFixedBlockSize: true,
				BlockSize:         flacBlockSize,
				SampleRate:        44100,
				Channels:          frame.ChannelsMono,
				BitsPerSample:     16,
			},
			Subframes: []*frame.Subframe{{
				SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
				Samples:   samples,
				NSamples:  flacBlockSize,
			}},
		}
		if err := enc.WriteFrame(fr); err != nil {
			t.Fatalf("WriteFrame(%d) error = %v", b, err)
		}
	}
	// Close also closes f.
	if err := enc.Close(); err != nil {
		t.Fatalf("closing flac encoder: %v", err)
	}
	return path
}

func TestFLACSourceFrames(t *testing.T) {
	src, err := NewSource(writeRampFLAC(t))
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}
	defer src.Close()

	if got := src.Frames(); got != flacBlockSize*flacBlocks {
		t.Fatalf("expected %d frames, got %d", flacBlockSize*flacBlocks, got)
	}
}

func TestFLACSeekFrameLandsOnExactSample(t *testing.T) {
	src, err := NewSource(writeRampFLAC(t))
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}
	defer src.Close()

	// Block starts, interior samples and a window straddling two blocks.
	for _, k := range []int64{0, 4096, 5000, 8190, 12000, 5000, 100} {
		if err := src.SeekFrame(k); err != nil {
			t.Fatalf("SeekFrame(%d) error = %v", k, err)
		}
		dst := make([]float64, 16)
		n, err := src.ReadFrames(dst)
		if err != nil || n != len(dst) {
			t.Fatalf("ReadFrames after SeekFrame(%d) = (%d, %v)", k, n, err)
		}
		for i, v := range dst {
			want := float64(rampSample(k+int64(i))) / 32768.0
			if v != want {
				t.Fatalf("after SeekFrame(%d): sample %d = %v, want %v", k, i, v, want)
			}
		}
	}
}

func TestFLACSeekFrameLastSampleReadsShort(t *testing.T) {
	src, err := NewSource(writeRampFLAC(t))
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}
	defer src.Close()

	last := src.Frames() - 1
	if err := src.SeekFrame(last); err != nil {
		t.Fatalf("SeekFrame(%d) error = %v", last, err)
	}
	dst := make([]float64, 8)
	n, err := src.ReadFrames(dst)
	if n != 1 || err != io.EOF {
		t.Fatalf("expected (1, EOF), got (%d, %v)", n, err)
	}
	if want := float64(rampSample(last)) / 32768.0; dst[0] != want {
		t.Fatalf("expected last sample %v, got %v", want, dst[0])
	}
}

func TestFLACSeekFramePastEndClamps(t *testing.T) {
	src, err := NewSource(writeRampFLAC(t))
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}
	defer src.Close()

	for _, k := range []int64{src.Frames(), src.Frames() + 5000} {
		if err := src.SeekFrame(k); err != nil {
			t.Fatalf("SeekFrame(%d) error = %v", k, err)
		}
		n, err := src.ReadFrames(make([]float64, 8))
		if n != 0 || err != io.EOF {
			t.Fatalf("after SeekFrame(%d): expected (0, EOF), got (%d, %v)", k, n, err)
		}
	}

	// Seeking back after reaching the end still works.
	if err := src.SeekFrame(10); err != nil {
		t.Fatalf("SeekFrame(10) error = %v", err)
	}
	dst := make([]float64, 1)
	if _, err := src.ReadFrames(dst); err != nil {
		t.Fatalf("ReadFrames() error = %v", err)
	}
	if want := float64(rampSample(10)) / 32768.0; dst[0] != want {
		t.Fatalf("expected %v, got %v", want, dst[0])
	}
}

// foldedMP3 stands in for go-mp3's stereo output of a mono file: left holds
// the frame index, right its negation, so a misaligned fold shows up.
func foldedMP3(frames int) *mp3Decoder {
	samples := make([]int16, 0, frames*2)
	for i := 0; i < frames; i++ {
		samples = append(samples, int16(i), int16(-i))
	}
	return &mp3Decoder{
		dec:  &stubPCMDecoder{data: pcm16(samples...), sampleRate: 44100, channels: 2},
		mono: true,
	}
}

func TestMP3MonoFoldSeekAccuracy(t *testing.T) {
	src, err := NewSourceFromDecoder(foldedMP3(1000))
	if err != nil {
		t.Fatalf("NewSourceFromDecoder() error = %v", err)
	}
	if src.Frames() != 1000 {
		t.Fatalf("expected 1000 frames, got %d", src.Frames())
	}

	for _, k := range []int64{0, 1, 333, 990} {
		if err := src.SeekFrame(k); err != nil {
			t.Fatalf("SeekFrame(%d) error = %v", k, err)
		}
		dst := make([]float64, 8)
		n, err := src.ReadFrames(dst)
		if err != nil || n != len(dst) {
			t.Fatalf("ReadFrames after SeekFrame(%d) = (%d, %v)", k, n, err)
		}
		for i, v := range dst {
			if want := float64(k+int64(i)) / 32768.0; v != want {
				t.Fatalf("after SeekFrame(%d): sample %d = %v, want %v", k, i, v, want)
			}
		}
	}
}

func TestMP3MonoFoldShortRead(t *testing.T) {
	src, _ := NewSourceFromDecoder(foldedMP3(100))

	if err := src.SeekFrame(96); err != nil {
		t.Fatalf("SeekFrame() error = %v", err)
	}
	dst := make([]float64, 8)
	n, err := src.ReadFrames(dst)
	if n != 4 || err != io.EOF {
		t.Fatalf("expected (4, EOF), got (%d, %v)", n, err)
	}
	if dst[3] != 99/32768.0 {
		t.Fatalf("expected last frame 99, got %v", dst[3]*32768)
	}

	if err := src.SeekFrame(500); err != nil {
		t.Fatalf("SeekFrame(500) error = %v", err)
	}
	if n, err := src.ReadFrames(dst); n != 0 || err != io.EOF {
		t.Fatalf("expected (0, EOF) past the end, got (%d, %v)", n, err)
	}
}

// writeExtensibleFloatWAV writes a mono 32-bit float WAV tagged
// WAVE_FORMAT_EXTENSIBLE, which go-audio's encoder cannot produce.
func writeExtensibleFloatWAV(t *testing.T, samples []float32) string {
	t.Helper()

	var data bytes.Buffer
	binary.Write(&data, binary.LittleEndian, samples)

	ieeeFloatGUID := [16]byte{0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0xaa, 0x00, 0x38, 0x9b, 0x71}
	fmtChunk := struct {
		Format        uint16
		Channels      uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
		ExtraSize     uint16
		ValidBits     uint16
		ChannelMask   uint32
		SubFormat     [16]byte
	}{
		Format:        wavFormatExtensible,
		Channels:      1,
		SampleRate:    44100,
		ByteRate:      44100 * 4,
		BlockAlign:    4,
		BitsPerSample: 32,
		ExtraSize:     22,
		ValidBits:     32,
		ChannelMask:   0x4,
		SubFormat:     ieeeFloatGUID,
	}

	var out bytes.Buffer
	out.WriteString("RIFF")
	binary.Write(&out, binary.LittleEndian, uint32(4+8+40+8+data.Len()))
	out.WriteString("WAVE")
	out.WriteString("fmt ")
	binary.Write(&out, binary.LittleEndian, uint32(40))
	binary.Write(&out, binary.LittleEndian, fmtChunk)
	out.WriteString("data")
	binary.Write(&out, binary.LittleEndian, uint32(data.Len()))
	out.Write(data.Bytes())

	path := filepath.Join(t.TempDir(), "float.wav")
	if err := os.WriteFile(path, out.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtensibleFloatWAVDecodesAsFloat(t *testing.T) {
	samples := make([]float32, 256)
	for i := range samples {
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*float64(i)/64))
	}
	src, err := NewSource(writeExtensibleFloatWAV(t, samples))
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}
	defer src.Close()

	if src.Frames() != int64(len(samples)) {
		t.Fatalf("expected %d frames, got %d", len(samples), src.Frames())
	}
	dst := make([]float64, len(samples))
	if _, err := src.ReadFrames(dst); err != nil {
		t.Fatalf("ReadFrames() error = %v", err)
	}
	for i, v := range dst {
		if math.Abs(v-float64(samples[i])) > 1.0/16384 {
			t.Fatalf("sample %d = %v, want about %v", i, v, samples[i])
		}
	}
}

func TestWAVSubFormatReadsExtensibleGUID(t *testing.T) {
	data, err := os.ReadFile(writeExtensibleFloatWAV(t, []float32{0, 0.25}))
	if err != nil {
		t.Fatal(err)
	}
	got, err := wavSubFormat(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("wavSubFormat() error = %v", err)
	}
	if got != wavFormatIEEEFloat {
		t.Fatalf("expected subformat %d, got %d", wavFormatIEEEFloat, got)
	}
}
