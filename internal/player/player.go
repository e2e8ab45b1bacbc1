// Package player plays an audio file through the system audio device and
// reports the playback clock.
package player

import (
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/olivier-w/spectra/internal/pcm"
	"github.com/pkg/errors"
)

// countingReader wraps an io.Reader and tracks bytes read.
type countingReader struct {
	reader io.Reader
	pos    int64
	mu     sync.Mutex
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.reader.Read(p)
	cr.mu.Lock()
	cr.pos += int64(n)
	cr.mu.Unlock()
	return n, err
}

func (cr *countingReader) Pos() int64 {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	return cr.pos
}

func (cr *countingReader) SetPos(pos int64) {
	cr.mu.Lock()
	cr.pos = pos
	cr.mu.Unlock()
}

// output is the part of *oto.Player the Player drives.
type output interface {
	Play()
	Pause()
	IsPlaying() bool
	BufferedSize() int
	SetVolume(float64)
}

// Player plays one file. It owns its own decoder, separate from the one
// the visualizer reads.
type Player struct {
	decoder     pcm.Decoder
	counter     *countingReader
	newOutput   func(io.Reader) output
	out         output
	bytesPerSec int64
	frameBytes  int64
	duration    time.Duration
	volume      float64
	started     bool
	paused      bool
	closed      bool
	floor       time.Duration
	cleanup     func()
	mu          sync.Mutex
}

var (
	globalOtoCtx *oto.Context
	otoOnce      sync.Once
	otoInitErr   error
	otoFormat    [2]int
)

// initOto creates the process-wide audio context. The device format is fixed
// by the first call.
func initOto(sampleRate, channels int) (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: channels,
			Format:       oto.FormatSignedInt16LE,
		}
		var ready chan struct{}
		globalOtoCtx, ready, otoInitErr = oto.NewContext(op)
		if otoInitErr == nil {
			<-ready
			otoFormat = [2]int{sampleRate, channels}
		}
	})
	if otoInitErr != nil {
		return nil, errors.Wrap(otoInitErr, "initializing audio device")
	}
	if otoFormat != [2]int{sampleRate, channels} {
		return nil, errors.Errorf("audio device already opened at %d Hz x %d, cannot play %d Hz x %d",
			otoFormat[0], otoFormat[1], sampleRate, channels)
	}
	return globalOtoCtx, nil
}

// New opens path for playback at the given volume. Playback does not begin
// until Start.
func New(path string, volume float64) (*Player, error) {
	f, err := pcm.Open(path)
	if err != nil {
		return nil, err
	}

	ctx, err := initOto(f.SampleRate(), f.ChannelCount())
	if err != nil {
		f.Close()
		return nil, err
	}

	p := newPlayer(f, func(r io.Reader) output { return ctx.NewPlayer(r) }, volume)
	p.cleanup = func() { f.Close() }
	return p, nil
}

func newPlayer(dec pcm.Decoder, newOutput func(io.Reader) output, volume float64) *Player {
	frameBytes := int64(dec.ChannelCount() * pcm.BytesPerSample)
	bytesPerSec := int64(dec.SampleRate()) * frameBytes
	p := &Player{
		decoder:     dec,
		counter:     &countingReader{reader: dec},
		newOutput:   newOutput,
		bytesPerSec: bytesPerSec,
		frameBytes:  frameBytes,
		volume:      clampVolume(volume),
	}
	if bytesPerSec > 0 {
		p.duration = time.Duration(float64(dec.Length()) / float64(bytesPerSec) * float64(time.Second))
	}
	return p
}

// Start begins playback. Calling it again has no effect.
func (p *Player) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started || p.closed {
		return
	}
	p.started = true
	p.out = p.newOutput(p.counter)
	p.out.SetVolume(p.volume)
	p.out.Play()
}

// Playing reports whether audio is currently being produced. It is false
// before Start, while paused, and once the file has played to the end.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started || p.closed || p.paused {
		return false
	}
	return p.out.IsPlaying()
}

// Paused returns whether playback is paused.
func (p *Player) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused && !p.closed
}

// Pause stops output without discarding the position.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.out != nil {
		p.out.Pause()
	}
	p.paused = true
}

// TogglePause toggles between play and pause.
func (p *Player) TogglePause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started || p.closed {
		return
	}
	if p.paused {
		p.out.Play()
		p.paused = false
	} else {
		p.out.Pause()
		p.paused = true
	}
}

// Position returns the offset of the audio currently leaving the device:
// bytes handed to the device minus what it still holds in its buffer. It
// never moves backward except through Seek.
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bytesPerSec <= 0 {
		return 0
	}
	consumed := p.counter.Pos()
	if p.out != nil {
		consumed -= int64(p.out.BufferedSize())
	}
	if consumed < 0 {
		consumed = 0
	}
	pos := time.Duration(float64(consumed) / float64(p.bytesPerSec) * float64(time.Second))
	if pos < p.floor {
		pos = p.floor
	}
	p.floor = pos
	return pos
}

// Duration returns the total duration of the track.
func (p *Player) Duration() time.Duration {
	return p.duration
}

func clampSeekByteOffset(target time.Duration, bytesPerSec, length, frameBytes int64) int64 {
	pos := int64(target.Seconds() * float64(bytesPerSec))
	if pos < 0 {
		pos = 0
	}
	if pos > length {
		pos = length
	}
	if frameBytes > 0 {
		pos -= pos % frameBytes
	}
	return pos
}

// Seek moves playback by delta from the current position.
func (p *Player) Seek(delta time.Duration) error {
	target := p.Position() + delta

	p.mu.Lock()
	resume := p.started && !p.paused
	p.mu.Unlock()
	return p.SeekTo(target, resume)
}

// SeekTo jumps to an absolute position. The device buffer is dropped by
// replacing the output. When resume is false playback is left paused.
func (p *Player) SeekTo(target time.Duration, resume bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return errors.New("player closed")
	}
	// The old output reads the decoder from oto's goroutine until paused.
	wasPlaying := p.out != nil && p.out.IsPlaying()
	if p.out != nil {
		p.out.Pause()
	}

	pos := clampSeekByteOffset(target, p.bytesPerSec, p.decoder.Length(), p.frameBytes)
	if _, err := p.decoder.Seek(pos, io.SeekStart); err != nil {
		if wasPlaying {
			p.out.Play()
		}
		return errors.Wrap(err, "seeking playback")
	}
	p.counter.SetPos(pos)
	p.floor = 0

	if p.newOutput != nil {
		p.out = p.newOutput(p.counter)
		p.out.SetVolume(p.volume)
		p.started = true
	}
	if resume && p.out != nil {
		p.out.Play()
		p.paused = false
	} else {
		p.paused = true
	}
	return nil
}

func clampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Volume returns current volume (0.0 to 1.0).
func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// SetVolume sets volume (clamped to 0.0 - 1.0).
func (p *Player) SetVolume(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.volume = clampVolume(v)
	if p.out != nil {
		p.out.SetVolume(p.volume)
	}
}

// AdjustVolume adjusts volume by delta.
func (p *Player) AdjustVolume(delta float64) {
	p.mu.Lock()
	v := p.volume + delta
	p.mu.Unlock()
	p.SetVolume(v)
}

// Close stops output and releases the decoder.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	if p.out != nil {
		p.out.Pause()
	}
	if p.cleanup != nil {
		p.cleanup()
	}
}
