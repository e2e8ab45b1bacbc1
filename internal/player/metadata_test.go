package player

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func TestReadMetadataWAVInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tagged.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	enc := wav.NewEncoder(f, 8000, 16, 1, 1)
	enc.Metadata = &wav.Metadata{Title: "Sine", Artist: "Oscillator", Product: "Tests"}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: 8000},
		Data:           make([]int, 64),
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encoding wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("closing wav encoder: %v", err)
	}
	f.Close()

	m := ReadMetadata(path)
	if m.Title != "Sine" || m.Artist != "Oscillator" || m.Album != "Tests" {
		t.Fatalf("unexpected metadata %+v", m)
	}
}

func TestReadMetadataFallsBackToFileName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "My Song.flac")
	if err := os.WriteFile(path, []byte("not flac"), 0o644); err != nil {
		t.Fatal(err)
	}
	if m := ReadMetadata(path); m.Title != "My Song" {
		t.Fatalf("expected filename title, got %q", m.Title)
	}
}

func TestFromVorbisTags(t *testing.T) {
	m := fromVorbisTags([][2]string{
		{"title", " First "},
		{"TITLE", "Second"},
		{"Artist", "Someone"},
		{"ALBUM", "Record"},
		{"GENRE", "ignored"},
	})
	if m.Title != "First" || m.Artist != "Someone" || m.Album != "Record" {
		t.Fatalf("unexpected metadata %+v", m)
	}
}
