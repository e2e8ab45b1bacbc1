package media

import "testing"

func TestFormatOf(t *testing.T) {
	cases := map[string]Format{
		"song.wav":         WAV,
		"/music/Track.MP3": MP3,
		"a.b.flac":         FLAC,
		"voice.ogg":        Ogg,
		"movie.m4a":        Unknown,
		"no-extension":     Unknown,
		"archive.ogg.bak":  Unknown,
	}
	for path, want := range cases {
		if got := FormatOf(path); got != want {
			t.Fatalf("FormatOf(%q) = %v, expected %v", path, got, want)
		}
	}
}

func TestIsSupportedExt(t *testing.T) {
	for _, ext := range []string{".wav", ".MP3", ".flac", ".ogg"} {
		if !IsSupportedExt(ext) {
			t.Fatalf("expected %s to be supported", ext)
		}
	}
	for _, ext := range []string{".aac", ".m4a", ".m3u", ""} {
		if IsSupportedExt(ext) {
			t.Fatalf("expected %s to be unsupported", ext)
		}
	}
}

func TestSupportedExtsList(t *testing.T) {
	if got := SupportedExtsList(); got != ".wav, .mp3, .flac, .ogg" {
		t.Fatalf("unexpected list %q", got)
	}
}
