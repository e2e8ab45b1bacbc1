// Package media identifies the audio containers spectra can decode.
package media

import (
	"path/filepath"
	"strings"
)

// Format is an audio container recognized by file extension.
type Format int

const (
	Unknown Format = iota
	WAV
	MP3
	FLAC
	Ogg
)

var formats = []struct {
	format Format
	ext    string
	name   string
}{
	{WAV, ".wav", "WAV"},
	{MP3, ".mp3", "MP3"},
	{FLAC, ".flac", "FLAC"},
	{Ogg, ".ogg", "Ogg Vorbis"},
}

// FormatOf returns the format implied by path's extension.
func FormatOf(path string) Format {
	ext := strings.ToLower(filepath.Ext(path))
	for _, f := range formats {
		if f.ext == ext {
			return f.format
		}
	}
	return Unknown
}

func (f Format) String() string {
	for _, e := range formats {
		if e.format == f {
			return e.name
		}
	}
	return "unknown"
}

// IsSupportedExt returns true if the extension is a decodable audio format.
func IsSupportedExt(ext string) bool {
	return FormatOf("x"+ext) != Unknown
}

// SupportedExtsList returns a human-readable list of supported formats.
func SupportedExtsList() string {
	exts := make([]string, len(formats))
	for i, f := range formats {
		exts[i] = f.ext
	}
	return strings.Join(exts, ", ")
}
