package player

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/go-audio/wav"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/meta"
)

// Metadata holds song information.
type Metadata struct {
	Title  string
	Artist string
	Album  string
}

// ReadMetadata reads tags from an MP3 (ID3v2), WAV (INFO chunk), FLAC or Ogg
// (Vorbis comments) file, falling back to the file name.
func ReadMetadata(path string) Metadata {
	var m Metadata
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		m = readID3(path)
	case ".wav":
		m = readWAVInfo(path)
	case ".flac":
		m = readFLACComments(path)
	case ".ogg":
		m = readOggComments(path)
	}
	if m.Title != "" {
		return m
	}

	// Fallback: use filename without extension
	base := filepath.Base(path)
	return Metadata{
		Title:  strings.TrimSuffix(base, filepath.Ext(base)),
		Artist: m.Artist,
		Album:  m.Album,
	}
}

func readID3(path string) Metadata {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return Metadata{}
	}
	defer tag.Close()
	return Metadata{
		Title:  strings.TrimSpace(tag.Title()),
		Artist: strings.TrimSpace(tag.Artist()),
		Album:  strings.TrimSpace(tag.Album()),
	}
}

func readWAVInfo(path string) Metadata {
	f, err := os.Open(path)
	if err != nil {
		return Metadata{}
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	dec.ReadMetadata()
	if dec.Metadata == nil {
		return Metadata{}
	}
	return Metadata{
		Title:  strings.TrimSpace(dec.Metadata.Title),
		Artist: strings.TrimSpace(dec.Metadata.Artist),
		Album:  strings.TrimSpace(dec.Metadata.Product),
	}
}

func readFLACComments(path string) Metadata {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return Metadata{}
	}
	defer stream.Close()

	var tags [][2]string
	for _, block := range stream.Blocks {
		if vc, ok := block.Body.(*meta.VorbisComment); ok {
			tags = append(tags, vc.Tags...)
		}
	}
	return fromVorbisTags(tags)
}

func readOggComments(path string) Metadata {
	f, err := os.Open(path)
	if err != nil {
		return Metadata{}
	}
	defer f.Close()

	r, err := oggvorbis.NewReader(f)
	if err != nil {
		return Metadata{}
	}
	var tags [][2]string
	for _, c := range r.CommentHeader().Comments {
		if k, v, ok := strings.Cut(c, "="); ok {
			tags = append(tags, [2]string{k, v})
		}
	}
	return fromVorbisTags(tags)
}

// fromVorbisTags picks the first TITLE, ARTIST and ALBUM entries. Field names
// are case-insensitive.
func fromVorbisTags(tags [][2]string) Metadata {
	var m Metadata
	for _, kv := range tags {
		v := strings.TrimSpace(kv[1])
		switch strings.ToUpper(kv[0]) {
		case "TITLE":
			if m.Title == "" {
				m.Title = v
			}
		case "ARTIST":
			if m.Artist == "" {
				m.Artist = v
			}
		case "ALBUM":
			if m.Album == "" {
				m.Album = v
			}
		}
	}
	return m
}
