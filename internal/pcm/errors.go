package pcm

import "fmt"

// OpenError reports a file that could not be opened or that its decoder
// rejected.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("could not open %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// FormatError reports a decodable file the visualizer cannot analyze,
// such as one with more than one channel.
type FormatError struct {
	Path     string
	Channels int
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: only mono audio is supported (got %d channels)", e.Path, e.Channels)
}
