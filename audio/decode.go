package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrUnsupportedFormat is returned when no decoder is registered for a
	// file's extension.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrEmptyStream is returned when a file decodes to zero frames.
	ErrEmptyStream = errors.New("audio stream contains no frames")
)

// Decoder turns an encoded file into a Stream.
type Decoder interface {
	Decode(r io.ReadSeeker) (*Stream, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(r io.ReadSeeker) (*Stream, error)

func (f DecoderFunc) Decode(r io.ReadSeeker) (*Stream, error) { return f(r) }

// Registry maps lower-case file extensions (without the dot) to decoders.
type Registry struct {
	decoders map[string]Decoder
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{decoders: make(map[string]Decoder)}
}

// DefaultRegistry knows the fixed set of supported formats: ogg, wav, mp3.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("ogg", DecoderFunc(decodeOgg))
	r.Register("wav", DecoderFunc(decodeWav))
	r.Register("mp3", DecoderFunc(decodeMP3))
	return r
}

// Register binds ext to d, replacing any previous decoder.
func (r *Registry) Register(ext string, d Decoder) {
	r.decoders[strings.ToLower(strings.TrimPrefix(ext, "."))] = d
}

// Extensions lists the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.decoders))
	for ext := range r.decoders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Lookup returns the decoder for path's extension.
func (r *Registry) Lookup(path string) (Decoder, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	d, ok := r.decoders[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedFormat, filepath.Ext(path), strings.Join(r.Extensions(), ", "))
	}
	return d, nil
}

// DecodeFile opens and fully decodes path.
func (r *Registry) DecodeFile(path string) (*Stream, error) {
	d, err := r.Lookup(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	s, err := d.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	if s.Len() == 0 {
		return nil, fmt.Errorf("decoding %s: %w", path, ErrEmptyStream)
	}
	s.Path = path
	return s, nil
}
