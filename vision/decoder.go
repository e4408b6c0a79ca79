// Package vision turns uploaded leaf photos into classifier predictions:
// decode, preprocess, score, and confidence-gate.
package vision

import (
	"bytes"
	"fmt"
	"image"
	"sync"

	// Registered decode formats. The browser accepted anything image/*;
	// these cover what phone cameras and gallery exports actually send.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/sahyadri-labs/krishirakshak/domain"
)

// Preview is a transient display-preview handle for one decoded image.
// Its lifetime is scoped to the entry referencing it; Release frees the
// buffered bytes once the preview is superseded or its owner is replaced.
type Preview struct {
	mu       sync.Mutex
	data     []byte
	released bool
}

// Bytes returns the preview image bytes, or nil after Release.
func (p *Preview) Bytes() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return nil
	}
	return p.data
}

// Release frees the preview buffer. Releasing twice is a no-op.
func (p *Preview) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data = nil
	p.released = true
}

// Released reports whether the handle has been released.
func (p *Preview) Released() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.released
}

// DecodedImage is a decoded pixel buffer ready for tensorization, at the
// original aspect ratio. Resizing happens later in the preprocess step.
type DecodedImage struct {
	Pixels  image.Image
	Format  string
	Preview *Preview
}

// Decoder decodes user-selected image files.
type Decoder struct{}

// NewDecoder creates a Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode parses raw file bytes into a DecodedImage. Malformed or
// unreadable input yields domain.ErrDecode.
func (d *Decoder) Decode(data []byte) (*DecodedImage, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty file: %w", domain.ErrDecode)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrDecode)
	}

	preview := &Preview{data: make([]byte, len(data))}
	copy(preview.data, data)

	return &DecodedImage{
		Pixels:  img,
		Format:  format,
		Preview: preview,
	}, nil
}
