package storage

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/disintegration/imaging"
)

// ImageProcessor prepares generated images for storage.
type ImageProcessor struct{}

// NewImageProcessor creates a new ImageProcessor.
func NewImageProcessor() *ImageProcessor {
	return &ImageProcessor{}
}

// FramePNG scales src to fit inside a size x size square minus margin on
// every side, centers it on a white canvas and returns it PNG-encoded.
// Nearest-neighbor sampling keeps hard edges (e.g. QR modules) crisp.
func (p *ImageProcessor) FramePNG(src image.Image, size, margin int) (io.Reader, error) {
	inner := size - 2*margin
	if inner <= 0 {
		return nil, fmt.Errorf("margin %d leaves no room in a %dpx frame", margin, size)
	}

	fitted := imaging.Fit(src, inner, inner, imaging.NearestNeighbor)
	canvas := imaging.New(size, size, color.White)
	framed := imaging.PasteCenter(canvas, fitted)

	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, framed, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}

	return buf, nil
}
