// Package imaging bounds uploaded pictures to the blog's display size and normalises their encoding.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	MaxWidth  = 1200
	MaxHeight = 800
	Quality   = 80

	// MaxPixels caps the decoded size of an upload; a small file can declare huge dimensions
	MaxPixels = 40_000_000
)

// ErrTooManyPixels is returned for images whose declared dimensions exceed MaxPixels
var ErrTooManyPixels = errors.New("image dimensions too large")

// Format is the encoding of a processed image
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatGIF  Format = "gif"
)

// Ext returns the file extension used when storing the format
func (f Format) Ext() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return string(f)
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	return "image/" + string(f)
}

// Result is a processed image ready for storage
type Result struct {
	Data   []byte
	Format Format
	Width  int
	Height int
}

// OutputFormat picks the encoding for an upload from its original file name: PNG stays PNG, GIF
// stays GIF and everything else becomes JPEG.
func OutputFormat(originalFilename string) Format {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(originalFilename), ".")) {
	case "png":
		return FormatPNG
	case "gif":
		return FormatGIF
	default:
		return FormatJPEG
	}
}

// Process validates data as an image, rejects it when it declares more than MaxPixels and, when it is wider than MaxWidth, scales it down to fit
// within MaxWidth x MaxHeight keeping its aspect ratio. GIFs are returned byte for byte so that
// animations survive.
func Process(data []byte, originalFilename string) (*Result, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("read image metadata: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > MaxPixels/cfg.Height {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooManyPixels, cfg.Width, cfg.Height)
	}

	format := OutputFormat(originalFilename)
	if format == FormatGIF {
		if _, err := gif.DecodeConfig(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("decode gif: %w", err)
		}
		return &Result{Data: data, Format: FormatGIF, Width: cfg.Width, Height: cfg.Height}, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > MaxWidth {
		w, h = FitInside(w, h, MaxWidth, MaxHeight)
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	switch format {
	case FormatPNG:
		// PNG is lossless; Quality only applies to JPEG output
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
	default:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: Quality}); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
	}

	return &Result{Data: buf.Bytes(), Format: format, Width: w, Height: h}, nil
}

// FitInside scales w x h down to fit within maxW x maxH, preserving aspect ratio. It never scales up.
func FitInside(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 {
		return w, h
	}
	if w <= maxW && h <= maxH {
		return w, h
	}

	// compare w/maxW against h/maxH without floating point
	if w*maxH >= h*maxW {
		nh := h * maxW / w
		if nh < 1 {
			nh = 1
		}
		return maxW, nh
	}
	nw := w * maxH / h
	if nw < 1 {
		nw = 1
	}
	return nw, maxH
}
