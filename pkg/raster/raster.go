// Package raster renders source pages to bitmaps suitable for optical
// transcription and encodes them for network transport.
package raster

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	_ "image/gif"
	_ "image/jpeg"

	"golang.org/x/image/draw"
)

// PageScale is the fixed upscale factor applied to page bitmaps. Source
// pages are rendered at 2x to keep small print legible for transcription.
const PageScale = 2.0

// RenderPage decodes the page image and re-renders it at PageScale,
// returning PNG bytes. It is a pure function; retries and error policy
// belong to the caller.
func RenderPage(imageData []byte) ([]byte, error) {
	return render(imageData, PageScale)
}

// PassThrough validates a standalone image and returns it unchanged.
// Standalone uploads are already at capture resolution; rescaling them
// would only inflate the request.
func PassThrough(imageData []byte) ([]byte, error) {
	if _, _, err := image.Decode(bytes.NewReader(imageData)); err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return imageData, nil
}

// EncodeTransport encodes a bitmap as base64 for the transcription request
// body.
func EncodeTransport(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func render(imageData []byte, scale float64) ([]byte, error) {
	if scale <= 0 {
		return nil, fmt.Errorf("invalid scale %v", scale)
	}
	src, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	b := src.Bounds()
	w := int(float64(b.Dx()) * scale)
	h := int(float64(b.Dy()) * scale)
	if w < 1 || h < 1 {
		return nil, fmt.Errorf("image too small to render (%dx%d)", b.Dx(), b.Dy())
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
