// Package heatmap draws pixel-bin attention as translucent bands over a
// reference screenshot of a document.
package heatmap

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"leadmagnet/api/models"
)

const (
	// BandHeight is the height of one overlay band, equal to the pixel bin size.
	BandHeight = 25
	// MaxAlpha caps band opacity so the screenshot stays readable.
	MaxAlpha = 0.7

	placeholderWidth  = 800
	placeholderHeight = 600
)

var (
	overlayColor     = color.RGBA{R: 255, A: 255}
	placeholderColor = color.RGBA{R: 240, G: 240, B: 240, A: 255}
	placeholderBar   = color.RGBA{R: 200, G: 200, B: 200, A: 255}
)

// Result is a rendered heatmap. Placeholder is true when there was nothing to
// draw: no reference image or no bins.
type Result struct {
	Image       *image.RGBA
	Placeholder bool
}

// Opacity is the band alpha for timeSpent relative to the largest bin.
func Opacity(timeSpent, maxTimeSpent int64) float64 {
	if maxTimeSpent <= 0 || timeSpent <= 0 {
		return 0
	}
	ratio := float64(timeSpent) / float64(maxTimeSpent)
	if ratio > 1 {
		ratio = 1
	}
	return ratio * MaxAlpha
}

// Render overlays bins onto ref. A nil ref or empty bins produce a
// placeholder image instead of an error.
func Render(ref image.Image, bins []models.PixelBin) Result {
	if ref == nil || len(bins) == 0 {
		return Result{Image: placeholder(ref), Placeholder: true}
	}

	bounds := ref.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(canvas, canvas.Bounds(), ref, bounds.Min, draw.Src)

	var maxTime int64
	for _, b := range bins {
		if b.TimeSpent > maxTime {
			maxTime = b.TimeSpent
		}
	}

	src := image.NewUniform(overlayColor)
	for _, b := range bins {
		alpha := Opacity(b.TimeSpent, maxTime)
		if alpha == 0 {
			continue
		}
		band := image.Rect(0, b.Y, canvas.Bounds().Dx(), b.Y+BandHeight).Intersect(canvas.Bounds())
		if band.Empty() {
			continue
		}
		mask := image.NewUniform(color.Alpha{A: uint8(alpha * 255)})
		draw.DrawMask(canvas, band, src, image.Point{}, mask, image.Point{}, draw.Over)
	}
	return Result{Image: canvas}
}

// placeholder keeps the reference dimensions when known.
func placeholder(ref image.Image) *image.RGBA {
	w, h := placeholderWidth, placeholderHeight
	if ref != nil && !ref.Bounds().Empty() {
		w, h = ref.Bounds().Dx(), ref.Bounds().Dy()
	}
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(placeholderColor), image.Point{}, draw.Src)

	// A single centered bar marks the empty state.
	bar := image.Rect(w/4, h/2-BandHeight/2, w*3/4, h/2+BandHeight/2)
	draw.Draw(canvas, bar, image.NewUniform(placeholderBar), image.Point{}, draw.Src)
	return canvas
}

// EncodePNG encodes a rendered heatmap.
func EncodePNG(r Result) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, r.Image); err != nil {
		return nil, fmt.Errorf("failed to encode heatmap png: %w", err)
	}
	return buf.Bytes(), nil
}
