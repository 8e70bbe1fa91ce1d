package waveform

import (
	"errors"
	"image"
	"image/color"
	"image/draw"

	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/frame"
	"github.com/google/uuid"
)

var (
	ErrInvalidRaster = errors.New("raster width and height must be positive")
)

// The amplitude range of the samples behind one pixel column.
type Column struct {
	Min float32
	Max float32
}

// A vertical bar in pixel space. Top and Height are fractional; Draw rounds them.
type Bar struct {
	X      int
	Top    float64
	Height float64
}

// One (min, max) column per horizontal pixel of a width x height raster,
// derived from one clip. Read-only once built.
type Waveform struct {
	ClipID  uuid.UUID
	Width   int
	Height  int
	Columns []Column
}

// Reduce samples to exactly width columns.
//
// Samples are split into groups of ceil(len/width). When there are fewer
// samples than that covers (e.g. more columns than samples), the trailing
// groups are empty and their columns are (0, 0), which draws as silence.
func Reduce(samples frame.PCMFrame, width int) []Column {
	if width <= 0 {
		return nil
	}
	columns := make([]Column, width)
	if len(samples) == 0 {
		return columns
	}

	step := (len(samples) + width - 1) / width
	for i := range columns {
		start := i * step
		if start >= len(samples) {
			break
		}
		end := min(start+step, len(samples))

		lo, hi := samples[start], samples[start]
		for _, v := range samples[start+1 : end] {
			lo = min(lo, v)
			hi = max(hi, v)
		}
		columns[i] = Column{Min: lo, Max: hi}
	}
	return columns
}

// Build the waveform of samples for a width x height raster.
func New(clipID uuid.UUID, samples frame.PCMFrame, width int, height int) (*Waveform, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidRaster
	}
	return &Waveform{
		ClipID:  clipID,
		Width:   width,
		Height:  height,
		Columns: Reduce(samples, width),
	}, nil
}

// Map columns to bars. A column where min == max still gets a 1 pixel bar.
func (w *Waveform) Bars() []Bar {
	amp := float64(w.Height) / 2
	bars := make([]Bar, len(w.Columns))
	for i, c := range w.Columns {
		bars[i] = Bar{
			X:      i,
			Top:    (1 + float64(c.Min)) * amp,
			Height: max(1, float64(c.Max-c.Min)*amp),
		}
	}
	return bars
}

// Draw clears all of dst, then fills one bar per column with ink.
// dst should be Width x Height; bars falling outside its bounds are clipped.
func (w *Waveform) Draw(dst draw.Image, ink color.Color) {
	bounds := dst.Bounds()
	draw.Draw(dst, bounds, image.Transparent, image.Point{}, draw.Src)

	src := image.NewUniform(ink)
	for _, bar := range w.Bars() {
		// A full-scale positive column has Top == Height; keep its pixel on the raster.
		top := min(int(bar.Top), bounds.Dy()-1)
		bottom := max(top+1, int(bar.Top+bar.Height+0.5))
		rect := image.Rect(bar.X, top, bar.X+1, bottom).Add(bounds.Min).Intersect(bounds)
		if rect.Empty() {
			continue
		}
		draw.Draw(dst, rect, src, image.Point{}, draw.Src)
	}
}

// Draw onto a fresh Width x Height RGBA image.
func (w *Waveform) Image(ink color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w.Width, w.Height))
	w.Draw(img, ink)
	return img
}
