package waveform

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/internal/clipdecoder"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/clip"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	DefaultCacheSize = 8
	DefaultWidth     = 600
	DefaultHeight    = 100
)

type cacheKey struct {
	clipID uuid.UUID
	width  int
	height int
}

// Renderer builds waveforms from clips, decoding through a clipdecoder.Decoder.
//
// Clips are immutable and identified by ID, so a waveform is computed once per
// (clip, raster size) and served from an LRU cache afterwards.
type Renderer struct {
	logger  *slog.Logger
	decoder clipdecoder.Decoder
	cache   *lru.Cache[cacheKey, *Waveform]
}

func NewRenderer(decoder clipdecoder.Decoder, cacheSize int, logger *slog.Logger) (*Renderer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[cacheKey, *Waveform](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Renderer{
		logger:  logger,
		decoder: decoder,
		cache:   cache,
	}, nil
}

// Render returns the waveform of channel 0 of c for a width x height raster.
// A decode failure yields no waveform.
func (r *Renderer) Render(ctx context.Context, c *clip.RecordingClip, width int, height int) (*Waveform, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidRaster
	}
	key := cacheKey{clipID: c.ID, width: width, height: height}
	if w, ok := r.cache.Get(key); ok {
		return w, nil
	}

	decoded, err := r.decoder.Decode(c.Data, c.MimeType)
	if err != nil {
		r.logger.Error("failed to decode clip", "clipID", c.ID, "mimeType", c.MimeType, "err", err)
		return nil, fmt.Errorf("decoding clip %s: %w", c.ID, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w, err := New(c.ID, decoded.Channel(0), width, height)
	if err != nil {
		return nil, err
	}
	r.cache.Add(key, w)

	r.logger.Debug(
		"rendered waveform",
		"clipID", c.ID,
		"samples", len(decoded.Samples),
		"width", width,
		"height", height,
	)
	return w, nil
}
