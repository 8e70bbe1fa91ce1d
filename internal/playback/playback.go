package playback

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/internal/clipdecoder"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/audiodevice/device"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/clip"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/frame"
	"github.com/jonboulle/clockwork"
)

const (
	DefaultCooldown = time.Second

	framesPerChunk = 1024
)

// Plays one buffer. Play returns once playback has started; nothing is kept afterwards.
type Player interface {
	Play(ctx context.Context, chunk clip.AudioChunk) error
}

// --------------------------------------------------------------------------------
// Controller

// Controller guards a Player with a time based debounce: a trigger within
// cooldown of the last accepted trigger is dropped, whether or not that audio
// is still playing.
type Controller struct {
	logger   *slog.Logger
	player   Player
	clock    clockwork.Clock
	cooldown time.Duration

	mu          sync.Mutex
	lastTrigger time.Time
	triggered   bool
}

func NewController(player Player, clk clockwork.Clock, cooldown time.Duration, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		logger:   logger,
		player:   player,
		clock:    clk,
		cooldown: cooldown,
	}
}

// Trigger plays chunk unless debounced. Reports whether the player was invoked.
func (c *Controller) Trigger(ctx context.Context, chunk clip.AudioChunk) (bool, error) {
	c.mu.Lock()
	now := c.clock.Now()
	if c.triggered && now.Sub(c.lastTrigger) < c.cooldown {
		c.mu.Unlock()
		c.logger.Debug("playback debounced", "sinceLast", now.Sub(c.lastTrigger))
		return false, nil
	}
	c.triggered = true
	c.lastTrigger = now
	c.mu.Unlock()

	if err := c.player.Play(ctx, chunk); err != nil {
		c.logger.Error("playback failed", "err", err)
		return true, err
	}
	return true, nil
}

// --------------------------------------------------------------------------------
// DevicePlayer

// DevicePlayer decodes a buffer and streams it to a freshly opened sink,
// converting to the sink's format on the way.
type DevicePlayer struct {
	logger         *slog.Logger
	decoder        clipdecoder.Decoder
	newSink        audiodevice.SinkFactory
	sinkProperties audiodevice.DeviceProperties
}

func NewDevicePlayer(
	decoder clipdecoder.Decoder,
	newSink audiodevice.SinkFactory,
	sinkProperties audiodevice.DeviceProperties,
	logger *slog.Logger,
) *DevicePlayer {
	if logger == nil {
		logger = slog.Default()
	}
	return &DevicePlayer{
		logger:         logger,
		decoder:        decoder,
		newSink:        newSink,
		sinkProperties: sinkProperties,
	}
}

func (p *DevicePlayer) Play(ctx context.Context, chunk clip.AudioChunk) error {
	decoded, err := p.decoder.Decode(chunk.Data, chunk.MimeType)
	if err != nil {
		return fmt.Errorf("decoding %s for playback: %w", chunk.MimeType, err)
	}

	sink, err := p.newSink(p.sinkProperties)
	if err != nil {
		return fmt.Errorf("opening playback sink: %w", err)
	}

	// decoded -> conversion -> sink
	conversion := device.NewAudioFormatConversionDevice(decoded.Properties, sink.GetDeviceProperties())
	sink.SetStream(conversion.GetStream())
	stream := make(chan frame.PCMFrame)
	conversion.SetStream(stream)

	p.logger.Debug(
		"starting playback",
		"mimeType", chunk.MimeType,
		"samples", len(decoded.Samples),
		"sampleRate", decoded.Properties.SampleRate,
	)

	go func() {
		defer close(stream)
		chunkSize := framesPerChunk * max(1, decoded.Properties.NumChannels)
		for start := 0; start < len(decoded.Samples); start += chunkSize {
			end := min(start+chunkSize, len(decoded.Samples))
			select {
			case stream <- decoded.Samples[start:end]:
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}
