package tone

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/frame"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/generators"
)

const (
	DefaultFrequency = 880.0
	DefaultDuration  = 150 * time.Millisecond

	// Sine at full scale is unpleasant through headphones
	gain           = 0.3
	framesPerChunk = 512
)

// A Beeper plays one short cue, e.g. a countdown tick.
type Beeper interface {
	Beep(ctx context.Context) error
}

// ToneBeeper synthesizes a fixed-frequency sine and plays it on a fresh sink.
// Beep returns once the tone is queued, not once it has finished playing.
type ToneBeeper struct {
	logger     *slog.Logger
	newSink    audiodevice.SinkFactory
	properties audiodevice.DeviceProperties
	frequency  float64
	duration   time.Duration
}

func NewToneBeeper(
	newSink audiodevice.SinkFactory,
	properties audiodevice.DeviceProperties,
	frequency float64,
	duration time.Duration,
	logger *slog.Logger,
) *ToneBeeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &ToneBeeper{
		logger:     logger,
		newSink:    newSink,
		properties: properties,
		frequency:  frequency,
		duration:   duration,
	}
}

func (b *ToneBeeper) Beep(ctx context.Context) error {
	samples, err := Synthesize(b.properties, b.frequency, b.duration)
	if err != nil {
		return err
	}

	sink, err := b.newSink(b.properties)
	if err != nil {
		b.logger.Error("failed to open sink for beep", "err", err)
		return fmt.Errorf("opening sink for beep: %w", err)
	}

	stream := make(chan frame.PCMFrame)
	sink.SetStream(stream)
	go func() {
		defer close(stream)
		chunkSize := framesPerChunk * b.properties.NumChannels
		for start := 0; start < len(samples); start += chunkSize {
			end := min(start+chunkSize, len(samples))
			select {
			case stream <- samples[start:end]:
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// Synthesize an interleaved sine tone with the given format.
func Synthesize(properties audiodevice.DeviceProperties, frequency float64, duration time.Duration) (frame.PCMFrame, error) {
	sampleRate := beep.SampleRate(properties.SampleRate)
	sine, err := generators.SineTone(sampleRate, frequency)
	if err != nil {
		return nil, fmt.Errorf("creating %vHz tone: %w", frequency, err)
	}

	numFrames := sampleRate.N(duration)
	streamed := make([][2]float64, numFrames)
	n, _ := beep.Take(numFrames, sine).Stream(streamed)

	out := make(frame.PCMFrame, 0, n*properties.NumChannels)
	for _, s := range streamed[:n] {
		for c := range properties.NumChannels {
			out = append(out, float32(s[c%2]*gain))
		}
	}
	return out, nil
}
