package portaudiodevice

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/frame"
	"github.com/google/uuid"
	"github.com/gordonklaus/portaudio"
)

// PortAudioOutputDevice is an AudioSinkDevice that plays audio on the default
// output device using PortAudio's blocking write API.
//
// One device plays one stream: once the stream set with SetStream is closed,
// the remaining audio is flushed and the PortAudio stream is torn down.
type PortAudioOutputDevice struct {
	logger *slog.Logger
	uuid   uuid.UUID

	stream       *portaudio.Stream
	buffer       []float32
	sampleRate   int
	numChannels  int
	shutdownOnce sync.Once
}

// NewPortAudioOutputDevice opens (but does not start) the default output device.
// framesPerBuffer determines the size of each write (typically 512 or 1024).
func NewPortAudioOutputDevice(properties audiodevice.DeviceProperties, framesPerBuffer int) (*PortAudioOutputDevice, error) {
	uuid := uuid.New()
	logger := slog.Default().With(
		"portaudio output device uuid", uuid,
	)

	if err := portaudio.Initialize(); err != nil {
		logger.Error("failed to initialize portaudio", "err", err)
		return nil, fmt.Errorf("failed to initialize portaudio: %w", classifyPortAudioError(err))
	}

	buffer := make([]float32, framesPerBuffer*properties.NumChannels)
	stream, err := portaudio.OpenDefaultStream(
		0,
		properties.NumChannels,
		float64(properties.SampleRate),
		framesPerBuffer,
		buffer,
	)
	if err != nil {
		portaudio.Terminate()
		logger.Error("failed to open output stream", "err", err)
		return nil, fmt.Errorf("failed to open output stream: %w", classifyPortAudioError(err))
	}

	logger.Debug(
		"initialized portaudio output device",
		"sampleRate", properties.SampleRate,
		"channels", properties.NumChannels,
		"framesPerBuffer", framesPerBuffer,
	)

	return &PortAudioOutputDevice{
		logger:      logger,
		uuid:        uuid,
		stream:      stream,
		buffer:      buffer,
		sampleRate:  properties.SampleRate,
		numChannels: properties.NumChannels,
	}, nil
}

// SetStream starts playback, consuming PCM frames from the channel until it is closed.
func (d *PortAudioOutputDevice) SetStream(sourceStream <-chan frame.PCMFrame) {
	if err := d.stream.Start(); err != nil {
		d.logger.Error("failed to start output stream", "err", err)
		go func() {
			for range sourceStream {
			}
			d.close()
		}()
		return
	}

	go func() {
		defer d.close()

		filled := 0
		for pcmFrame := range sourceStream {
			for len(pcmFrame) > 0 {
				n := copy(d.buffer[filled:], pcmFrame)
				filled += n
				pcmFrame = pcmFrame[n:]
				if filled < len(d.buffer) {
					continue
				}
				if err := d.stream.Write(); err != nil && !errors.Is(err, portaudio.OutputUnderflowed) {
					d.logger.Error("failed to write to output stream", "err", err)
				}
				filled = 0
			}
		}

		// Pad the final partial buffer with silence
		if filled > 0 {
			clear(d.buffer[filled:])
			if err := d.stream.Write(); err != nil && !errors.Is(err, portaudio.OutputUnderflowed) {
				d.logger.Error("failed to write to output stream", "err", err)
			}
		}
		d.logger.Debug("source stream closed")
	}()
}

func (d *PortAudioOutputDevice) close() {
	d.shutdownOnce.Do(func() {
		if err := errors.Join(d.stream.Stop(), d.stream.Close()); err != nil {
			d.logger.Error("error closing output stream", "err", err)
		}
		portaudio.Terminate()
		d.logger.Debug("portaudio output device closed")
	})
}

// GetDeviceProperties returns the audio properties (sample rate, channels) of this device.
func (d *PortAudioOutputDevice) GetDeviceProperties() audiodevice.DeviceProperties {
	return audiodevice.DeviceProperties{
		SampleRate:  d.sampleRate,
		NumChannels: d.numChannels,
	}
}
