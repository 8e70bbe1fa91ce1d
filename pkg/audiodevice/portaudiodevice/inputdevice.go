// Microphone and speaker devices over PortAudio. Building this package needs cgo and the PortAudio headers.
package portaudiodevice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/frame"
	"github.com/google/uuid"
	"github.com/gordonklaus/portaudio"
)

// PortAudioInputDevice is an AudioSourceDevice that captures audio from the
// default microphone using PortAudio's blocking read API.
//
// The stream runs from construction until Close. Consumers that only care about
// part of the audio (e.g. a recorder between start and stop) discard the rest.
type PortAudioInputDevice struct {
	logger *slog.Logger
	uuid   uuid.UUID

	stream      *portaudio.Stream
	buffer      []float32
	sampleRate  int
	numChannels int
	dataChannel chan frame.PCMFrame

	ctx           context.Context
	ctxCancelFunc context.CancelFunc
	readLoopDone  chan struct{}
	shutdownOnce  sync.Once
}

// NewPortAudioInputDevice opens and starts the default input device.
//
// Failures to find or open the device wrap audiodevice.ErrDeviceUnavailable,
// so callers can tell a missing/blocked microphone apart from other failures.
func NewPortAudioInputDevice(properties audiodevice.DeviceProperties, framesPerBuffer int) (*PortAudioInputDevice, error) {
	uuid := uuid.New()
	logger := slog.Default().With(
		"portaudio input device uuid", uuid,
	)

	if err := portaudio.Initialize(); err != nil {
		logger.Error("failed to initialize portaudio", "err", err)
		return nil, fmt.Errorf("failed to initialize portaudio: %w", classifyPortAudioError(err))
	}

	defaultIn, err := portaudio.DefaultInputDevice()
	if err != nil || defaultIn == nil || defaultIn.MaxInputChannels < properties.NumChannels {
		portaudio.Terminate()
		logger.Error("no usable default input device", "err", err)
		return nil, fmt.Errorf("no usable default input device: %w", errors.Join(audiodevice.ErrDeviceUnavailable, err))
	}

	buffer := make([]float32, framesPerBuffer*properties.NumChannels)
	stream, err := portaudio.OpenDefaultStream(
		properties.NumChannels,
		0,
		float64(properties.SampleRate),
		framesPerBuffer,
		buffer,
	)
	if err != nil {
		portaudio.Terminate()
		logger.Error("failed to open input stream", "err", err)
		return nil, fmt.Errorf("failed to open input stream: %w", classifyPortAudioError(err))
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		logger.Error("failed to start input stream", "err", err)
		return nil, fmt.Errorf("failed to start input stream: %w", classifyPortAudioError(err))
	}

	logger.Debug(
		"initialized portaudio input device",
		"device", defaultIn.Name,
		"sampleRate", properties.SampleRate,
		"channels", properties.NumChannels,
		"framesPerBuffer", framesPerBuffer,
	)

	ctx, ctxCancelFunc := context.WithCancel(context.Background())
	device := &PortAudioInputDevice{
		logger:        logger,
		uuid:          uuid,
		stream:        stream,
		buffer:        buffer,
		sampleRate:    properties.SampleRate,
		numChannels:   properties.NumChannels,
		dataChannel:   make(chan frame.PCMFrame, 10),
		ctx:           ctx,
		ctxCancelFunc: ctxCancelFunc,
		readLoopDone:  make(chan struct{}),
	}
	go device.readLoop()

	return device, nil
}

// The read loop owns dataChannel and is the only goroutine that closes it.
func (d *PortAudioInputDevice) readLoop() {
	defer close(d.readLoopDone)
	defer close(d.dataChannel)

	for {
		if d.ctx.Err() != nil {
			return
		}

		if err := d.stream.Read(); err != nil {
			if errors.Is(err, portaudio.InputOverflowed) {
				d.logger.Warn("input overflow detected")
				continue
			}
			d.logger.Error("failed to read from input stream", "err", err)
			return
		}

		pcmFrame := make(frame.PCMFrame, len(d.buffer))
		copy(pcmFrame, d.buffer)

		select {
		case d.dataChannel <- pcmFrame:
		case <-d.ctx.Done():
			return
		default:
			d.logger.Warn("audio input buffer full, dropping frame", "samples", len(pcmFrame))
		}
	}
}

// GetStream returns the channel that will receive PCM audio frames from the microphone.
func (d *PortAudioInputDevice) GetStream() <-chan frame.PCMFrame {
	return d.dataChannel
}

// Close stops the audio stream and releases PortAudio.
func (d *PortAudioInputDevice) Close() {
	d.logger.Debug("shutdown called")
	d.shutdownOnce.Do(func() {
		d.ctxCancelFunc()
		<-d.readLoopDone

		if err := errors.Join(d.stream.Stop(), d.stream.Close()); err != nil {
			d.logger.Error("error closing input stream", "err", err)
		}
		portaudio.Terminate()

		d.logger.Info("portaudio input device closed")
	})
}

// GetDeviceProperties returns the audio properties (sample rate, channels) of this device.
func (d *PortAudioInputDevice) GetDeviceProperties() audiodevice.DeviceProperties {
	return audiodevice.DeviceProperties{
		SampleRate:  d.sampleRate,
		NumChannels: d.numChannels,
	}
}

// Map PortAudio's device errors onto the audiodevice sentinels.
func classifyPortAudioError(err error) error {
	switch {
	case errors.Is(err, portaudio.DeviceUnavailable),
		errors.Is(err, portaudio.InvalidDevice),
		errors.Is(err, portaudio.InvalidChannelCount):
		return errors.Join(audiodevice.ErrDeviceUnavailable, err)
	default:
		return err
	}
}
