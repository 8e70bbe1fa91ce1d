package audioapi

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/audiodevice/device"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/frame"
)

// Microphone opens the api's default input device and hands out its audio in
// a fixed format, with the input gain applied.
//
// Audio Data Flow
// default input device -> AudioFormatConversionDevice -> AudioAugmentationDevice -> recorder
type Microphone struct {
	logger     *slog.Logger
	api        AudioIODeviceAPI
	properties audiodevice.DeviceProperties
	gain       float32
}

func NewMicrophone(api AudioIODeviceAPI, properties audiodevice.DeviceProperties, gain float32, logger *slog.Logger) *Microphone {
	if logger == nil {
		logger = slog.Default()
	}
	return &Microphone{
		logger:     logger,
		api:        api,
		properties: properties,
		gain:       gain,
	}
}

func (m *Microphone) Acquire(ctx context.Context) (audiodevice.AudioSourceDevice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	inputDevice, err := m.api.InitDefaultInputDevice()
	if err != nil {
		m.logger.Error("failed to open input device", "err", err)
		return nil, err
	}

	// Wire from right to left so no frame arrives before its consumer is set up
	conversionDevice := device.NewAudioFormatConversionDevice(inputDevice.GetDeviceProperties(), m.properties)
	augmentationDevice := device.NewAudioAugmentationDevice(m.properties)
	augmentationDevice.SetGain(m.gain)
	augmentationDevice.SetStream(conversionDevice.GetStream())
	conversionDevice.SetStream(inputDevice.GetStream())

	m.logger.Debug(
		"microphone acquired",
		"inputProperties", inputDevice.GetDeviceProperties(),
		"outputProperties", m.properties,
		"gain", m.gain,
	)
	return &inputChain{
		inputDevice: inputDevice,
		outputStage: augmentationDevice,
	}, nil
}

// inputChain is the whole pipeline seen as one AudioSourceDevice.
type inputChain struct {
	inputDevice  audiodevice.AudioSourceDevice
	outputStage  *device.AudioAugmentationDevice
	shutdownOnce sync.Once
}

func (c *inputChain) GetStream() <-chan frame.PCMFrame {
	return c.outputStage.GetStream()
}

func (c *inputChain) GetDeviceProperties() audiodevice.DeviceProperties {
	return c.outputStage.GetDeviceProperties()
}

// Closing the input device closes every stage after it in turn. Whatever is
// still in flight is drained so the stage goroutines can exit.
func (c *inputChain) Close() {
	c.shutdownOnce.Do(func() {
		c.inputDevice.Close()
		go func() {
			for range c.outputStage.GetStream() {
			}
		}()
	})
}
