package device

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/frame"
)

// Middle-man processing device for augmentations that keep the format,
// such as the input gain applied to the microphone before recording.
//
// This device is both a sink and a source!
type AudioAugmentationDevice struct {
	deviceProperties audiodevice.DeviceProperties

	// The stream that data *arrives on*
	sourceStream <-chan frame.PCMFrame

	// The stream that data *leaves on*
	sinkStream chan frame.PCMFrame

	augmentationFunctions []audioAugmentationFunction
	// float32 bits, so the gain can change while audio flows
	gain atomic.Uint32

	shutdownOnce sync.Once
}

// Create a new AudioAugmentationDevice with a gain of 1.0.
//
// This device will only start augmenting once SetStream is called.
func NewAudioAugmentationDevice(deviceProperties audiodevice.DeviceProperties) *AudioAugmentationDevice {
	d := &AudioAugmentationDevice{
		deviceProperties: deviceProperties,
		sinkStream:       make(chan frame.PCMFrame),
	}
	d.SetGain(1.0)
	d.augmentationFunctions = []audioAugmentationFunction{
		d.applyGain,
		clampFrame,
	}
	return d
}

// --------------------------------------------------------------------------------
// AudioSourceDevice Interface

func (d *AudioAugmentationDevice) GetStream() <-chan frame.PCMFrame {
	return d.sinkStream
}

func (d *AudioAugmentationDevice) Close() {
	d.shutdownOnce.Do(func() {
		close(d.sinkStream)
	})
}

// Incoming and outgoing frames share properties.
func (d *AudioAugmentationDevice) GetDeviceProperties() audiodevice.DeviceProperties {
	return d.deviceProperties
}

// --------------------------------------------------------------------------------
// AudioSinkDevice Interface

// When sourceStream is closed, the augmented stream is closed too.
func (d *AudioAugmentationDevice) SetStream(sourceStream <-chan frame.PCMFrame) {
	d.sourceStream = sourceStream
	go func() {
		for pcmFrame := range d.sourceStream {
			for _, f := range d.augmentationFunctions {
				pcmFrame = f(pcmFrame)
			}
			d.sinkStream <- pcmFrame
		}
		d.Close()
	}()
}

// --------------------------------------------------------------------------------

// 0.0 mutes. Negative gains are treated as 0.0.
func (d *AudioAugmentationDevice) SetGain(gain float32) {
	d.gain.Store(math.Float32bits(max(gain, 0)))
}

func (d *AudioAugmentationDevice) Gain() float32 {
	return math.Float32frombits(d.gain.Load())
}

// --------------------------------------------------------------------------------

// Augmentations work in place; frames on the stream are owned by whoever holds them.
type audioAugmentationFunction func(sourceFrame frame.PCMFrame) frame.PCMFrame

func (d *AudioAugmentationDevice) applyGain(sourceFrame frame.PCMFrame) frame.PCMFrame {
	gain := d.Gain()
	if gain == 1.0 {
		return sourceFrame
	}
	for i := range sourceFrame {
		sourceFrame[i] *= gain
	}
	return sourceFrame
}

// Keep samples in [-1, 1] after gain.
func clampFrame(sourceFrame frame.PCMFrame) frame.PCMFrame {
	for i, s := range sourceFrame {
		sourceFrame[i] = min(max(s, -1), 1)
	}
	return sourceFrame
}
