package device

import (
	"sync"

	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/frame"
)

// An AudioSourceDevice whose frames are pushed by hand.
//
// A minimal example of the architecture of an AudioSourceDevice, useful in testing.
type DummyAudioSourceDevice struct {
	properties   audiodevice.DeviceProperties
	shutdownOnce sync.Once
	sinkStream   chan frame.PCMFrame
}

func NewDummyAudioSourceDevice(properties audiodevice.DeviceProperties) *DummyAudioSourceDevice {
	return &DummyAudioSourceDevice{
		properties: properties,
		sinkStream: make(chan frame.PCMFrame),
	}
}

// Push blocks until the frame is taken off the stream.
func (d *DummyAudioSourceDevice) Push(pcmFrame frame.PCMFrame) {
	d.sinkStream <- pcmFrame
}

func (d *DummyAudioSourceDevice) Close() {
	d.shutdownOnce.Do(func() {
		close(d.sinkStream)
	})
}

func (d *DummyAudioSourceDevice) GetStream() <-chan frame.PCMFrame {
	return d.sinkStream
}

func (d *DummyAudioSourceDevice) GetDeviceProperties() audiodevice.DeviceProperties {
	return d.properties
}

// An AudioSinkDevice that keeps every frame it consumes.
//
// A minimal example of the architecture of an AudioSinkDevice, useful in testing.
type DummyAudioSinkDevice struct {
	properties audiodevice.DeviceProperties

	mu       sync.Mutex
	received frame.PCMFrame
	done     chan struct{}
}

func NewDummyAudioSinkDevice(properties audiodevice.DeviceProperties) *DummyAudioSinkDevice {
	return &DummyAudioSinkDevice{
		properties: properties,
		done:       make(chan struct{}),
	}
}

func (d *DummyAudioSinkDevice) SetStream(sourceStream <-chan frame.PCMFrame) {
	go func() {
		defer close(d.done)
		for pcmFrame := range sourceStream {
			d.mu.Lock()
			d.received = append(d.received, pcmFrame...)
			d.mu.Unlock()
		}
	}()
}

// Done is closed once the source stream has been closed and drained.
func (d *DummyAudioSinkDevice) Done() <-chan struct{} {
	return d.done
}

// Samples returns a copy of everything consumed so far.
func (d *DummyAudioSinkDevice) Samples() frame.PCMFrame {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append(frame.PCMFrame(nil), d.received...)
}

func (d *DummyAudioSinkDevice) GetDeviceProperties() audiodevice.DeviceProperties {
	return d.properties
}
