package audiodevice

import (
	"errors"

	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/frame"
)

var (
	// The host refused access to the audio device (e.g. the user or a policy denied it).
	ErrPermissionDenied = errors.New("audio device access denied")

	// No usable audio device exists, or the device cannot be opened right now.
	ErrDeviceUnavailable = errors.New("audio device unavailable")
)

type DeviceProperties struct {
	SampleRate  int
	NumChannels int
}

// Number of interleaved samples in one second of audio.
func (p DeviceProperties) SamplesPerSecond() int {
	return p.SampleRate * p.NumChannels
}

// Interface for audio source devices, e.g. microphones
//
// Source devices need only define some way to get data out of the device,
// which returns a channel (stream) of PCMFrames
type AudioSourceDevice interface {
	// Get the stream of this audio device.
	//
	// Raw audio data (as PCMFrames) will arrive on the returned channel.
	// The channel is closed once the device is closed.
	GetStream() <-chan frame.PCMFrame

	// Meaningfully close the AudioSourceDevice, including any cleanup of
	// memory and closing of channels.
	//
	// It is assumed that once closed, this device will transmit no more information.
	Close()

	GetDeviceProperties() DeviceProperties
}

// Interface for audio sink devices, e.g. speakers
//
// Sink devices need only define some way to consume data,
// taken as a channel (stream) of PCMFrames
type AudioSinkDevice interface {
	// Set the source stream of this audio device.
	//
	// Raw audio data (as PCMFrames) will arrive on the given channel.
	//
	// When this stream is closed, the device drains what it has buffered
	// and then cleans itself up. There is no separate Close.
	SetStream(sourceStream <-chan frame.PCMFrame)

	GetDeviceProperties() DeviceProperties
}

// Opens a fresh sink device for one playback.
//
// Playback and countdown tones are fire-and-forget, so every sound gets
// its own sink which is torn down when its stream is closed.
type SinkFactory func(properties DeviceProperties) (AudioSinkDevice, error)
