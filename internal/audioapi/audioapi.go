package audioapi

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/audiodevice"
)

var (
	errNoDefaultDevice = errors.New("no default device available")
	ErrUnknownAPI      = errors.New("unknown audio api")
)

type AudioIODevice struct {
	// The ID of the device, as the underlying API numbers it.
	ID int

	// A human-readable name for the device, if one exists. Not canonical.
	Name string

	// The preferred sample rate and channel count of this device.
	DeviceProperties audiodevice.DeviceProperties
}

func (device AudioIODevice) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "ID:          %d\n", device.ID)
	fmt.Fprintf(&sb, "Name:        %s\n", device.Name)
	fmt.Fprintf(&sb, "SampleRate:  %d\n", device.DeviceProperties.SampleRate)
	fmt.Fprintf(&sb, "NumChannels: %d\n", device.DeviceProperties.NumChannels)
	return sb.String()
}

// An API over the host's audio hardware, or something standing in for it.
//
// Only the default devices are ever opened; listing exists so a user can see
// what the default is.
type AudioIODeviceAPI interface {
	InputDevices() []AudioIODevice
	InitDefaultInputDevice() (audiodevice.AudioSourceDevice, error)

	OutputDevices() []AudioIODevice
	InitDefaultOutputDevice(properties audiodevice.DeviceProperties) (audiodevice.AudioSinkDevice, error)
}

const (
	APIPortAudio = "portaudio"
	APIFile      = "file"
	APIDummy     = "dummy"
)

// Opens a backend. inputFile is only meaningful to the file api.
type Constructor func(properties audiodevice.DeviceProperties, framesPerBuffer int, inputFile string) (AudioIODeviceAPI, error)

var (
	constructorsMu sync.RWMutex
	constructors   = map[string]Constructor{
		APIFile: func(properties audiodevice.DeviceProperties, framesPerBuffer int, inputFile string) (AudioIODeviceAPI, error) {
			return NewFileApi(inputFile, properties, framesPerBuffer), nil
		},
		APIDummy: func(properties audiodevice.DeviceProperties, _ int, _ string) (AudioIODeviceAPI, error) {
			return NewDummyAudioIODeviceAPI(properties), nil
		},
	}
)

// Make a backend available to New under name. Hardware backends live in their
// own packages (e.g. portaudioapi) and register themselves when imported.
// Panics if name is already taken.
func Register(name string, constructor Constructor) {
	constructorsMu.Lock()
	defer constructorsMu.Unlock()
	if _, taken := constructors[name]; taken {
		panic(fmt.Sprintf("audio api %q registered twice", name))
	}
	constructors[name] = constructor
}

// Open an AudioIODeviceAPI by name. inputFile is only used by the file api.
func New(name string, properties audiodevice.DeviceProperties, framesPerBuffer int, inputFile string) (AudioIODeviceAPI, error) {
	constructorsMu.RLock()
	constructor, ok := constructors[name]
	constructorsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAPI, name)
	}
	return constructor(properties, framesPerBuffer, inputFile)
}

// A SinkFactory opening the api's default output device.
func SinkFactory(api AudioIODeviceAPI) audiodevice.SinkFactory {
	return api.InitDefaultOutputDevice
}
