package audioapi

import (
	"fmt"
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/audiodevice/device"
)

// An API for machines without audio hardware: the "microphone" replays a .WAV
// file and the speaker swallows what it is given.
type FileApi struct {
	inputFile     string
	properties    audiodevice.DeviceProperties
	frameDuration time.Duration
}

func NewFileApi(inputFile string, properties audiodevice.DeviceProperties, framesPerBuffer int) *FileApi {
	frameDuration := 20 * time.Millisecond
	if properties.SampleRate > 0 && framesPerBuffer > 0 {
		frameDuration = time.Duration(framesPerBuffer) * time.Second / time.Duration(properties.SampleRate)
	}
	return &FileApi{
		inputFile:     inputFile,
		properties:    properties,
		frameDuration: frameDuration,
	}
}

func (api *FileApi) InputDevices() []AudioIODevice {
	return []AudioIODevice{{ID: 0, Name: api.inputFile}}
}

// The device has the file's format, not the configured one.
func (api *FileApi) InitDefaultInputDevice() (audiodevice.AudioSourceDevice, error) {
	if api.inputFile == "" {
		return nil, fmt.Errorf("%w: %w", audiodevice.ErrDeviceUnavailable, errNoDefaultDevice)
	}
	d, err := device.NewFileAudioInputDevice(api.inputFile, api.frameDuration)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (api *FileApi) OutputDevices() []AudioIODevice {
	return []AudioIODevice{{ID: 0, Name: "Discard", DeviceProperties: api.properties}}
}

func (api *FileApi) InitDefaultOutputDevice(properties audiodevice.DeviceProperties) (audiodevice.AudioSinkDevice, error) {
	return device.NewDummyAudioSinkDevice(properties), nil
}
