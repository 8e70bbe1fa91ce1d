// The PortAudio backend of audioapi. Importing this package registers it
// under audioapi.APIPortAudio.
package portaudioapi

import (
	"fmt"
	"log/slog"

	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/internal/audioapi"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/audiodevice/portaudiodevice"
	"github.com/google/uuid"
	"github.com/gordonklaus/portaudio"
)

func init() {
	audioapi.Register(audioapi.APIPortAudio, func(properties audiodevice.DeviceProperties, framesPerBuffer int, _ string) (audioapi.AudioIODeviceAPI, error) {
		return NewPortAudioApi(properties, framesPerBuffer), nil
	})
}

type PortAudioApi struct {
	logger          *slog.Logger
	properties      audiodevice.DeviceProperties
	framesPerBuffer int
}

// Devices are opened with properties and framesPerBuffer. PortAudio itself is
// initialized per device, so creating the api touches no hardware.
func NewPortAudioApi(properties audiodevice.DeviceProperties, framesPerBuffer int) *PortAudioApi {
	uuid := uuid.New()
	return &PortAudioApi{
		logger:          slog.Default().With("portaudio api uuid", uuid),
		properties:      properties,
		framesPerBuffer: framesPerBuffer,
	}
}

func (api *PortAudioApi) devices(keep func(*portaudio.DeviceInfo) int) []audioapi.AudioIODevice {
	if err := portaudio.Initialize(); err != nil {
		api.logger.Error("failed to initialize portaudio", "err", err)
		return nil
	}
	defer portaudio.Terminate()

	infos, err := portaudio.Devices()
	if err != nil {
		api.logger.Error("failed to list devices", "err", err)
		return nil
	}

	devices := make([]audioapi.AudioIODevice, 0)
	for _, d := range infos {
		numChannels := keep(d)
		if numChannels == 0 {
			continue
		}
		devices = append(devices, audioapi.AudioIODevice{
			ID:   d.Index,
			Name: d.Name,
			DeviceProperties: audiodevice.DeviceProperties{
				SampleRate:  int(d.DefaultSampleRate),
				NumChannels: numChannels,
			},
		})
	}
	return devices
}

func (api *PortAudioApi) InputDevices() []audioapi.AudioIODevice {
	return api.devices(func(d *portaudio.DeviceInfo) int { return d.MaxInputChannels })
}

func (api *PortAudioApi) OutputDevices() []audioapi.AudioIODevice {
	return api.devices(func(d *portaudio.DeviceInfo) int { return d.MaxOutputChannels })
}

func (api *PortAudioApi) InitDefaultInputDevice() (audiodevice.AudioSourceDevice, error) {
	d, err := portaudiodevice.NewPortAudioInputDevice(api.properties, api.framesPerBuffer)
	if err != nil {
		return nil, fmt.Errorf("opening default input device: %w", err)
	}
	return d, nil
}

func (api *PortAudioApi) InitDefaultOutputDevice(properties audiodevice.DeviceProperties) (audiodevice.AudioSinkDevice, error) {
	d, err := portaudiodevice.NewPortAudioOutputDevice(properties, api.framesPerBuffer)
	if err != nil {
		return nil, fmt.Errorf("opening default output device: %w", err)
	}
	return d, nil
}
