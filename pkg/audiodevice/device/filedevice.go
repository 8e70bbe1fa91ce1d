package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/frame"
	"github.com/go-audio/wav"
	"github.com/google/uuid"
)

var (
	errInvalidWavFile       = errors.New("not a valid .WAV file")
	errNonPositiveFrameSize = errors.New("non-positive samples per frame")
	errEmptyWavFile         = errors.New(".WAV file holds no samples")
)

// --------------------------------------------------------------------------------
// FileAudioInputDevice

// An AudioSourceDevice that stands in for a microphone by replaying a .WAV file
// in a loop, one frame every frameDuration, until closed.
//
// The whole file is decoded up front, so a broken file fails at construction,
// the same place a missing microphone would.
type FileAudioInputDevice struct {
	logger *slog.Logger
	uuid   uuid.UUID

	properties      audiodevice.DeviceProperties
	samples         frame.PCMFrame
	frameDuration   time.Duration
	samplesPerFrame int
	sinkStream      chan frame.PCMFrame

	ctx           context.Context
	ctxCancelFunc context.CancelFunc
	shutdownOnce  sync.Once
}

// Make a new FileAudioInputDevice from a .WAV file (on the audioFilePath).
//
// The sample rate and channel count are determined by the file,
// the duration between frames by the frameDuration parameter.
func NewFileAudioInputDevice(
	audioFilePath string,
	frameDuration time.Duration,
) (*FileAudioInputDevice, error) {
	uuid := uuid.New()
	logger := slog.Default().With(
		"file input device uuid", uuid,
	)

	f, err := os.Open(audioFilePath)
	if err != nil {
		logger.Error(
			"could not open audio file",
			"audioFile", audioFilePath,
			"err", err,
		)
		return nil, fmt.Errorf("%w: %w", audiodevice.ErrDeviceUnavailable, err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		logger.Error(
			"could not decode audio file",
			"audioFile", audioFilePath,
			"err", decoder.Err(),
		)
		return nil, errInvalidWavFile
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		logger.Error(
			"could not get full PCM buffer from audio file",
			"audioFile", audioFilePath,
			"err", err,
		)
		return nil, err
	}
	if len(buf.Data) == 0 {
		return nil, errEmptyWavFile
	}

	samplesPerFrame := int(float64(decoder.NumChans) * float64(decoder.SampleRate) *
		float64(frameDuration) / float64(time.Second))
	if samplesPerFrame <= 0 {
		logger.Error(
			"non-positive samples per frame during opening of file audio input",
			"audioFile", audioFilePath,
			"sampleRate", decoder.SampleRate,
			"channels", decoder.NumChans,
			"samplesPerFrame", samplesPerFrame,
		)
		return nil, errNonPositiveFrameSize
	}

	samples := make(frame.PCMFrame, len(buf.Data))
	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float32(int(1) << (bitDepth - 1))
	for i, v := range buf.Data {
		samples[i] = float32(v) / scale
	}

	logger.Debug(
		"loaded audio file",
		"audioFile", audioFilePath,
		"sampleRate", decoder.SampleRate,
		"channels", decoder.NumChans,
		"samplesPerFrame", samplesPerFrame,
	)

	ctx, ctxCancelFunc := context.WithCancel(context.Background())
	d := &FileAudioInputDevice{
		logger: logger,
		uuid:   uuid,
		properties: audiodevice.DeviceProperties{
			SampleRate:  int(decoder.SampleRate),
			NumChannels: int(decoder.NumChans),
		},
		samples:         samples,
		frameDuration:   frameDuration,
		samplesPerFrame: samplesPerFrame,
		sinkStream:      make(chan frame.PCMFrame),
		ctx:             ctx,
		ctxCancelFunc:   ctxCancelFunc,
	}
	go d.play()

	return d, nil
}

func (d *FileAudioInputDevice) play() {
	defer close(d.sinkStream)

	ticker := time.NewTicker(d.frameDuration)
	defer ticker.Stop()

	frameStart := 0
	for {
		frameEnd := min(frameStart+d.samplesPerFrame, len(d.samples))
		pcmFrame := make(frame.PCMFrame, frameEnd-frameStart)
		copy(pcmFrame, d.samples[frameStart:frameEnd])

		select {
		case <-ticker.C:
		case <-d.ctx.Done():
			return
		}
		select {
		case d.sinkStream <- pcmFrame:
		case <-d.ctx.Done():
			return
		}

		frameStart = frameEnd
		if frameStart >= len(d.samples) {
			d.logger.Debug("reached end of file, looping")
			frameStart = 0
		}
	}
}

func (d *FileAudioInputDevice) Close() {
	d.logger.Debug("shutdown called")
	d.shutdownOnce.Do(func() {
		d.ctxCancelFunc()
	})
}

func (d *FileAudioInputDevice) GetStream() <-chan frame.PCMFrame {
	return d.sinkStream
}

func (d *FileAudioInputDevice) GetDeviceProperties() audiodevice.DeviceProperties {
	return d.properties
}
