package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/internal/audioapi"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/internal/clipdecoder"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/internal/playback"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/internal/recorder"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/internal/session"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/internal/tone"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/internal/waveform"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/encoderdecoder"
	"github.com/jonboulle/clockwork"
)

// Everything NewApp needs to know, usually read from viper by the caller.
type Settings struct {
	Properties  audiodevice.DeviceProperties
	InputGain   float32
	Encoder     encoderdecoder.EncoderDecoderTypeEnum
	Timeslice   time.Duration
	BeepFreq    float64
	BeepLength  time.Duration
	Cooldown    time.Duration
	CacheSize   int
	SessionOpts session.Options
}

// The main application representation.
//
// Holds the audio IO api (PortAudio, a file, or a dummy), and the recording
// session built on top of it.
//
// Audio Data Flow (input path)
// default input device -> [Microphone: conversion -> gain] -> ChunkRecorder -> Session
//
// Audio Data Flow (output path)
// Session clip / chunk -> Playback Controller (debounce) -> DevicePlayer -> conversion -> default output device
// Session countdown -> ToneBeeper -> default output device
type App struct {
	logger *slog.Logger

	// The audio device API for the host machine.
	audioIODeviceAPI audioapi.AudioIODeviceAPI

	// Decodes and caches waveforms of finished clips. Shared with the CLI so
	// terminal-sized renders hit the same cache.
	Renderer *waveform.Renderer

	Session *session.Controller
}

// --------------------------------------------------------------------------------
// Initialization of App

// Create a new application on top of audioIODeviceAPI. No device is opened
// until Run.
func NewApp(audioIODeviceAPI audioapi.AudioIODeviceAPI, settings Settings, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	encoder, err := encoderdecoder.NewEncoderDecoder(settings.Encoder, settings.Properties)
	if err != nil {
		return nil, fmt.Errorf("creating %q encoder: %w", settings.Encoder, err)
	}

	decoder := clipdecoder.New()
	renderer, err := waveform.NewRenderer(decoder, settings.CacheSize, logger)
	if err != nil {
		return nil, err
	}

	clk := clockwork.NewRealClock()
	newSink := audioapi.SinkFactory(audioIODeviceAPI)

	microphone := audioapi.NewMicrophone(audioIODeviceAPI, settings.Properties, settings.InputGain, logger)
	newCapture := func(source audiodevice.AudioSourceDevice) session.CaptureDevice {
		return recorder.NewChunkRecorder(source, encoder, clk, settings.Timeslice, logger)
	}
	player := playback.NewDevicePlayer(decoder, newSink, settings.Properties, logger)
	beeper := tone.NewToneBeeper(newSink, settings.Properties, settings.BeepFreq, settings.BeepLength, logger)

	controller := session.NewController(
		microphone,
		newCapture,
		renderer,
		playback.NewController(player, clk, settings.Cooldown, logger),
		beeper,
		clk,
		settings.SessionOpts,
		logger,
	)

	return &App{
		logger:           logger,
		audioIODeviceAPI: audioIODeviceAPI,
		Renderer:         renderer,
		Session:          controller,
	}, nil
}

// Run the session until ctx is done. Devices are released before returning.
func (app *App) Run(ctx context.Context) error {
	return app.Session.Run(ctx)
}

func (app *App) InputDevices() []audioapi.AudioIODevice {
	return app.audioIODeviceAPI.InputDevices()
}

func (app *App) OutputDevices() []audioapi.AudioIODevice {
	return app.audioIODeviceAPI.OutputDevices()
}
