package application

import (
	"context"
	"testing"
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/internal/audioapi"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/internal/session"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/encoderdecoder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSettings() Settings {
	return Settings{
		Properties:  audiodevice.DeviceProperties{SampleRate: 8000, NumChannels: 1},
		InputGain:   1,
		Encoder:     encoderdecoder.EncoderDecoderTypePCM16,
		BeepFreq:    440,
		BeepLength:  10 * time.Millisecond,
		Cooldown:    time.Second,
		CacheSize:   2,
		SessionOpts: session.DefaultOptions(),
	}
}

func TestAppRunsOnDummyApi(t *testing.T) {
	settings := testSettings()
	app, err := NewApp(audioapi.NewDummyAudioIODeviceAPI(settings.Properties), settings, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	<-app.Session.Ready()

	view, err := app.Session.BeginRecording(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, session.Recording, view.State)

	view, err = app.Session.StopRecording(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.Stopped, view.State)

	require.Eventually(t, func() bool {
		return app.Session.View().Clip != nil
	}, 2*time.Second, 5*time.Millisecond)
	assert.Zero(t, app.Session.View().Clip.Size())

	assert.Len(t, app.InputDevices(), 1)
	assert.Len(t, app.OutputDevices(), 1)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestNewAppRejectsUnknownEncoder(t *testing.T) {
	settings := testSettings()
	settings.Encoder = "mp3"
	_, err := NewApp(audioapi.NewDummyAudioIODeviceAPI(settings.Properties), settings, nil)
	assert.Error(t, err)
}
