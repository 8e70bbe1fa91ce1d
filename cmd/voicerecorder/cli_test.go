package main

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/cmd/application"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/internal/audioapi"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/internal/session"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/encoderdecoder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bytes.Buffer guarded for the watch and run goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestApp(t *testing.T) *application.App {
	t.Helper()
	properties := audiodevice.DeviceProperties{SampleRate: 8000, NumChannels: 1}
	app, err := application.NewApp(audioapi.NewDummyAudioIODeviceAPI(properties), application.Settings{
		Properties:  properties,
		InputGain:   1,
		Encoder:     encoderdecoder.EncoderDecoderTypePCM16,
		BeepFreq:    440,
		BeepLength:  10 * time.Millisecond,
		Cooldown:    time.Second,
		CacheSize:   2,
		SessionOpts: session.DefaultOptions(),
	}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return app
}

func TestCLIRunsCommandsUntilQuit(t *testing.T) {
	app := newTestApp(t)
	out := &syncBuffer{}
	in := strings.NewReader("toggle\nstatus\nchunk x\nbogus\ndevices\nquit\nstatus\n")

	err := newCLI(app, in, out).run(context.Background())
	assert.ErrorIs(t, err, errQuit)

	text := out.String()
	assert.Contains(t, text, "countdown: on")
	assert.Contains(t, text, `not a chunk number: "x"`)
	assert.Contains(t, text, `unknown command "bogus"`)
	assert.Contains(t, text, "DummyInput")
	assert.Contains(t, text, "[Record]")
}

func TestCLIEndOfInputQuits(t *testing.T) {
	app := newTestApp(t)
	err := newCLI(app, strings.NewReader(""), &syncBuffer{}).run(context.Background())
	assert.ErrorIs(t, err, errQuit)
}

func TestCLIRecordAndStop(t *testing.T) {
	app := newTestApp(t)
	out := &syncBuffer{}
	c := newCLI(app, strings.NewReader(""), out)
	ctx := context.Background()

	<-app.Session.Ready()
	require.NoError(t, c.handle(ctx, "now"))
	assert.Contains(t, out.String(), session.StatusRecording)

	require.NoError(t, c.handle(ctx, "stop"))
	require.Eventually(t, func() bool {
		return app.Session.View().Clip != nil
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, c.handle(ctx, "waveform"))
	assert.Contains(t, out.String(), session.StatusNoAudio)
	assert.ErrorIs(t, c.handle(ctx, "q"), errQuit)
}
