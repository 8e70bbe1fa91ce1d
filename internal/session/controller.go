package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/internal/recorder"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/internal/tone"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/internal/waveform"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/clip"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const (
	DefaultCountdownInterval = time.Second
	DefaultPrompt            = "The quick brown fox jumps over the lazy dog."

	requestBufferSize = 64
)

var ErrNotRunning = errors.New("session is not running")

// Microphone hands out a live PCM stream. Acquire is called once per session.
type Microphone interface {
	Acquire(ctx context.Context) (audiodevice.AudioSourceDevice, error)
}

type MicrophoneFunc func(ctx context.Context) (audiodevice.AudioSourceDevice, error)

func (f MicrophoneFunc) Acquire(ctx context.Context) (audiodevice.AudioSourceDevice, error) {
	return f(ctx)
}

// CaptureDevice records chunks from an acquired source. recorder.ChunkRecorder is the usual one.
type CaptureDevice interface {
	Start() error
	Stop() error
	Events() <-chan recorder.Event
	MimeType() string
	Close()
}

type CaptureFactory func(source audiodevice.AudioSourceDevice) CaptureDevice

type WaveformRenderer interface {
	Render(ctx context.Context, c *clip.RecordingClip, width int, height int) (*waveform.Waveform, error)
}

// Trigger is satisfied by playback.Controller.
type PlaybackTrigger interface {
	Trigger(ctx context.Context, chunk clip.AudioChunk) (bool, error)
}

type Options struct {
	CountdownFrom      int
	CountdownInterval  time.Duration
	CountdownPreferred bool
	WaveformWidth      int
	WaveformHeight     int
	Prompt             string
}

func DefaultOptions() Options {
	return Options{
		CountdownFrom:     DefaultCountdownFrom,
		CountdownInterval: DefaultCountdownInterval,
		WaveformWidth:     waveform.DefaultWidth,
		WaveformHeight:    waveform.DefaultHeight,
		Prompt:            DefaultPrompt,
	}
}

type request struct {
	event Event
	done  chan struct{}
}

// Controller owns a recording session. Every transition happens on the
// goroutine running Run; commands are queued to it and wait for their
// transition to be applied, so a command and its effects are never
// interleaved with another event.
type Controller struct {
	logger *slog.Logger
	uuid   uuid.UUID

	microphone Microphone
	newCapture CaptureFactory
	renderer   WaveformRenderer
	playback   PlaybackTrigger
	beeper     tone.Beeper
	clock      clockwork.Clock
	options    Options

	requests chan request
	changes  chan struct{}
	running  chan struct{}
	stopped  chan struct{}
	runOnce  sync.Once

	mu      sync.RWMutex
	machine Machine

	// Owned by the Run goroutine
	source  audiodevice.AudioSourceDevice
	capture CaptureDevice
}

func NewController(
	microphone Microphone,
	newCapture CaptureFactory,
	renderer WaveformRenderer,
	playback PlaybackTrigger,
	beeper tone.Beeper,
	clk clockwork.Clock,
	options Options,
	logger *slog.Logger,
) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	uuid := uuid.New()

	return &Controller{
		logger:     logger.With("session uuid", uuid),
		uuid:       uuid,
		microphone: microphone,
		newCapture: newCapture,
		renderer:   renderer,
		playback:   playback,
		beeper:     beeper,
		clock:      clk,
		options:    options,
		requests:   make(chan request, requestBufferSize),
		changes:    make(chan struct{}, 1),
		running:    make(chan struct{}),
		stopped:    make(chan struct{}),
		machine:    NewMachine(options.CountdownFrom, options.CountdownPreferred),
	}
}

// Run acquires the microphone and processes events until ctx is done.
// The microphone and recorder are released on return. Run may only be called once.
func (c *Controller) Run(ctx context.Context) error {
	started := false
	c.runOnce.Do(func() { started = true })
	if !started {
		return errors.New("session already ran")
	}
	defer close(c.stopped)
	defer c.release()

	c.acquire(ctx)
	close(c.running)

	var captureEvents <-chan recorder.Event
	if c.capture != nil {
		captureEvents = c.capture.Events()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case req := <-c.requests:
			c.dispatch(ctx, req.event)
			if req.done != nil {
				close(req.done)
			}

		case ev, ok := <-captureEvents:
			if !ok {
				c.logger.Warn("recorder event stream closed")
				captureEvents = nil
				continue
			}
			c.dispatch(ctx, c.translate(ev))
		}
	}
}

// Ready is closed once the microphone has been acquired, or has failed to be.
func (c *Controller) Ready() <-chan struct{} {
	return c.running
}

func (c *Controller) acquire(ctx context.Context) {
	source, err := c.microphone.Acquire(ctx)
	if err != nil {
		c.logger.Error("failed to acquire microphone", "err", err)
		c.dispatch(ctx, AcquireFailed{Err: err})
		return
	}
	c.source = source
	c.capture = c.newCapture(source)
	c.logger.Info("microphone acquired", "properties", source.GetDeviceProperties())
	c.dispatch(ctx, Acquired{})
}

func (c *Controller) release() {
	if c.capture != nil {
		c.capture.Close()
	}
	if c.source != nil {
		c.source.Close()
	}
	c.logger.Info("session released")
}

func (c *Controller) translate(ev recorder.Event) Event {
	switch ev.Type {
	case recorder.EventChunkAvailable:
		return ChunkAvailable{Chunk: ev.Chunk}
	case recorder.EventStopped:
		return CaptureStopped{ClipID: uuid.New(), MimeType: c.capture.MimeType()}
	default:
		c.logger.Error("recorder reported an error", "err", ev.Err)
		return CaptureFailed{Err: ev.Err}
	}
}

// Apply ev and everything that follows from it before returning.
func (c *Controller) dispatch(ctx context.Context, ev Event) {
	queue := []Event{ev}
	for len(queue) > 0 {
		ev := queue[0]
		queue = queue[1:]

		c.mu.Lock()
		before := c.machine.State
		next, effects := c.machine.Apply(ev)
		c.machine = next
		c.mu.Unlock()

		if before != next.State {
			c.logger.Debug("session transition", "from", before, "to", next.State, "event", ev)
		}
		for _, effect := range effects {
			if followup := c.execute(ctx, effect); followup != nil {
				queue = append(queue, followup)
			}
		}
	}
	c.notify()
}

func (c *Controller) execute(ctx context.Context, effect Effect) Event {
	switch effect := effect.(type) {
	case StartCapture:
		if err := c.capture.Start(); err != nil {
			c.logger.Error("failed to start capture", "err", err)
			return CaptureStartFailed{Err: err}
		}

	case StopCapture:
		if err := c.capture.Stop(); err != nil {
			// Nothing more will arrive, seal what we have.
			c.logger.Error("failed to stop capture", "err", err)
			return CaptureStopped{ClipID: uuid.New(), MimeType: c.capture.MimeType()}
		}

	case Beep:
		c.logger.Debug("countdown", "remaining", effect.Remaining)
		if err := c.beeper.Beep(ctx); err != nil {
			c.logger.Warn("countdown beep failed", "err", err)
		}

	case ScheduleTick:
		c.clock.AfterFunc(c.options.CountdownInterval, func() {
			c.submit(ctx, CountdownTick{Generation: effect.Generation})
		})

	case RenderWaveform:
		go func() {
			w, err := c.renderer.Render(ctx, effect.Clip, c.options.WaveformWidth, c.options.WaveformHeight)
			if err != nil {
				c.logger.Error("failed to render waveform", "clip", effect.Clip.ID, "err", err)
			}
			c.submit(ctx, WaveformRendered{ClipID: effect.Clip.ID, Waveform: w, Err: err})
		}()

	case Play:
		if _, err := c.playback.Trigger(ctx, effect.Chunk); err != nil {
			c.logger.Error("playback failed", "err", err)
		}
	}
	return nil
}

// Changes receives a value after events have been applied. Signals coalesce;
// read View to see the current state.
func (c *Controller) Changes() <-chan struct{} {
	return c.changes
}

func (c *Controller) notify() {
	select {
	case c.changes <- struct{}{}:
	default:
	}
}

// Queue ev without waiting for it to be applied.
func (c *Controller) submit(ctx context.Context, ev Event) {
	select {
	case c.requests <- request{event: ev}:
	case <-c.stopped:
	case <-ctx.Done():
	}
}

// Do queues ev and waits until it and its effects have been applied.
func (c *Controller) Do(ctx context.Context, ev Event) (View, error) {
	done := make(chan struct{})
	select {
	case c.requests <- request{event: ev, done: done}:
	case <-c.stopped:
		return View{}, ErrNotRunning
	case <-ctx.Done():
		return View{}, ctx.Err()
	}

	select {
	case <-done:
	case <-c.stopped:
		return View{}, ErrNotRunning
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
	return c.View(), nil
}

func (c *Controller) BeginRecording(ctx context.Context, withCountdown bool) (View, error) {
	return c.Do(ctx, BeginRecording{WithCountdown: withCountdown})
}

// Record begins recording with the countdown if the user prefers one.
func (c *Controller) Record(ctx context.Context) (View, error) {
	return c.Do(ctx, Record{})
}

func (c *Controller) StopRecording(ctx context.Context) (View, error) {
	return c.Do(ctx, StopRecording{})
}

func (c *Controller) PlayClip(ctx context.Context) (View, error) {
	return c.Do(ctx, PlayRequested{Mode: PlayClip})
}

func (c *Controller) PlayLastChunk(ctx context.Context) (View, error) {
	return c.Do(ctx, PlayRequested{Mode: PlayLastChunk})
}

func (c *Controller) PlayChunk(ctx context.Context, index int) (View, error) {
	return c.Do(ctx, PlayRequested{Mode: PlayChunk, Index: index})
}

func (c *Controller) ToggleCountdown(ctx context.Context) (View, error) {
	return c.Do(ctx, ToggleCountdown{})
}

func (c *Controller) View() View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return NewView(c.machine, c.options.Prompt)
}
