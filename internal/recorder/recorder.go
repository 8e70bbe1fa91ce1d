package recorder

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/clip"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/encoderdecoder"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const eventBufferSize = 64

var (
	// Start while recording, or Stop while not recording.
	ErrInvalidState = errors.New("recorder is in an invalid state for this operation")
	ErrClosed       = errors.New("recorder is closed")
	ErrSourceClosed = errors.New("audio source closed while recording")
)

type EventType int

const (
	// A chunk of encoded audio is available. The chunk may be empty.
	EventChunkAvailable EventType = iota
	// Recording stopped. Every chunk of the recording has been delivered before this event.
	EventStopped
	// Something went wrong while recording. Recording continues unless followed by EventStopped.
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventChunkAvailable:
		return "chunk available"
	case EventStopped:
		return "stopped"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

type Event struct {
	Type  EventType
	Chunk clip.AudioChunk
	Err   error
}

// A ChunkRecorder turns the PCM stream of an AudioSourceDevice into encoded chunks,
// one every timeslice while recording, plus a final chunk on stop.
//
// Start and Stop never block: they record the request and wake the recording
// goroutine, which applies it before looking at the next frame. Frames arriving
// while not recording are discarded.
type ChunkRecorder struct {
	logger *slog.Logger
	uuid   uuid.UUID

	source    audiodevice.AudioSourceDevice
	encoder   encoderdecoder.EncoderDecoder
	clock     clockwork.Clock
	timeslice time.Duration

	mu            sync.Mutex
	wantRecording bool
	// Set by Start until the goroutine sees it, so a Start quickly followed
	// by Stop still produces a (short) recording and its Stopped event.
	startRequested bool
	closed         bool

	wake   chan struct{}
	tick   chan uint64
	events chan Event

	ctx           context.Context
	ctxCancelFunc context.CancelFunc
	done          chan struct{}
}

// Create a new ChunkRecorder reading from source. A non-positive timeslice
// means chunks are only produced on Stop.
func NewChunkRecorder(
	source audiodevice.AudioSourceDevice,
	encoder encoderdecoder.EncoderDecoder,
	clk clockwork.Clock,
	timeslice time.Duration,
	logger *slog.Logger,
) *ChunkRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	uuid := uuid.New()

	ctx, ctxCancelFunc := context.WithCancel(context.Background())
	r := &ChunkRecorder{
		logger:        logger.With("recorder uuid", uuid),
		uuid:          uuid,
		source:        source,
		encoder:       encoder,
		clock:         clk,
		timeslice:     timeslice,
		wake:          make(chan struct{}, 1),
		tick:          make(chan uint64, 1),
		events:        make(chan Event, eventBufferSize),
		ctx:           ctx,
		ctxCancelFunc: ctxCancelFunc,
		done:          make(chan struct{}),
	}
	go r.run()

	return r
}

// Events are delivered in order. The channel is closed once the recorder is closed.
func (r *ChunkRecorder) Events() <-chan Event {
	return r.events
}

func (r *ChunkRecorder) MimeType() string {
	return r.encoder.MimeType()
}

func (r *ChunkRecorder) Start() error {
	return r.request(true)
}

func (r *ChunkRecorder) Stop() error {
	return r.request(false)
}

func (r *ChunkRecorder) request(record bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	if r.wantRecording == record {
		return ErrInvalidState
	}
	r.wantRecording = record
	if record {
		r.startRequested = true
	}

	select {
	case r.wake <- struct{}{}:
	default:
	}
	return nil
}

// Close stops the recording goroutine without flushing. The source is not closed.
func (r *ChunkRecorder) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.ctxCancelFunc()
	<-r.done
}

// --------------------------------------------------------------------------------
// Recording goroutine

type recordingState struct {
	recording    bool
	pending      []byte
	generation   uint64
	tickTimer    clockwork.Timer
	encodeFailed bool
}

func (r *ChunkRecorder) run() {
	defer close(r.done)
	defer close(r.events)
	defer func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
	}()

	var state recordingState
	stream := r.source.GetStream()

	for {
		select {
		case <-r.ctx.Done():
			if state.tickTimer != nil {
				state.tickTimer.Stop()
			}
			return

		case <-r.wake:
			if !r.applyRequest(&state) {
				return
			}

		case generation := <-r.tick:
			if !r.applyRequest(&state) {
				return
			}
			if !state.recording || generation != state.generation {
				continue
			}
			if !r.emit(Event{Type: EventChunkAvailable, Chunk: r.takeChunk(&state)}) {
				return
			}
			r.scheduleTick(&state)

		case pcmFrame, ok := <-stream:
			if !r.applyRequest(&state) {
				return
			}
			if !ok {
				if state.recording {
					r.logger.Error("audio source closed while recording")
					r.finishRecording(&state, ErrSourceClosed)
				}
				return
			}
			if !state.recording {
				continue
			}

			encoded, err := r.encoder.Encode(pcmFrame)
			if err != nil {
				if !state.encodeFailed {
					state.encodeFailed = true
					r.logger.Error("failed to encode frame", "err", err)
					if !r.emit(Event{Type: EventError, Err: err}) {
						return
					}
				}
				continue
			}
			state.pending = append(state.pending, encoded...)
		}
	}
}

// Bring the actual recording state in line with the last Start/Stop request.
// Returns false if the recorder is shutting down.
func (r *ChunkRecorder) applyRequest(state *recordingState) bool {
	r.mu.Lock()
	wantRecording := r.wantRecording
	startRequested := r.startRequested
	r.startRequested = false
	r.mu.Unlock()

	if startRequested && !state.recording {
		state.recording = true
		state.pending = nil
		state.encodeFailed = false
		state.generation++
		r.scheduleTick(state)
		r.logger.Debug("recording started")
	}
	if !wantRecording && state.recording {
		return r.finishRecording(state, nil)
	}
	return true
}

// Flush the final chunk and report the stop, preceded by err if there is one.
func (r *ChunkRecorder) finishRecording(state *recordingState, err error) bool {
	state.recording = false
	state.generation++
	if state.tickTimer != nil {
		state.tickTimer.Stop()
		state.tickTimer = nil
	}

	if err != nil && !r.emit(Event{Type: EventError, Err: err}) {
		return false
	}
	if !r.emit(Event{Type: EventChunkAvailable, Chunk: r.takeChunk(state)}) {
		return false
	}
	r.logger.Debug("recording stopped")
	return r.emit(Event{Type: EventStopped})
}

func (r *ChunkRecorder) takeChunk(state *recordingState) clip.AudioChunk {
	chunk := clip.AudioChunk{Data: state.pending, MimeType: r.encoder.MimeType()}
	state.pending = nil
	return chunk
}

func (r *ChunkRecorder) scheduleTick(state *recordingState) {
	if r.timeslice <= 0 {
		return
	}
	generation := state.generation
	state.tickTimer = r.clock.AfterFunc(r.timeslice, func() {
		select {
		case r.tick <- generation:
		case <-r.ctx.Done():
		}
	})
}

func (r *ChunkRecorder) emit(ev Event) bool {
	select {
	case r.events <- ev:
		return true
	case <-r.ctx.Done():
		return false
	}
}
