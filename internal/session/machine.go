package session

import (
	"slices"
	"strconv"

	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/internal/waveform"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/clip"
	"github.com/google/uuid"
)

const (
	DefaultCountdownFrom = 3

	// Shown in place of the countdown number once recording begins.
	SpeakMarker = "ready to speak"
)

type State int

const (
	Idle State = iota
	CountingDown
	Recording
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case CountingDown:
		return "counting down"
	case Recording:
		return "recording"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Countdown is the pre-roll indicator. The zero value shows nothing.
type Countdown struct {
	Remaining int
	Speak     bool
}

func (c Countdown) Display() string {
	if c.Speak {
		return SpeakMarker
	}
	if c.Remaining > 0 {
		return strconv.Itoa(c.Remaining)
	}
	return ""
}

// --------------------------------------------------------------------------------
// Events

// Event is an input to the Machine: a user command, a recorder notification or a timer firing.
type Event interface {
	isEvent()
}

type (
	// The microphone was acquired and the recorder is ready.
	Acquired struct{}
	// The microphone could not be acquired.
	AcquireFailed struct{ Err error }

	BeginRecording struct{ WithCountdown bool }
	// Begin recording, counting down if the user prefers it.
	Record          struct{}
	StopRecording   struct{}
	ToggleCountdown struct{}
	CountdownTick   struct{ Generation uint64 }

	ChunkAvailable struct{ Chunk clip.AudioChunk }
	// The recorder has delivered every chunk of the recording. ClipID names the clip about to be sealed.
	CaptureStopped struct {
		ClipID   uuid.UUID
		MimeType string
	}
	CaptureStartFailed struct{ Err error }
	CaptureFailed      struct{ Err error }

	WaveformRendered struct {
		ClipID   uuid.UUID
		Waveform *waveform.Waveform
		Err      error
	}

	PlayRequested struct {
		Mode  PlayMode
		Index int
	}
)

func (Acquired) isEvent()           {}
func (AcquireFailed) isEvent()      {}
func (BeginRecording) isEvent()     {}
func (Record) isEvent()             {}
func (StopRecording) isEvent()      {}
func (ToggleCountdown) isEvent()    {}
func (CountdownTick) isEvent()      {}
func (ChunkAvailable) isEvent()     {}
func (CaptureStopped) isEvent()     {}
func (CaptureStartFailed) isEvent() {}
func (CaptureFailed) isEvent()      {}
func (WaveformRendered) isEvent()   {}
func (PlayRequested) isEvent()      {}

type PlayMode int

const (
	PlayClip PlayMode = iota
	PlayLastChunk
	PlayChunk
)

// --------------------------------------------------------------------------------
// Effects

// Effect is work the Machine asks its owner to carry out after a transition.
type Effect interface {
	isEffect()
}

type (
	StartCapture   struct{}
	StopCapture    struct{}
	Beep           struct{ Remaining int }
	ScheduleTick   struct{ Generation uint64 }
	RenderWaveform struct{ Clip *clip.RecordingClip }
	Play           struct{ Chunk clip.AudioChunk }
)

func (StartCapture) isEffect()   {}
func (StopCapture) isEffect()    {}
func (Beep) isEffect()           {}
func (ScheduleTick) isEffect()   {}
func (RenderWaveform) isEffect() {}
func (Play) isEffect()           {}

// --------------------------------------------------------------------------------
// Machine

// Machine is the recording session state. It is a value: Apply returns the
// next state and leaves the receiver untouched, so a snapshot can be handed
// out without copying.
type Machine struct {
	State              State
	RecorderReady      bool
	CountdownPreferred bool
	Countdown          Countdown

	// The last sealed recording. Kept through re-recording until the next seal.
	Clip *clip.RecordingClip
	// The chunks Clip was made from, in arrival order.
	Chunks   []clip.AudioChunk
	Waveform *waveform.Waveform
	Err      *ErrorRecord

	countdownFrom       int
	countdownGeneration uint64
	// Where a failed capture start returns to.
	resumeState State
	// Stop has been requested but the recorder has not yet delivered its final chunk.
	sealing bool
	pending []clip.AudioChunk
}

func NewMachine(countdownFrom int, countdownPreferred bool) Machine {
	return Machine{
		State:              Idle,
		CountdownPreferred: countdownPreferred,
		countdownFrom:      countdownFrom,
	}
}

// A recording is underway, counting down, or waiting on its final chunk.
func (m Machine) Busy() bool {
	return m.State == CountingDown || m.State == Recording || m.sealing
}

func (m Machine) CanRecord() bool {
	return m.RecorderReady && !m.Busy()
}

func (m Machine) CanStop() bool {
	return m.State == Recording && !m.sealing
}

func (m Machine) Apply(ev Event) (Machine, []Effect) {
	switch ev := ev.(type) {
	case Acquired:
		m.RecorderReady = true
		m.Err = nil
		return m, nil

	case AcquireFailed:
		m.RecorderReady = false
		m.Err = acquisitionError(ev.Err)
		return m, nil

	case Record:
		return m.Apply(BeginRecording{WithCountdown: m.CountdownPreferred})

	case BeginRecording:
		if !m.CanRecord() {
			return m, nil
		}
		m.resumeState = m.State
		if ev.WithCountdown && m.countdownFrom > 0 {
			m.State = CountingDown
			m.countdownGeneration++
			m.Countdown = Countdown{Remaining: m.countdownFrom}
			return m, []Effect{
				Beep{Remaining: m.countdownFrom},
				ScheduleTick{Generation: m.countdownGeneration},
			}
		}
		m.Countdown = Countdown{}
		return m.startCapture()

	case CountdownTick:
		if m.State != CountingDown || ev.Generation != m.countdownGeneration {
			return m, nil
		}
		m.Countdown.Remaining--
		if m.Countdown.Remaining > 0 {
			return m, []Effect{
				Beep{Remaining: m.Countdown.Remaining},
				ScheduleTick{Generation: m.countdownGeneration},
			}
		}
		m.Countdown = Countdown{Speak: true}
		return m.startCapture()

	case StopRecording:
		if !m.CanStop() {
			return m, nil
		}
		m.State = Stopped
		m.sealing = true
		m.Countdown = Countdown{}
		return m, []Effect{StopCapture{}}

	case ChunkAvailable:
		if m.State != Recording && !m.sealing {
			return m, nil
		}
		if ev.Chunk.Size() == 0 {
			return m, nil
		}
		m.pending = append(slices.Clip(m.pending), ev.Chunk)
		return m, nil

	case CaptureStopped:
		// The recorder can stop on its own when the source goes away.
		if m.State != Recording && !m.sealing {
			return m, nil
		}
		return m.seal(ev.ClipID, ev.MimeType)

	case CaptureStartFailed:
		if m.State != Recording || m.sealing {
			return m, nil
		}
		m.State = m.resumeState
		m.Countdown = Countdown{}
		m.pending = nil
		m.Err = newErrorRecord(ErrorCaptureStartFailed, ev.Err)
		return m, nil

	case CaptureFailed:
		m.Err = newErrorRecord(ErrorCaptureFailed, ev.Err)
		return m, nil

	case WaveformRendered:
		if m.Clip == nil || m.Clip.ID != ev.ClipID {
			return m, nil
		}
		if ev.Err != nil {
			m.Waveform = nil
			m.Err = newErrorRecord(ErrorDecodeFailed, ev.Err)
			return m, nil
		}
		m.Waveform = ev.Waveform
		return m, nil

	case PlayRequested:
		chunk, ok := m.playable(ev.Mode, ev.Index)
		if !ok {
			return m, nil
		}
		return m, []Effect{Play{Chunk: chunk}}

	case ToggleCountdown:
		m.CountdownPreferred = !m.CountdownPreferred
		return m, nil
	}
	return m, nil
}

func (m Machine) startCapture() (Machine, []Effect) {
	m.State = Recording
	m.pending = nil
	return m, []Effect{StartCapture{}}
}

func (m Machine) seal(id uuid.UUID, mimeType string) (Machine, []Effect) {
	m.Clip = clip.New(id, mimeType, m.pending)
	m.Chunks = slices.Clone(m.pending)
	m.pending = nil
	m.sealing = false
	m.State = Stopped
	m.Countdown = Countdown{}
	m.Waveform = nil
	return m, []Effect{RenderWaveform{Clip: m.Clip}}
}

func (m Machine) playable(mode PlayMode, index int) (clip.AudioChunk, bool) {
	switch mode {
	case PlayClip:
		if m.Clip == nil {
			return clip.AudioChunk{}, false
		}
		return m.Clip.AsChunk(), true
	case PlayLastChunk:
		if len(m.Chunks) == 0 {
			return clip.AudioChunk{}, false
		}
		return m.Chunks[len(m.Chunks)-1], true
	case PlayChunk:
		if index < 0 || index >= len(m.Chunks) {
			return clip.AudioChunk{}, false
		}
		return m.Chunks[index], true
	}
	return clip.AudioChunk{}, false
}
