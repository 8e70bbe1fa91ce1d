package session

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/internal/waveform"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/clip"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMimeType = "audio/L16; rate=8000; channels=1"

func chunkOfSize(n int, fill byte) clip.AudioChunk {
	data := make([]byte, n)
	for i := range data {
		data[i] = fill
	}
	return clip.AudioChunk{Data: data, MimeType: testMimeType}
}

func readyMachine() Machine {
	m, _ := NewMachine(DefaultCountdownFrom, false).Apply(Acquired{})
	return m
}

// Drive m through a full recording of chunks and return the sealed machine.
func record(t *testing.T, m Machine, chunks ...clip.AudioChunk) Machine {
	t.Helper()
	m, effects := m.Apply(BeginRecording{})
	require.Equal(t, []Effect{StartCapture{}}, effects)
	for _, c := range chunks {
		m, _ = m.Apply(ChunkAvailable{Chunk: c})
	}
	m, effects = m.Apply(StopRecording{})
	require.Equal(t, []Effect{StopCapture{}}, effects)
	m, effects = m.Apply(CaptureStopped{ClipID: uuid.New(), MimeType: testMimeType})
	require.Len(t, effects, 1)
	return m
}

func TestInitialState(t *testing.T) {
	m := NewMachine(DefaultCountdownFrom, true)
	assert.Equal(t, Idle, m.State)
	assert.False(t, m.RecorderReady)
	assert.True(t, m.CountdownPreferred)
	assert.Nil(t, m.Clip)
	assert.Empty(t, m.Countdown.Display())
}

func TestClipIsConcatenationOfNonEmptyChunks(t *testing.T) {
	m := record(t, readyMachine(), chunkOfSize(100, 1), chunkOfSize(0, 0), chunkOfSize(50, 2))

	require.NotNil(t, m.Clip)
	assert.Equal(t, Stopped, m.State)
	assert.Equal(t, 150, m.Clip.Size())
	assert.Equal(t, testMimeType, m.Clip.MimeType)
	require.Len(t, m.Chunks, 2)
	assert.Equal(t, byte(1), m.Clip.Data[99])
	assert.Equal(t, byte(2), m.Clip.Data[100])
}

func TestEmptyRecordingStillSealsClip(t *testing.T) {
	m := record(t, readyMachine())
	require.NotNil(t, m.Clip)
	assert.Zero(t, m.Clip.Size())
	assert.Empty(t, m.Chunks)
}

func TestSealEmitsRenderForNewClip(t *testing.T) {
	m := readyMachine()
	m, _ = m.Apply(BeginRecording{})
	m, _ = m.Apply(ChunkAvailable{Chunk: chunkOfSize(10, 1)})
	m, _ = m.Apply(StopRecording{})
	id := uuid.New()
	m, effects := m.Apply(CaptureStopped{ClipID: id, MimeType: testMimeType})

	require.Len(t, effects, 1)
	render, ok := effects[0].(RenderWaveform)
	require.True(t, ok)
	assert.Same(t, m.Clip, render.Clip)
	assert.Equal(t, id, m.Clip.ID)
}

func TestChunksDeliveredBetweenStopAndSealAreKept(t *testing.T) {
	m := readyMachine()
	m, _ = m.Apply(BeginRecording{})
	m, _ = m.Apply(ChunkAvailable{Chunk: chunkOfSize(10, 1)})
	m, _ = m.Apply(StopRecording{})
	assert.Equal(t, Stopped, m.State)

	// final flush from the recorder
	m, _ = m.Apply(ChunkAvailable{Chunk: chunkOfSize(5, 2)})
	m, _ = m.Apply(CaptureStopped{ClipID: uuid.New(), MimeType: testMimeType})
	assert.Equal(t, 15, m.Clip.Size())
}

func TestStopIsIdempotent(t *testing.T) {
	m := record(t, readyMachine(), chunkOfSize(10, 1))
	before := m.Clip

	m, effects := m.Apply(StopRecording{})
	assert.Empty(t, effects)
	m, effects = m.Apply(StopRecording{})
	assert.Empty(t, effects)
	assert.Equal(t, Stopped, m.State)
	assert.Same(t, before, m.Clip)
}

func TestStopOutsideRecordingIsNoop(t *testing.T) {
	for _, withCountdown := range []bool{false, true} {
		t.Run(fmt.Sprintf("countdown=%v", withCountdown), func(t *testing.T) {
			m := readyMachine()
			if withCountdown {
				m, _ = m.Apply(BeginRecording{WithCountdown: true})
				require.Equal(t, CountingDown, m.State)
			}
			next, effects := m.Apply(StopRecording{})
			assert.Empty(t, effects)
			assert.Equal(t, m.State, next.State)
		})
	}
}

func TestBeginGuard(t *testing.T) {
	t.Run("recorder not ready", func(t *testing.T) {
		m := NewMachine(DefaultCountdownFrom, false)
		m, effects := m.Apply(BeginRecording{})
		assert.Empty(t, effects)
		assert.Equal(t, Idle, m.State)
	})

	t.Run("already recording", func(t *testing.T) {
		m, _ := readyMachine().Apply(BeginRecording{})
		_, effects := m.Apply(BeginRecording{})
		assert.Empty(t, effects)
	})

	t.Run("counting down", func(t *testing.T) {
		m, _ := readyMachine().Apply(BeginRecording{WithCountdown: true})
		_, effects := m.Apply(BeginRecording{})
		assert.Empty(t, effects)
	})

	t.Run("waiting for final chunk", func(t *testing.T) {
		m, _ := readyMachine().Apply(BeginRecording{})
		m, _ = m.Apply(StopRecording{})
		assert.False(t, m.CanRecord())
		_, effects := m.Apply(BeginRecording{})
		assert.Empty(t, effects)
	})
}

func TestCountdownSequence(t *testing.T) {
	m, effects := readyMachine().Apply(BeginRecording{WithCountdown: true})
	assert.Equal(t, CountingDown, m.State)
	assert.Equal(t, "3", m.Countdown.Display())
	assert.Equal(t, []Effect{Beep{Remaining: 3}, ScheduleTick{Generation: 1}}, effects)

	beeps := 1
	starts := 0
	var displays []string
	for range 3 {
		m, effects = m.Apply(CountdownTick{Generation: 1})
		displays = append(displays, m.Countdown.Display())
		for _, e := range effects {
			switch e.(type) {
			case Beep:
				beeps++
			case StartCapture:
				starts++
			}
		}
	}

	assert.Equal(t, []string{"2", "1", SpeakMarker}, displays)
	assert.Equal(t, 3, beeps)
	assert.Equal(t, 1, starts)
	assert.Equal(t, Recording, m.State)

	// a late tick does nothing
	_, effects = m.Apply(CountdownTick{Generation: 1})
	assert.Empty(t, effects)
}

func TestCountdownIgnoresStaleGeneration(t *testing.T) {
	m, _ := readyMachine().Apply(BeginRecording{WithCountdown: true})
	_, effects := m.Apply(CountdownTick{Generation: 99})
	assert.Empty(t, effects)
}

func TestSpeakMarkerClearedOnStop(t *testing.T) {
	m, _ := readyMachine().Apply(BeginRecording{WithCountdown: true})
	for range 3 {
		m, _ = m.Apply(CountdownTick{Generation: 1})
	}
	require.Equal(t, SpeakMarker, m.Countdown.Display())

	m, _ = m.Apply(StopRecording{})
	assert.Empty(t, m.Countdown.Display())
}

func TestRecordHonoursCountdownPreference(t *testing.T) {
	m := readyMachine()
	m, _ = m.Apply(ToggleCountdown{})
	require.True(t, m.CountdownPreferred)

	m, effects := m.Apply(Record{})
	assert.Equal(t, CountingDown, m.State)
	assert.Contains(t, effects, Effect(Beep{Remaining: 3}))

	m, _ = readyMachine().Apply(Record{})
	assert.Equal(t, Recording, m.State)
}

func TestAcquisitionDenied(t *testing.T) {
	for _, err := range []error{
		audiodevice.ErrPermissionDenied,
		fmt.Errorf("opening microphone: %w", audiodevice.ErrDeviceUnavailable),
	} {
		m, _ := NewMachine(DefaultCountdownFrom, false).Apply(AcquireFailed{Err: err})
		require.NotNil(t, m.Err)
		assert.Equal(t, ErrorAcquisitionDenied, m.Err.Kind)
		assert.Equal(t, ClassificationPermissionDenied, m.Err.Classification())
		assert.NotEmpty(t, m.Err.Remediation())
		assert.False(t, m.CanRecord())
	}
}

func TestAcquisitionFailedOther(t *testing.T) {
	m, _ := NewMachine(DefaultCountdownFrom, false).Apply(AcquireFailed{Err: errors.New("device busy")})
	require.NotNil(t, m.Err)
	assert.Equal(t, ClassificationOther, m.Err.Classification())
	assert.Empty(t, m.Err.Remediation())
	assert.Equal(t, "device busy", m.Err.Message)
}

func TestSuccessfulAcquireClearsError(t *testing.T) {
	m, _ := NewMachine(DefaultCountdownFrom, false).Apply(AcquireFailed{Err: errors.New("busy")})
	m, _ = m.Apply(Acquired{})
	assert.Nil(t, m.Err)
	assert.True(t, m.CanRecord())
}

func TestCaptureStartFailureReturnsToPriorState(t *testing.T) {
	startErr := errors.New("stream refused to start")

	m, _ := readyMachine().Apply(BeginRecording{})
	m, _ = m.Apply(CaptureStartFailed{Err: startErr})
	assert.Equal(t, Idle, m.State)
	require.NotNil(t, m.Err)
	assert.Equal(t, ErrorCaptureStartFailed, m.Err.Kind)
	assert.ErrorIs(t, m.Err.Err, startErr)

	m = record(t, readyMachine(), chunkOfSize(4, 1))
	m, _ = m.Apply(BeginRecording{})
	m, _ = m.Apply(CaptureStartFailed{Err: startErr})
	assert.Equal(t, Stopped, m.State)
	assert.Equal(t, 4, m.Clip.Size())
	assert.True(t, m.CanRecord())
}

func TestCaptureFailureKeepsState(t *testing.T) {
	m, _ := readyMachine().Apply(BeginRecording{})
	m, _ = m.Apply(CaptureFailed{Err: errors.New("overrun")})
	assert.Equal(t, Recording, m.State)
	assert.Equal(t, ErrorCaptureFailed, m.Err.Kind)
}

func TestLatestErrorWins(t *testing.T) {
	m, _ := readyMachine().Apply(CaptureFailed{Err: errors.New("first")})
	m, _ = m.Apply(CaptureFailed{Err: errors.New("second")})
	assert.Equal(t, "second", m.Err.Message)
}

func TestReRecordKeepsOldClipUntilSealed(t *testing.T) {
	m := record(t, readyMachine(), chunkOfSize(10, 1))
	old := m.Clip

	m, _ = m.Apply(BeginRecording{})
	m, _ = m.Apply(ChunkAvailable{Chunk: chunkOfSize(20, 2)})
	assert.Same(t, old, m.Clip)
	_, effects := m.Apply(PlayRequested{Mode: PlayClip})
	assert.Equal(t, []Effect{Play{Chunk: old.AsChunk()}}, effects)

	m, _ = m.Apply(StopRecording{})
	assert.Same(t, old, m.Clip)

	m, _ = m.Apply(CaptureStopped{ClipID: uuid.New(), MimeType: testMimeType})
	assert.NotSame(t, old, m.Clip)
	assert.Equal(t, 20, m.Clip.Size())
	assert.Equal(t, 10, old.Size())
}

func TestStaleWaveformDiscarded(t *testing.T) {
	m := record(t, readyMachine(), chunkOfSize(10, 1))
	first := m.Clip.ID
	m = record(t, m, chunkOfSize(10, 2))

	stale := &waveform.Waveform{ClipID: first}
	m, _ = m.Apply(WaveformRendered{ClipID: first, Waveform: stale})
	assert.Nil(t, m.Waveform)

	current := &waveform.Waveform{ClipID: m.Clip.ID}
	m, _ = m.Apply(WaveformRendered{ClipID: m.Clip.ID, Waveform: current})
	assert.Same(t, current, m.Waveform)

	// a late failure for the old clip must not clobber anything either
	m, _ = m.Apply(WaveformRendered{ClipID: first, Err: errors.New("late")})
	assert.Same(t, current, m.Waveform)
	assert.Nil(t, m.Err)
}

func TestWaveformDecodeFailure(t *testing.T) {
	m := record(t, readyMachine(), chunkOfSize(10, 1))
	m, _ = m.Apply(WaveformRendered{ClipID: m.Clip.ID, Err: errors.New("bad data")})
	require.NotNil(t, m.Err)
	assert.Equal(t, ErrorDecodeFailed, m.Err.Kind)
	assert.Equal(t, ClassificationOther, m.Err.Classification())
	assert.Equal(t, Stopped, m.State)
	assert.Nil(t, m.Waveform)
}

func TestPlayRequests(t *testing.T) {
	_, effects := readyMachine().Apply(PlayRequested{Mode: PlayClip})
	assert.Empty(t, effects, "nothing recorded yet")

	m := record(t, readyMachine(), chunkOfSize(3, 1), chunkOfSize(4, 2))

	_, effects = m.Apply(PlayRequested{Mode: PlayLastChunk})
	assert.Equal(t, []Effect{Play{Chunk: m.Chunks[1]}}, effects)

	_, effects = m.Apply(PlayRequested{Mode: PlayChunk, Index: 0})
	assert.Equal(t, []Effect{Play{Chunk: m.Chunks[0]}}, effects)

	_, effects = m.Apply(PlayRequested{Mode: PlayChunk, Index: 2})
	assert.Empty(t, effects)
	_, effects = m.Apply(PlayRequested{Mode: PlayChunk, Index: -1})
	assert.Empty(t, effects)
}

func TestStrayChunksIgnored(t *testing.T) {
	m := record(t, readyMachine(), chunkOfSize(3, 1))
	m, _ = m.Apply(ChunkAvailable{Chunk: chunkOfSize(7, 9)})
	m, effects := m.Apply(CaptureStopped{ClipID: uuid.New(), MimeType: testMimeType})
	assert.Empty(t, effects)
	assert.Equal(t, 3, m.Clip.Size())
}

func TestRecorderStoppingOnItsOwnSealsClip(t *testing.T) {
	m, _ := readyMachine().Apply(BeginRecording{})
	m, _ = m.Apply(ChunkAvailable{Chunk: chunkOfSize(8, 1)})
	m, _ = m.Apply(CaptureFailed{Err: errors.New("source closed")})
	m, _ = m.Apply(CaptureStopped{ClipID: uuid.New(), MimeType: testMimeType})

	assert.Equal(t, Stopped, m.State)
	assert.Equal(t, 8, m.Clip.Size())
	assert.True(t, m.CanRecord())
}

func TestApplyDoesNotMutateReceiver(t *testing.T) {
	m, _ := readyMachine().Apply(BeginRecording{})
	m, _ = m.Apply(ChunkAvailable{Chunk: chunkOfSize(1, 1)})
	snapshot := m
	_, _ = m.Apply(ChunkAvailable{Chunk: chunkOfSize(2, 2)})
	next, _ := snapshot.Apply(StopRecording{})
	next, _ = next.Apply(CaptureStopped{ClipID: uuid.New(), MimeType: testMimeType})
	assert.Equal(t, 1, next.Clip.Size())
}
