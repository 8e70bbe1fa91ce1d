package session

import (
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/internal/waveform"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/clip"
)

const (
	LabelRecord   = "Record"
	LabelReRecord = "Re-Record"

	StatusAudioRecorded = "Audio Recorded"
	StatusNoAudio       = "No Audio on File"
	StatusRecording     = "Recording in Progress..."
)

// View is what a presentation layer needs to draw the widget. It is a
// snapshot; later transitions do not change it.
type View struct {
	State              State
	Countdown          string
	CountdownPreferred bool
	Prompt             string

	Clip     *clip.RecordingClip
	Chunks   []clip.AudioChunk
	Waveform *waveform.Waveform
	Err      *ErrorRecord

	RecordEnabled bool
	StopEnabled   bool
	PlayEnabled   bool
	RecordLabel   string
	ClipStatus    string
	// Empty unless recording
	RecordingStatus string
}

func NewView(m Machine, prompt string) View {
	v := View{
		State:              m.State,
		Countdown:          m.Countdown.Display(),
		CountdownPreferred: m.CountdownPreferred,
		Prompt:             prompt,
		Clip:               m.Clip,
		Chunks:             m.Chunks,
		Waveform:           m.Waveform,
		Err:                m.Err,
		RecordEnabled:      m.CanRecord(),
		StopEnabled:        m.CanStop(),
		PlayEnabled:        m.Clip != nil && m.Clip.Size() > 0,
		RecordLabel:        LabelRecord,
		ClipStatus:         StatusNoAudio,
	}
	if m.Clip != nil {
		v.RecordLabel = LabelReRecord
		if m.Clip.Size() > 0 {
			v.ClipStatus = StatusAudioRecorded
		}
	}
	if m.State == Recording {
		v.RecordingStatus = StatusRecording
	}
	return v
}
