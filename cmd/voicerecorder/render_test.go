package main

import (
	"errors"
	"strings"
	"testing"

	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/internal/session"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/internal/waveform"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/audiodevice"
	"github.com/stretchr/testify/assert"
)

func TestAsciiWaveformSilenceIsOneRow(t *testing.T) {
	lines := asciiWaveform(make([]waveform.Column, 5), 9)
	for r, line := range lines {
		if r == 4 {
			assert.Equal(t, strings.Repeat("█", 5), line)
		} else {
			assert.Equal(t, strings.Repeat(" ", 5), line)
		}
	}
}

func TestAsciiWaveformFullScaleFillsColumn(t *testing.T) {
	columns := []waveform.Column{{Min: -1, Max: 1}, {Min: 0.5, Max: 0.9}}
	lines := asciiWaveform(columns, 4)
	for _, line := range lines {
		assert.Equal(t, '█', []rune(line)[0])
	}
	assert.Equal(t, '█', []rune(lines[0])[1])
	assert.Equal(t, ' ', []rune(lines[3])[1])
}

func TestRenderViewPermissionDenied(t *testing.T) {
	m, _ := session.NewMachine(session.DefaultCountdownFrom, false).Apply(session.AcquireFailed{Err: audiodevice.ErrPermissionDenied})
	out := renderView(session.NewView(m, session.DefaultPrompt))

	assert.Contains(t, out, session.DefaultPrompt)
	assert.Contains(t, out, "Microphone access was denied")
	assert.Contains(t, out, "have enabled microphone access")
	assert.Contains(t, out, session.StatusNoAudio)
}

func TestRenderViewOtherError(t *testing.T) {
	m, _ := session.NewMachine(session.DefaultCountdownFrom, false).Apply(session.AcquireFailed{Err: errors.New("device busy")})
	out := renderView(session.NewView(m, ""))
	assert.Contains(t, out, "device busy")
	assert.NotContains(t, out, "Please make sure you")
}
