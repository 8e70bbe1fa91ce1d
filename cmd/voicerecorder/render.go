package main

import (
	"fmt"
	"strings"

	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/internal/session"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/internal/waveform"
	"github.com/charmbracelet/lipgloss"
)

const (
	terminalWaveformWidth = 64
	terminalWaveformRows  = 9
)

var (
	nord3  = lipgloss.Color("#4C566A")
	nord8  = lipgloss.Color("#88C0D0")
	nord11 = lipgloss.Color("#BF616A")
	nord13 = lipgloss.Color("#EBCB8B")
	nord14 = lipgloss.Color("#A3BE8C")

	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(nord8)
	dimStyle       = lipgloss.NewStyle().Foreground(nord3)
	countdownStyle = lipgloss.NewStyle().Bold(true).Foreground(nord13)
	okStyle        = lipgloss.NewStyle().Foreground(nord14)
	errorStyle     = lipgloss.NewStyle().Foreground(nord11)
	waveformStyle  = lipgloss.NewStyle().Foreground(nord8)
)

func button(label string, enabled bool) string {
	if enabled {
		return okStyle.Render("[" + label + "]")
	}
	return dimStyle.Render("[" + label + "]")
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func renderView(v session.View) string {
	var sb strings.Builder

	fmt.Fprintln(&sb, titleStyle.Render(v.Prompt))
	fmt.Fprintf(&sb, "state: %s   countdown: %s\n", v.State, onOff(v.CountdownPreferred))
	if v.Countdown != "" {
		fmt.Fprintln(&sb, countdownStyle.Render(v.Countdown))
	}
	if v.RecordingStatus != "" {
		fmt.Fprintln(&sb, countdownStyle.Render(v.RecordingStatus))
	}

	clipStatus := v.ClipStatus
	if v.Clip != nil && v.Clip.Size() > 0 {
		clipStatus = fmt.Sprintf("%s (%d bytes, %d chunks)", clipStatus, v.Clip.Size(), len(v.Chunks))
	}
	fmt.Fprintln(&sb, clipStatus)

	fmt.Fprintf(&sb, "%s %s %s\n",
		button(v.RecordLabel, v.RecordEnabled),
		button("Stop", v.StopEnabled),
		button("Play", v.PlayEnabled),
	)

	if v.Err != nil {
		fmt.Fprint(&sb, renderError(v.Err))
	}
	return sb.String()
}

func renderError(e *session.ErrorRecord) string {
	var sb strings.Builder
	if e.Classification() == session.ClassificationPermissionDenied {
		fmt.Fprintln(&sb, errorStyle.Render("Microphone access was denied: "+e.Message))
		fmt.Fprintln(&sb, "Please make sure you:")
		for _, step := range e.Remediation() {
			fmt.Fprintln(&sb, "  - "+step)
		}
		return sb.String()
	}
	fmt.Fprintln(&sb, errorStyle.Render(fmt.Sprintf("%s: %s", e.Kind, e.Message)))
	return sb.String()
}

// Draw columns as rows of block characters. A cell is filled when the
// column's amplitude range reaches into the cell's band, so every column
// shows at least one cell.
func asciiWaveform(columns []waveform.Column, rows int) []string {
	lines := make([]string, rows)
	band := 2.0 / float64(rows)
	for r := range rows {
		top := 1 - float64(r)*band
		bottom := top - band

		var sb strings.Builder
		for _, c := range columns {
			if float64(c.Min) <= top && float64(c.Max) >= bottom {
				sb.WriteRune('█')
			} else {
				sb.WriteRune(' ')
			}
		}
		lines[r] = sb.String()
	}
	return lines
}

func renderWaveform(w *waveform.Waveform) string {
	lines := asciiWaveform(w.Columns, terminalWaveformRows)
	return waveformStyle.Render(strings.Join(lines, "\n")) + "\n"
}
