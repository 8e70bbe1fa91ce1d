package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/cmd/application"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/internal/session"
	"github.com/google/uuid"
)

var errQuit = errors.New("quit")

const helpText = `commands:
  record | r        record (with countdown if toggled on)
  countdown         record after a countdown
  now               record immediately
  stop | s          stop recording
  play | p          play the recording
  last              play the last chunk
  chunk N           play chunk N
  toggle            toggle the countdown preference
  waveform | w      draw the waveform of the recording
  status            show the current state
  devices           list audio devices
  quit | q          exit
`

// A line oriented front end for the session.
type cli struct {
	app *application.App
	in  io.Reader

	mu  sync.Mutex
	out io.Writer
}

func newCLI(app *application.App, in io.Reader, out io.Writer) *cli {
	return &cli{app: app, in: in, out: out}
}

func (c *cli) print(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprint(c.out, s)
}

// Read commands until quit, end of input, or ctx is done.
func (c *cli) run(ctx context.Context) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	select {
	case <-c.app.Session.Ready():
	case <-ctx.Done():
		return ctx.Err()
	}
	c.print(renderView(c.app.Session.View()))
	c.print(helpText)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return errQuit
			}
			if err := c.handle(ctx, line); err != nil {
				return err
			}
		}
	}
}

func (c *cli) handle(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	s := c.app.Session
	var view session.View
	var err error
	switch fields[0] {
	case "record", "r":
		view, err = s.Record(ctx)
	case "countdown":
		view, err = s.BeginRecording(ctx, true)
	case "now":
		view, err = s.BeginRecording(ctx, false)
	case "stop", "s":
		view, err = s.StopRecording(ctx)
	case "play", "p":
		view, err = s.PlayClip(ctx)
	case "last":
		view, err = s.PlayLastChunk(ctx)
	case "chunk":
		if len(fields) != 2 {
			c.print(errorStyle.Render("usage: chunk N") + "\n")
			return nil
		}
		index, convErr := strconv.Atoi(fields[1])
		if convErr != nil {
			c.print(errorStyle.Render(fmt.Sprintf("not a chunk number: %q", fields[1])) + "\n")
			return nil
		}
		view, err = s.PlayChunk(ctx, index)
	case "toggle":
		view, err = s.ToggleCountdown(ctx)
	case "status":
		view = s.View()
	case "waveform", "w":
		return c.printWaveform(ctx)
	case "devices":
		c.printDevices()
		return nil
	case "help", "?":
		c.print(helpText)
		return nil
	case "quit", "q", "exit":
		return errQuit
	default:
		c.print(errorStyle.Render(fmt.Sprintf("unknown command %q, try help", fields[0])) + "\n")
		return nil
	}
	if err != nil {
		return err
	}
	c.print(renderView(view))
	return nil
}

func (c *cli) printWaveform(ctx context.Context) error {
	view := c.app.Session.View()
	if view.Clip == nil || view.Clip.Size() == 0 {
		c.print(session.StatusNoAudio + "\n")
		return nil
	}
	w, err := c.app.Renderer.Render(ctx, view.Clip, terminalWaveformWidth, terminalWaveformRows)
	if err != nil {
		c.print(errorStyle.Render(err.Error()) + "\n")
		return nil
	}
	c.print(renderWaveform(w))
	return nil
}

func (c *cli) printDevices() {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("input devices") + "\n")
	for _, d := range c.app.InputDevices() {
		sb.WriteString(d.String())
	}
	sb.WriteString(titleStyle.Render("output devices") + "\n")
	for _, d := range c.app.OutputDevices() {
		sb.WriteString(d.String())
	}
	c.print(sb.String())
}

// Print what changes without a command: countdown ticks, sealed clips and new errors.
func (c *cli) watch(ctx context.Context) error {
	var lastCountdown string
	var lastClip uuid.UUID
	var lastErr *session.ErrorRecord
	waveformShown := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.app.Session.Changes():
		}

		v := c.app.Session.View()
		if v.Countdown != lastCountdown {
			lastCountdown = v.Countdown
			if v.Countdown != "" {
				c.print(countdownStyle.Render(v.Countdown) + "\n")
			}
		}
		if v.Clip != nil && v.Clip.ID != lastClip {
			lastClip = v.Clip.ID
			waveformShown = false
			c.print(okStyle.Render(fmt.Sprintf("%s (%d bytes)", v.ClipStatus, v.Clip.Size())) + "\n")
		}
		if v.Waveform != nil && !waveformShown {
			waveformShown = true
			c.print(dimStyle.Render("waveform ready, type waveform to see it") + "\n")
		}
		if v.Err != nil && v.Err != lastErr {
			c.print(renderError(v.Err))
		}
		lastErr = v.Err
	}
}
