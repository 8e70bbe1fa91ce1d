//go:build !noportaudio

package main

import (
	// Registers the "portaudio" audio api.
	_ "github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/internal/audioapi/portaudioapi"
)
