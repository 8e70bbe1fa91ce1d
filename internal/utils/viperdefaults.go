package utils

import (
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/internal/audioapi"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/internal/playback"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/internal/session"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/internal/tone"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/internal/waveform"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/encoderdecoder"
	"github.com/spf13/viper"
)

// Set the viper defaults for the voice recorder.
// For use in cmd/config and in tests that need a full configuration.
func SetViperDefaults() {
	viper.SetDefault("loglevel", "info")
	viper.SetDefault("logfile", "voicerecorder.log")

	viper.SetDefault("audioapi", audioapi.APIPortAudio)
	viper.SetDefault("inputfile", "")
	viper.SetDefault("samplerate", 16000)
	viper.SetDefault("numchannels", 1)
	viper.SetDefault("framesperbuffer", 512)
	viper.SetDefault("inputgain", 1.0)
	viper.SetDefault("encoder", string(encoderdecoder.EncoderDecoderTypePCM16))
	// 0 means one chunk per recording
	viper.SetDefault("timeslice", "1s")

	viper.SetDefault("countdownfrom", session.DefaultCountdownFrom)
	viper.SetDefault("countdowninterval", session.DefaultCountdownInterval.String())
	viper.SetDefault("countdownpreferred", false)
	viper.SetDefault("beepfrequency", tone.DefaultFrequency)
	viper.SetDefault("beepduration", tone.DefaultDuration.String())

	viper.SetDefault("playbackcooldown", playback.DefaultCooldown.String())

	viper.SetDefault("waveformwidth", waveform.DefaultWidth)
	viper.SetDefault("waveformheight", waveform.DefaultHeight)
	viper.SetDefault("waveformcachesize", waveform.DefaultCacheSize)

	viper.SetDefault("prompt", session.DefaultPrompt)
}
