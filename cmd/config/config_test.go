package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))

	assert.Equal(t, 16000, viper.GetInt("samplerate"))
	assert.Equal(t, 3, viper.GetInt("countdownfrom"))
	assert.Equal(t, time.Second, viper.GetDuration("countdowninterval"))
	assert.Equal(t, time.Second, viper.GetDuration("playbackcooldown"))
	assert.Equal(t, "portaudio", viper.GetString("audioapi"))
}

func TestLoadConfigOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := writeConfig(t, `
loglevel: debug
samplerate: 48000
numchannels: 2
countdownpreferred: true
countdowninterval: 500ms
timeslice: 0s
prompt: Say something nice.
`)
	LoadConfig(path)

	assert.Equal(t, "debug", viper.GetString("loglevel"))
	assert.Equal(t, 48000, viper.GetInt("samplerate"))
	assert.Equal(t, 2, viper.GetInt("numchannels"))
	assert.True(t, viper.GetBool("countdownpreferred"))
	assert.Equal(t, 500*time.Millisecond, viper.GetDuration("countdowninterval"))
	assert.Zero(t, viper.GetDuration("timeslice"))
	assert.Equal(t, "Say something nice.", viper.GetString("prompt"))
}

func TestLoadConfigPanicsOnInvalidValues(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := writeConfig(t, "samplerate: 0\n")
	assert.Panics(t, func() { LoadConfig(path) })
}

func TestLoadConfigPanicsOnMalformedFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := writeConfig(t, "samplerate: [\n")
	assert.Panics(t, func() { LoadConfig(path) })
}

func TestValidateFileApiNeedsInputFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	viper.Set("audioapi", "file")
	assert.ErrorIs(t, Validate(), errInvalidConfig)

	viper.Set("inputfile", "fixture.wav")
	assert.NoError(t, Validate())
}
