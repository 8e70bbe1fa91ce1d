package clipdecoder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/encoderdecoder"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/frame"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Write 16 bit samples to a .WAV file and return its bytes.
func wavBytes(t *testing.T, sampleRate int, numChannels int, samples []int) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	encoder := wav.NewEncoder(f, sampleRate, 16, numChannels, 1)
	require.NoError(t, encoder.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{SampleRate: sampleRate, NumChannels: numChannels},
		Data:           samples,
		SourceBitDepth: 16,
	}))
	require.NoError(t, encoder.Close())
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func TestDecodeWav(t *testing.T) {
	data := wavBytes(t, 8000, 2, []int{16384, -16384, 0, 32767})

	decoded, err := New().Decode(data, "audio/wav")
	require.NoError(t, err)

	assert.Equal(t, audiodevice.DeviceProperties{SampleRate: 8000, NumChannels: 2}, decoded.Properties)
	require.Len(t, decoded.Samples, 4)
	assert.InDelta(t, 0.5, decoded.Samples[0], 1e-3)
	assert.InDelta(t, -0.5, decoded.Samples[1], 1e-3)
	assert.InDelta(t, 1.0, decoded.Samples[3], 1e-3)

	left := decoded.Channel(0)
	require.Len(t, left, 2)
	assert.InDelta(t, 0.5, left[0], 1e-3)
	assert.InDelta(t, 0, left[1], 1e-3)
}

func TestDecodeWavRejectsGarbage(t *testing.T) {
	_, err := New().Decode([]byte("definitely not RIFF"), "audio/x-wav")
	assert.ErrorIs(t, err, ErrInvalidData)
}

func TestDecodePCM16(t *testing.T) {
	properties := audiodevice.DeviceProperties{SampleRate: 48000, NumChannels: 1}
	encdec := encoderdecoder.NewPCM16EncoderDecoder(properties)
	encoded, err := encdec.Encode(frame.PCMFrame{0, 0.5, -0.5, 1, -1})
	require.NoError(t, err)

	decoded, err := New().Decode(encoded, encdec.MimeType())
	require.NoError(t, err)

	assert.Equal(t, properties, decoded.Properties)
	require.Len(t, decoded.Samples, 5)
	for i, want := range []float32{0, 0.5, -0.5, 1, -1} {
		assert.InDelta(t, want, decoded.Samples[i], 1e-4)
	}
}

func TestDecodePCM16NeedsRate(t *testing.T) {
	_, err := New().Decode([]byte{0, 0}, "audio/L16")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestDecodePCM16OddLength(t *testing.T) {
	_, err := New().Decode([]byte{0, 0, 0}, "audio/L16; rate=8000")
	assert.ErrorIs(t, err, ErrInvalidData)
}

func TestDecodeUnsupportedType(t *testing.T) {
	_, err := New().Decode([]byte{1, 2, 3}, "audio/webm;codecs=opus")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = New().Decode([]byte{1, 2, 3}, "")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}
