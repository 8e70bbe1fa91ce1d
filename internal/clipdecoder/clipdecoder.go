// Package clipdecoder turns encoded audio buffers (recorded chunks and clips)
// back into normalized PCM samples.
package clipdecoder

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"strconv"

	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/encoderdecoder"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/frame"
	"github.com/go-audio/wav"
)

var (
	ErrUnsupportedType = errors.New("unsupported audio type")
	ErrInvalidData     = errors.New("invalid audio data")
)

// Decoded audio: interleaved samples in [-1, 1] plus their format.
type Decoded struct {
	Properties audiodevice.DeviceProperties
	Samples    frame.PCMFrame
}

// Samples of one channel, de-interleaved.
func (d Decoded) Channel(channel int) frame.PCMFrame {
	numChannels := max(1, d.Properties.NumChannels)
	if numChannels == 1 {
		return d.Samples
	}
	out := make(frame.PCMFrame, 0, len(d.Samples)/numChannels)
	for i := channel; i < len(d.Samples); i += numChannels {
		out = append(out, d.Samples[i])
	}
	return out
}

type Decoder interface {
	Decode(data []byte, mimeType string) (Decoded, error)
}

// Decodes by MIME type. Supported:
//   - audio/wav, audio/wave, audio/x-wav, audio/vnd.wave (any PCM bit depth go-audio/wav reads)
//   - audio/L16 with rate and channels parameters (what the PCM16 encoder produces)
type MimeDecoder struct{}

func New() MimeDecoder {
	return MimeDecoder{}
}

func (MimeDecoder) Decode(data []byte, mimeType string) (Decoded, error) {
	mediaType, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return Decoded{}, fmt.Errorf("%w: %q: %w", ErrUnsupportedType, mimeType, err)
	}

	switch mediaType {
	case "audio/wav", "audio/wave", "audio/x-wav", "audio/vnd.wave":
		return decodeWav(data)
	case encoderdecoder.PCM16MediaType:
		return decodePCM16(data, params)
	default:
		return Decoded{}, fmt.Errorf("%w: %q", ErrUnsupportedType, mediaType)
	}
}

func decodeWav(data []byte) (Decoded, error) {
	decoder := wav.NewDecoder(bytes.NewReader(data))
	if !decoder.IsValidFile() {
		return Decoded{}, fmt.Errorf("%w: not a valid .WAV buffer", ErrInvalidData)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return Decoded{}, fmt.Errorf("%w: %w", ErrInvalidData, err)
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = int(decoder.BitDepth)
	}
	samples := make(frame.PCMFrame, len(buf.Data))
	switch bitDepth {
	case 8:
		// 8 bit .WAV samples are unsigned
		for i, v := range buf.Data {
			samples[i] = float32(v-128) / 128
		}
	default:
		scale := float32(int(1) << (bitDepth - 1))
		for i, v := range buf.Data {
			samples[i] = max(-1, min(1, float32(v)/scale))
		}
	}

	return Decoded{
		Properties: audiodevice.DeviceProperties{
			SampleRate:  int(decoder.SampleRate),
			NumChannels: int(decoder.NumChans),
		},
		Samples: samples,
	}, nil
}

func decodePCM16(data []byte, params map[string]string) (Decoded, error) {
	rate, err := strconv.Atoi(params["rate"])
	if err != nil || rate <= 0 {
		return Decoded{}, fmt.Errorf("%w: audio/L16 needs a positive rate parameter", ErrUnsupportedType)
	}
	channels := 1
	if c, ok := params["channels"]; ok {
		channels, err = strconv.Atoi(c)
		if err != nil || channels <= 0 {
			return Decoded{}, fmt.Errorf("%w: invalid channels parameter %q", ErrUnsupportedType, c)
		}
	}

	samples, err := encoderdecoder.DecodePCM16(data)
	if err != nil {
		return Decoded{}, fmt.Errorf("%w: %w", ErrInvalidData, err)
	}

	return Decoded{
		Properties: audiodevice.DeviceProperties{
			SampleRate:  rate,
			NumChannels: channels,
		},
		Samples: samples,
	}, nil
}
