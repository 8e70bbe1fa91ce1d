package encoderdecoder

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/frame"
)

const (
	// RFC 2586 linear PCM: signed 16 bit samples. We store them little endian,
	// which is what every capture API we use hands us anyway.
	PCM16MediaType = "audio/l16"

	bytesPerSample = 2
)

var (
	errOddByteCount = errors.New("pcm16 data length is not a whole number of samples")
)

// Encodes normalized float32 samples as signed 16 bit little endian integers.
//
// Encoded frames concatenate cleanly: two encoded frames joined together decode
// to the two PCM frames joined together. Recorded chunks rely on that.
type PCM16EncoderDecoder struct {
	properties audiodevice.DeviceProperties
}

func NewPCM16EncoderDecoder(properties audiodevice.DeviceProperties) PCM16EncoderDecoder {
	return PCM16EncoderDecoder{properties: properties}
}

func (encdec PCM16EncoderDecoder) Encode(pcmData frame.PCMFrame) (frame.EncodedFrame, error) {
	encoded := make(frame.EncodedFrame, len(pcmData)*bytesPerSample)
	for i, sample := range pcmData {
		sample = max(-1, min(1, sample))
		binary.LittleEndian.PutUint16(encoded[i*bytesPerSample:], uint16(int16(sample*math.MaxInt16)))
	}
	return encoded, nil
}

func (encdec PCM16EncoderDecoder) Decode(encodedData frame.EncodedFrame) (frame.PCMFrame, error) {
	return DecodePCM16(encodedData)
}

func (encdec PCM16EncoderDecoder) MimeType() string {
	return PCM16MimeType(encdec.properties)
}

// The full MIME type, including the parameters needed to decode it.
func PCM16MimeType(properties audiodevice.DeviceProperties) string {
	return fmt.Sprintf("audio/L16; rate=%d; channels=%d", properties.SampleRate, properties.NumChannels)
}

// Decode signed 16 bit little endian samples to normalized float32 samples.
func DecodePCM16(encodedData []byte) (frame.PCMFrame, error) {
	if len(encodedData)%bytesPerSample != 0 {
		return nil, errOddByteCount
	}

	decoded := make(frame.PCMFrame, len(encodedData)/bytesPerSample)
	for i := range decoded {
		v := int16(binary.LittleEndian.Uint16(encodedData[i*bytesPerSample:]))
		decoded[i] = max(-1, float32(v)/math.MaxInt16)
	}
	return decoded, nil
}
