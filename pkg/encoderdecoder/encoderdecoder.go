package encoderdecoder

import (
	"errors"

	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/frame"
)

type EncoderDecoderTypeEnum string

var (
	EncoderDecoderTypeNotImplemented EncoderDecoderTypeEnum = "not implemented"
	EncoderDecoderTypeNull           EncoderDecoderTypeEnum = "null"
	EncoderDecoderTypePCM16          EncoderDecoderTypeEnum = "pcm16"
)

var (
	errEncoderDecoderTypeNotImplemented = errors.New("specified encoderdecoder type is not implemented")
)

// Audio encoder/decoder interface.
// Used to encode raw PCM Frames to an encoded frame,
// and decode those frames back to PCM frames
type EncoderDecoder interface {
	Encode(pcmData frame.PCMFrame) (frame.EncodedFrame, error)
	Decode(encodedData frame.EncodedFrame) (frame.PCMFrame, error)

	// The MIME type of the encoded frames, with enough parameters
	// to decode a frame on its own (e.g. "audio/L16; rate=48000; channels=1").
	MimeType() string
}

// Create a new encoder/decoder of the given type for audio with the given properties.
// If the type has no implementation, a nil EncoderDecoder and an error is returned.
func NewEncoderDecoder(
	encoderdecoderID EncoderDecoderTypeEnum,
	properties audiodevice.DeviceProperties,
) (EncoderDecoder, error) {
	switch encoderdecoderID {
	case EncoderDecoderTypeNull:
		return NullEncoderDecoder{}, nil
	case EncoderDecoderTypePCM16:
		return NewPCM16EncoderDecoder(properties), nil
	case EncoderDecoderTypeNotImplemented:
		return nil, errEncoderDecoderTypeNotImplemented
	default:
		return nil, errEncoderDecoderTypeNotImplemented
	}
}
