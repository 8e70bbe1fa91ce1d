package encoderdecoder

import (
	"errors"

	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/frame"
)

var (
	errNullEncoderDecoderUsed error = errors.New("null encoder decoder used")
)

// An encoder decoder that does NO ENCODING/DECODING
// Instead, an error is *always* returned.
//
// Handing one to a recorder makes every frame fail to encode,
// which is how tests exercise the recorder's error path.
type NullEncoderDecoder struct{}

func (encdec NullEncoderDecoder) Encode(_ frame.PCMFrame) (frame.EncodedFrame, error) {
	return nil, errNullEncoderDecoderUsed
}

func (encdec NullEncoderDecoder) Decode(_ frame.EncodedFrame) (frame.PCMFrame, error) {
	return nil, errNullEncoderDecoderUsed
}

func (encdec NullEncoderDecoder) MimeType() string {
	return "application/octet-stream"
}
