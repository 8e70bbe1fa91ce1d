package frame

// Raw audio samples, interleaved by channel and normalized to [-1, 1].
type PCMFrame []float32

// Audio bytes produced by an encoder, in whatever layout that encoder defines.
type EncodedFrame []byte
