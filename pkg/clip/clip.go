package clip

import (
	"github.com/google/uuid"
)

// One interval of captured, encoded audio.
//
// Chunks are treated as immutable once produced: nothing downstream of the
// recorder writes to Data.
type AudioChunk struct {
	Data     []byte
	MimeType string
}

func (c AudioChunk) Size() int {
	return len(c.Data)
}

// The audio of one completed recording: every chunk of that recording, concatenated in order.
//
// A clip is never modified. Re-recording produces a new clip with a new ID,
// and the ID is what consumers (e.g. the waveform cache) key on.
type RecordingClip struct {
	ID       uuid.UUID
	Data     []byte
	MimeType string
}

// Concatenate chunks (in order) into a new clip. The clip owns a fresh copy of the bytes.
func New(id uuid.UUID, mimeType string, chunks []AudioChunk) *RecordingClip {
	size := 0
	for _, c := range chunks {
		size += c.Size()
	}

	data := make([]byte, 0, size)
	for _, c := range chunks {
		data = append(data, c.Data...)
	}

	return &RecordingClip{
		ID:       id,
		Data:     data,
		MimeType: mimeType,
	}
}

func (c *RecordingClip) Size() int {
	return len(c.Data)
}

// The whole clip as a single chunk, e.g. for playback.
func (c *RecordingClip) AsChunk() AudioChunk {
	return AudioChunk{Data: c.Data, MimeType: c.MimeType}
}
