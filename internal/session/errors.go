package session

import (
	"errors"
	"io/fs"

	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/audiodevice"
)

const (
	ClassificationPermissionDenied = "permission-denied"
	ClassificationOther            = "other"
)

type ErrorKind int

const (
	// The host refused microphone access (user declined, policy, no device).
	ErrorAcquisitionDenied ErrorKind = iota + 1
	// Any other acquisition failure (device busy, hardware error).
	ErrorAcquisitionFailed
	// Starting capture on an acquired recorder failed.
	ErrorCaptureStartFailed
	// The recorder reported a failure while recording.
	ErrorCaptureFailed
	// The waveform of a clip could not be decoded.
	ErrorDecodeFailed
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorAcquisitionDenied:
		return "acquisition denied"
	case ErrorAcquisitionFailed:
		return "acquisition failed"
	case ErrorCaptureStartFailed:
		return "capture start failed"
	case ErrorCaptureFailed:
		return "capture failed"
	case ErrorDecodeFailed:
		return "decode failed"
	default:
		return "unknown"
	}
}

// The last failure seen by the session. There is only ever one; a newer error replaces it.
type ErrorRecord struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func newErrorRecord(kind ErrorKind, err error) *ErrorRecord {
	return &ErrorRecord{Kind: kind, Message: err.Error(), Err: err}
}

func (e *ErrorRecord) Classification() string {
	if e.Kind == ErrorAcquisitionDenied {
		return ClassificationPermissionDenied
	}
	return ClassificationOther
}

// What the user can do about a denied microphone. Empty for other errors.
func (e *ErrorRecord) Remediation() []string {
	if e.Kind != ErrorAcquisitionDenied {
		return nil
	}
	return []string{
		"have enabled microphone access",
		"have restarted after enabling microphone access",
		"are using the latest version of your audio drivers and platform client",
	}
}

func acquisitionError(err error) *ErrorRecord {
	if errors.Is(err, audiodevice.ErrPermissionDenied) ||
		errors.Is(err, audiodevice.ErrDeviceUnavailable) ||
		errors.Is(err, fs.ErrPermission) {
		return newErrorRecord(ErrorAcquisitionDenied, err)
	}
	return newErrorRecord(ErrorAcquisitionFailed, err)
}
