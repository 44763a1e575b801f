package srsrtc

import (
	"errors"
	"fmt"
)

const (
	opPublish = "publish"
	opPlay    = "play"
)

var (
	// ErrRejected matches every *RejectedError.
	ErrRejected = errors.New("srsrtc: signaling rejected")
	// ErrSuperseded is returned when Dispose or a newer Publish/Play replaced
	// the connection while the signaling request was in flight.
	ErrSuperseded = errors.New("srsrtc: negotiation superseded")

	ErrNoVideoTrack = errors.New("srsrtc: media source has no video track")
	ErrNoAudioTrack = errors.New("srsrtc: media source has no audio track")
)

// RejectedError reports a signaling response with a non-zero code.
type RejectedError struct {
	Op   string
	Code int
}

func (e *RejectedError) Error() string {
	if e.Op == opPlay {
		return fmt.Sprintf("srs server returned error: code %d", e.Code)
	}
	return "failed to get answer"
}

func (e *RejectedError) Is(target error) bool { return target == ErrRejected }
