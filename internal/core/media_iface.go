package core

import (
	"context"

	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

// RemoteTrack is an inbound track delivered by a MediaConnection.
// *webrtc.TrackRemote satisfies it.
type RemoteTrack interface {
	ID() string
	StreamID() string
	Kind() webrtc.RTPCodecType
	Codec() webrtc.RTPCodecParameters
	ReadRTP() (*rtp.Packet, interceptor.Attributes, error)
}

// MediaConnection is the slice of a peer connection the offer/answer
// exchange needs.
type MediaConnection interface {
	// AddSendTrack declares a send-only transceiver carrying track.
	AddSendTrack(track webrtc.TrackLocal) error
	// AddRecvTransceiver declares a receive-only transceiver of the given kind.
	AddRecvTransceiver(kind webrtc.RTPCodecType) error
	// CreateAndSetOffer creates an offer and commits it as the local description.
	CreateAndSetOffer() (*webrtc.SessionDescription, error)
	ApplyAnswer(webrtc.SessionDescription) error
	// OnTrack sets a callback invoked for every inbound track. ctx is
	// cancelled when the connection closes.
	OnTrack(func(ctx context.Context, track RemoteTrack))
	// Close stops all underlying media resources. Safe to call twice.
	Close()
	IsClosed() bool
}

// ConnectionFactory creates a fresh MediaConnection for one negotiation.
type ConnectionFactory func() (MediaConnection, error)
