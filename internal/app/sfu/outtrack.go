package sfu

import (
	"sync/atomic"

	"github.com/pion/rtp"
)

// RTPWriter is the sink side of an OutTrack; *webrtc.TrackLocalStaticRTP
// satisfies it.
type RTPWriter interface {
	WriteRTP(p *rtp.Packet) error
}

// OutTrack is one subscriber's sink on a relay. Once retired it is dropped
// by the relay on the next packet.
type OutTrack struct {
	sink    RTPWriter
	retired atomic.Bool
	sent    atomic.Uint64
}

func NewOutTrack(sink RTPWriter) *OutTrack {
	return &OutTrack{sink: sink}
}

// Write forwards p. A failed write retires the track.
func (ot *OutTrack) Write(p *rtp.Packet) error {
	if err := ot.sink.WriteRTP(p); err != nil {
		ot.Retire()
		return err
	}
	ot.sent.Add(1)
	return nil
}

func (ot *OutTrack) Retire()       { ot.retired.Store(true) }
func (ot *OutTrack) Retired() bool { return ot.retired.Load() }

// Sent is the number of packets written successfully.
func (ot *OutTrack) Sent() uint64 { return ot.sent.Load() }
