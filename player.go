package srsrtc

import (
	"context"

	"github.com/dkeye/srsrtc/internal/adapters/signal"
	"github.com/dkeye/srsrtc/internal/core"
	"github.com/pion/webrtc/v4"
)

// Player negotiates a receive-only session. It is not safe to call Play
// concurrently on one Player; a later call supersedes an earlier one.
type Player struct {
	s *session
}

func NewPlayer(opt Option, opts ...ClientOption) *Player {
	return &Player{s: newSession(opPlay, opt, opts)}
}

// Option returns the merged configuration.
func (p *Player) Option() Option { return p.s.opt.clone() }

// Play returns a stream that starts empty and fills up as inbound tracks
// arrive, which may happen before or after Play returns.
func (p *Player) Play(ctx context.Context) (*MediaStream, error) {
	stream := NewMediaStream()
	err := p.s.negotiate(ctx, negotiation{
		op:   opPlay,
		path: signal.PathPlay,
		prepare: func(pc core.MediaConnection) error {
			if err := pc.AddRecvTransceiver(webrtc.RTPCodecTypeVideo); err != nil {
				return err
			}
			if err := pc.AddRecvTransceiver(webrtc.RTPCodecTypeAudio); err != nil {
				return err
			}
			pc.OnTrack(func(_ context.Context, track core.RemoteTrack) {
				stream.addTrack(track)
			})
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return stream, nil
}

// Dispose closes the connection. Calling it without one is a no-op.
func (p *Player) Dispose() { p.s.dispose() }
