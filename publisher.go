package srsrtc

import (
	"context"

	"github.com/dkeye/srsrtc/internal/adapters/signal"
	"github.com/dkeye/srsrtc/internal/core"
	"github.com/pion/webrtc/v4"
)

// MediaSource supplies the local tracks to publish.
type MediaSource interface {
	VideoTracks() []webrtc.TrackLocal
	AudioTracks() []webrtc.TrackLocal
}

// Publisher negotiates a send-only session. It is not safe to call Publish
// concurrently on one Publisher; a later call supersedes an earlier one.
type Publisher struct {
	s *session
}

func NewPublisher(opt Option, opts ...ClientOption) *Publisher {
	return &Publisher{s: newSession(opPublish, opt, opts)}
}

// Option returns the merged configuration.
func (p *Publisher) Option() Option { return p.s.opt.clone() }

// Publish sends the first video and the first audio track of src. Additional
// tracks are ignored. On success the connection stays open until Dispose or
// the next Publish.
func (p *Publisher) Publish(ctx context.Context, src MediaSource) error {
	err := p.s.negotiate(ctx, negotiation{
		op:   opPublish,
		path: signal.PathPublish,
		prepare: func(pc core.MediaConnection) error {
			videos, audios := src.VideoTracks(), src.AudioTracks()
			if len(videos) == 0 {
				return ErrNoVideoTrack
			}
			if len(audios) == 0 {
				return ErrNoAudioTrack
			}
			if err := pc.AddSendTrack(videos[0]); err != nil {
				return err
			}
			return pc.AddSendTrack(audios[0])
		},
	})
	return err
}

// Dispose closes the connection. Calling it without one is a no-op.
func (p *Publisher) Dispose() { p.s.dispose() }
