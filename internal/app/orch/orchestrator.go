package orch

import (
	"context"
	"errors"

	"github.com/dkeye/srsrtc/internal/adapters/signal"
	"github.com/dkeye/srsrtc/internal/app"
	"github.com/dkeye/srsrtc/internal/app/sfu"
	"github.com/dkeye/srsrtc/internal/core"
	"github.com/dkeye/srsrtc/internal/domain"
	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// Response codes of the loopback server. 0 means success, like SRS.
const (
	CodeOK             = 0
	CodeBadRequest     = 400
	CodeStreamNotFound = 404
	CodeStreamBusy     = 409
	CodeInternal       = 500
	// CodeStreamNotReady: the stream is claimed but none of its tracks has
	// reached the server yet.
	CodeStreamNotReady = 503
)

// Answerer is the server side of a peer connection.
type Answerer interface {
	ApplyOffer(offer webrtc.SessionDescription) error
	CreateAnswer(ctx context.Context) (*webrtc.SessionDescription, error)
	AddLocalTrack(track webrtc.TrackLocal) (*webrtc.RTPSender, error)
	OnTrack(fn func(ctx context.Context, track core.RemoteTrack))
	OnClosed(fn func())
	Close()
}

// Orchestrator answers publish and play offers, feeding published tracks to
// players through the relays.
type Orchestrator struct {
	Registry      *app.Registry
	Relays        *sfu.RelayManager
	NewConnection func(label string) (Answerer, error)
	ServerID      string
}

func New(newConn func(label string) (Answerer, error)) *Orchestrator {
	return &Orchestrator{
		Registry:      app.NewRegistry(),
		Relays:        sfu.NewRelayManager(),
		NewConnection: newConn,
		ServerID:      "vid-" + uuid.NewString()[:8],
	}
}

func (o *Orchestrator) fail(code int, err error, sid app.SessionID) *signal.Response {
	log.Error().Err(err).Str("module", "orch").Str("sid", string(sid)).Int("code", code).Msg("signaling failed")
	return &signal.Response{Code: code, Server: o.ServerID}
}

func (o *Orchestrator) parse(req signal.Request) (domain.StreamKey, *webrtc.SessionDescription, error) {
	u, err := domain.ParseStreamURL(req.StreamURL)
	if err != nil {
		return "", nil, err
	}
	if req.SDP == "" {
		return "", nil, errors.New("empty sdp")
	}
	return u.Key(), &webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: req.SDP}, nil
}

// Publish answers a publisher offer. The stream becomes playable once the
// publisher's tracks arrive.
func (o *Orchestrator) Publish(ctx context.Context, req signal.Request) *signal.Response {
	sid := app.SessionID(uuid.NewString())
	key, offer, err := o.parse(req)
	if err != nil {
		return o.fail(CodeBadRequest, err, sid)
	}
	if err := o.Registry.ClaimPublisher(key, sid); err != nil {
		return o.fail(CodeStreamBusy, err, sid)
	}

	conn, err := o.NewConnection("pub-" + string(sid))
	if err != nil {
		o.Registry.ReleasePublisher(key, sid)
		return o.fail(CodeInternal, err, sid)
	}
	conn.OnTrack(func(trackCtx context.Context, track core.RemoteTrack) {
		o.Relays.StartRelay(trackCtx, key, track)
	})
	conn.OnClosed(func() {
		o.Registry.Unbind(sid)
		if o.Registry.ReleasePublisher(key, sid) {
			o.Relays.StopStream(key)
		}
	})

	answer, err := o.answer(ctx, conn, *offer, nil)
	if err != nil {
		conn.Close()
		return o.fail(CodeInternal, err, sid)
	}
	o.Registry.Bind(sid, key, app.RolePublisher, conn)
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("stream", string(key)).Msg("publisher ready")
	return &signal.Response{Code: CodeOK, Server: o.ServerID, SessionID: string(sid), SDP: answer.SDP}
}

// Play answers a player offer with the tracks currently relayed for the
// stream.
func (o *Orchestrator) Play(ctx context.Context, req signal.Request) *signal.Response {
	sid := app.SessionID(uuid.NewString())
	key, offer, err := o.parse(req)
	if err != nil {
		return o.fail(CodeBadRequest, err, sid)
	}
	if !o.Registry.HasPublisher(key) {
		return o.fail(CodeStreamNotFound, errors.New("no publisher for "+string(key)), sid)
	}
	if !o.Relays.HasStream(key) {
		return o.fail(CodeStreamNotReady, sfu.ErrNoSources, sid)
	}

	conn, err := o.NewConnection("play-" + string(sid))
	if err != nil {
		return o.fail(CodeInternal, err, sid)
	}
	conn.OnClosed(func() {
		o.Relays.Unsubscribe(key, sfu.SubscriberID(sid))
		o.Registry.Unbind(sid)
	})

	answer, err := o.answer(ctx, conn, *offer, func() error {
		return o.Relays.Subscribe(key, sfu.SubscriberID(sid), conn)
	})
	if err != nil {
		conn.Close()
		if errors.Is(err, sfu.ErrNoSources) {
			// publisher went away between the check and the subscribe
			return o.fail(CodeStreamNotReady, err, sid)
		}
		return o.fail(CodeInternal, err, sid)
	}
	o.Registry.Bind(sid, key, app.RolePlayer, conn)
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("stream", string(key)).Msg("player ready")
	return &signal.Response{Code: CodeOK, Server: o.ServerID, SessionID: string(sid), SDP: answer.SDP}
}

// answer applies offer, runs attach between offer and answer, and returns the
// local answer.
func (o *Orchestrator) answer(ctx context.Context, conn Answerer, offer webrtc.SessionDescription, attach func() error) (*webrtc.SessionDescription, error) {
	if err := conn.ApplyOffer(offer); err != nil {
		return nil, err
	}
	if attach != nil {
		if err := attach(); err != nil {
			return nil, err
		}
	}
	return conn.CreateAnswer(ctx)
}

func (o *Orchestrator) Streams() []app.StreamInfo {
	return o.Registry.Streams()
}

// Close tears down every session.
func (o *Orchestrator) Close() {
	o.Registry.CloseAll()
}
