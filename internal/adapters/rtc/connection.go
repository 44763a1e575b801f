package rtc

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/dkeye/srsrtc/internal/core"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

var ErrClosed = errors.New("webrtc: connection closed")

// WebRTCConnection wraps a pion PeerConnection. It serves both the client
// side (offer, answer applied later) and the loopback server (offer applied,
// answer created).
type WebRTCConnection struct {
	pc     *webrtc.PeerConnection
	label  string
	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool

	mu       sync.RWMutex
	onTrack  func(ctx context.Context, track core.RemoteTrack)
	onClosed func()
}

var _ core.MediaConnection = (*WebRTCConnection)(nil)

// DefaultWebRTCConfig mirrors a browser's bare RTCPeerConnection(): no ICE
// servers unless the caller lists some.
func DefaultWebRTCConfig(iceServers ...string) webrtc.Configuration {
	cfg := webrtc.Configuration{}
	if len(iceServers) > 0 {
		cfg.ICEServers = []webrtc.ICEServer{{URLs: iceServers}}
	}
	return cfg
}

func NewWebRTCConnection(cfg webrtc.Configuration, label string) (*WebRTCConnection, error) {
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &WebRTCConnection{pc: pc, label: label, ctx: ctx, cancel: cancel}
	c.bind()
	return c, nil
}

// Factory returns a core.ConnectionFactory producing connections with cfg.
func Factory(cfg webrtc.Configuration, label func() string) core.ConnectionFactory {
	return func() (core.MediaConnection, error) {
		return NewWebRTCConnection(cfg, label())
	}
}

func (c *WebRTCConnection) bind() {
	c.pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		log.Debug().Str("module", "webrtc").Str("label", c.label).Str("ice_state", s.String()).Msg("ICE state")
	})

	c.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "webrtc").Str("label", c.label).Str("peer_connection_state", s.String()).Msg("Peer state")
		if s == webrtc.PeerConnectionStateFailed {
			go c.Close()
		}
	})

	c.pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		log.Info().
			Str("module", "webrtc").
			Str("label", c.label).
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Str("stream_id", track.StreamID()).
			Msg("OnTrack received")
		c.mu.RLock()
		fn := c.onTrack
		c.mu.RUnlock()
		if fn != nil {
			fn(c.ctx, track)
		}
	})
}

func (c *WebRTCConnection) Label() string { return c.label }

func (c *WebRTCConnection) AddSendTrack(track webrtc.TrackLocal) error {
	t, err := c.pc.AddTransceiverFromTrack(track, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionSendonly,
	})
	if err != nil {
		return err
	}
	go c.drainRTCP(t.Sender())
	return nil
}

func (c *WebRTCConnection) AddRecvTransceiver(kind webrtc.RTPCodecType) error {
	_, err := c.pc.AddTransceiverFromKind(kind, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	})
	return err
}

// AddLocalTrack attaches a local track to a transceiver negotiated by the
// remote offer.
func (c *WebRTCConnection) AddLocalTrack(track webrtc.TrackLocal) (*webrtc.RTPSender, error) {
	sender, err := c.pc.AddTrack(track)
	if err != nil {
		return nil, err
	}
	go c.drainRTCP(sender)
	return sender, nil
}

// drainRTCP keeps the interceptor chain fed; pion stalls senders otherwise.
func (c *WebRTCConnection) drainRTCP(sender *webrtc.RTPSender) {
	if sender == nil {
		return
	}
	buf := make([]byte, 1500)
	for {
		if _, _, err := sender.Read(buf); err != nil {
			return
		}
	}
}

func (c *WebRTCConnection) CreateAndSetOffer() (*webrtc.SessionDescription, error) {
	if c.IsClosed() {
		return nil, ErrClosed
	}
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return nil, err
	}
	if err := c.pc.SetLocalDescription(offer); err != nil {
		return nil, err
	}
	return &offer, nil
}

func (c *WebRTCConnection) ApplyAnswer(answer webrtc.SessionDescription) error {
	if c.IsClosed() {
		return ErrClosed
	}
	return c.pc.SetRemoteDescription(answer)
}

// ApplyOffer sets a remote offer. Local tracks added after this call reuse
// the transceivers the offer created.
func (c *WebRTCConnection) ApplyOffer(offer webrtc.SessionDescription) error {
	if c.IsClosed() {
		return ErrClosed
	}
	return c.pc.SetRemoteDescription(offer)
}

// CreateAnswer creates and commits the answer, waiting for ICE gathering so
// the returned SDP carries every local candidate.
func (c *WebRTCConnection) CreateAnswer(ctx context.Context) (*webrtc.SessionDescription, error) {
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return nil, err
	}

	gatherComplete := webrtc.GatheringCompletePromise(c.pc)
	if err := c.pc.SetLocalDescription(answer); err != nil {
		return nil, err
	}
	select {
	case <-gatherComplete:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return c.pc.LocalDescription(), nil
}

func (c *WebRTCConnection) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.cancel()
	if err := c.pc.Close(); err != nil {
		log.Error().Err(err).Str("module", "webrtc").Str("label", c.label).Msg("close error")
	} else {
		log.Info().Str("module", "webrtc").Str("label", c.label).Msg("closed")
	}

	c.mu.RLock()
	fn := c.onClosed
	c.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (c *WebRTCConnection) IsClosed() bool { return c.closed.Load() }

// OnTrack sets application-level callback for remote tracks.
func (c *WebRTCConnection) OnTrack(fn func(ctx context.Context, track core.RemoteTrack)) {
	c.mu.Lock()
	c.onTrack = fn
	c.mu.Unlock()
}

// OnClosed sets a callback run once after Close.
func (c *WebRTCConnection) OnClosed(fn func()) {
	c.mu.Lock()
	c.onClosed = fn
	c.mu.Unlock()
}
