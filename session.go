package srsrtc

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/dkeye/srsrtc/internal/adapters/rtc"
	"github.com/dkeye/srsrtc/internal/adapters/signal"
	"github.com/dkeye/srsrtc/internal/core"
	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type (
	MediaConnection   = core.MediaConnection
	RemoteTrack       = core.RemoteTrack
	ConnectionFactory = core.ConnectionFactory
)

type clientOptions struct {
	httpClient   *http.Client
	factory      ConnectionFactory
	logger       *zerolog.Logger
	webrtcConfig webrtc.Configuration
}

// ClientOption customizes the collaborators of a Publisher or Player.
type ClientOption func(*clientOptions)

// WithHTTPClient sets the client used for the signaling request.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(o *clientOptions) { o.httpClient = c }
}

// WithConnectionFactory replaces the pion-backed peer connection.
func WithConnectionFactory(f ConnectionFactory) ClientOption {
	return func(o *clientOptions) { o.factory = f }
}

// WithLogger sets the logger for negotiation events. Defaults to the global
// zerolog logger.
func WithLogger(l zerolog.Logger) ClientOption {
	return func(o *clientOptions) { o.logger = &l }
}

// WithWebRTCConfig sets the configuration of the default connection factory.
// Ignored when WithConnectionFactory is given.
func WithWebRTCConfig(cfg webrtc.Configuration) ClientOption {
	return func(o *clientOptions) { o.webrtcConfig = cfg }
}

// negotiation is what differs between publish and play.
type negotiation struct {
	op      string
	path    string
	prepare func(pc core.MediaConnection) error
}

// session owns the single connection handle of a Publisher or Player and runs
// the offer/answer exchange for it.
type session struct {
	opt     Option
	signal  *signal.Client
	newConn core.ConnectionFactory
	logger  zerolog.Logger

	mu  sync.Mutex
	pc  core.MediaConnection
	gen uint64
}

func newSession(op string, opt Option, opts []ClientOption) *session {
	o := clientOptions{webrtcConfig: rtc.DefaultWebRTCConfig()}
	for _, fn := range opts {
		fn(&o)
	}

	logger := log.With().Str("module", "srsrtc."+op).Logger()
	if o.logger != nil {
		logger = o.logger.With().Str("module", "srsrtc."+op).Logger()
	}
	factory := o.factory
	if factory == nil {
		factory = rtc.Factory(o.webrtcConfig, func() string {
			return op + "-" + uuid.NewString()
		})
	}

	return &session{
		opt:     opt.merge(),
		signal:  signal.NewClient(o.httpClient),
		newConn: factory,
		logger:  logger,
	}
}

// acquire closes the current connection, if any, and installs a new one.
func (s *session) acquire() (core.MediaConnection, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
	s.gen++
	pc, err := s.newConn()
	if err != nil {
		return nil, s.gen, err
	}
	s.pc = pc
	return pc, s.gen, nil
}

func (s *session) closeLocked() {
	if s.pc != nil {
		s.pc.Close()
		s.pc = nil
	}
}

func (s *session) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen
}

// dispose closes the connection and invalidates any in-flight negotiation.
func (s *session) dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.closeLocked()
}

// fail tears down the connection created by generation gen, unless a newer
// call already replaced it, and returns err unchanged.
func (s *session) fail(gen uint64, op string, err error) error {
	s.mu.Lock()
	if s.gen == gen {
		s.closeLocked()
	}
	s.mu.Unlock()
	s.logger.Error().Err(err).Str("op", op).Str("streamurl", s.opt.StreamURL()).Msg("negotiation failed")
	return err
}

func (s *session) negotiate(ctx context.Context, n negotiation) error {
	pc, gen, err := s.acquire()
	if err != nil {
		return s.fail(gen, n.op, fmt.Errorf("%s: new connection: %w", n.op, err))
	}

	if err := n.prepare(pc); err != nil {
		return s.fail(gen, n.op, err)
	}

	offer, err := pc.CreateAndSetOffer()
	if err != nil {
		return s.fail(gen, n.op, fmt.Errorf("%s: create offer: %w", n.op, err))
	}

	api := s.opt.APIURL(n.path)
	resp, err := s.signal.Exchange(ctx, signal.Request{
		StreamURL: s.opt.StreamURL(),
		SDP:       offer.SDP,
		API:       api,
	})
	if err != nil {
		return s.fail(gen, n.op, err)
	}
	if resp.Code != 0 {
		return s.fail(gen, n.op, &RejectedError{Op: n.op, Code: resp.Code})
	}
	if !s.current(gen) {
		return s.fail(gen, n.op, ErrSuperseded)
	}

	answer := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: resp.SDP}
	if err := pc.ApplyAnswer(answer); err != nil {
		return s.fail(gen, n.op, fmt.Errorf("%s: apply answer: %w", n.op, err))
	}

	s.logger.Info().
		Str("op", n.op).
		Str("api", api).
		Str("streamurl", s.opt.StreamURL()).
		Str("server", resp.Server).
		Str("session_id", resp.SessionID).
		Msg("answer applied")
	return nil
}
