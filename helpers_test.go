package srsrtc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/dkeye/srsrtc/internal/adapters/signal"
	"github.com/dkeye/srsrtc/internal/core"
	"github.com/gin-gonic/gin"
	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeTrack struct {
	id   string
	kind webrtc.RTPCodecType
}

func (t *fakeTrack) ID() string                       { return t.id }
func (t *fakeTrack) StreamID() string                 { return "fake" }
func (t *fakeTrack) Kind() webrtc.RTPCodecType        { return t.kind }
func (t *fakeTrack) Codec() webrtc.RTPCodecParameters { return webrtc.RTPCodecParameters{} }
func (t *fakeTrack) ReadRTP() (*rtp.Packet, interceptor.Attributes, error) {
	return nil, nil, io.EOF
}

type fakeConn struct {
	id int

	mu         sync.Mutex
	sendTracks []webrtc.TrackLocal
	recvKinds  []webrtc.RTPCodecType
	offer      *webrtc.SessionDescription
	answer     *webrtc.SessionDescription
	onTrack    func(ctx context.Context, track core.RemoteTrack)
	closeCount int
	offerErr   error
}

func (c *fakeConn) AddSendTrack(track webrtc.TrackLocal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendTracks = append(c.sendTracks, track)
	return nil
}

func (c *fakeConn) AddRecvTransceiver(kind webrtc.RTPCodecType) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recvKinds = append(c.recvKinds, kind)
	return nil
}

func (c *fakeConn) CreateAndSetOffer() (*webrtc.SessionDescription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.offerErr != nil {
		return nil, c.offerErr
	}
	c.offer = &webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  fmt.Sprintf("v=0\r\no=- %d 2 IN IP4 127.0.0.1\r\n", c.id),
	}
	return c.offer, nil
}

func (c *fakeConn) ApplyAnswer(answer webrtc.SessionDescription) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closeCount > 0 {
		return errors.New("fake: closed")
	}
	c.answer = &answer
	return nil
}

func (c *fakeConn) OnTrack(fn func(ctx context.Context, track core.RemoteTrack)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onTrack = fn
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeCount++
}

func (c *fakeConn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCount > 0
}

func (c *fakeConn) fireTrack(t core.RemoteTrack) {
	c.mu.Lock()
	fn := c.onTrack
	c.mu.Unlock()
	if fn != nil {
		fn(context.Background(), t)
	}
}

func (c *fakeConn) closes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCount
}

func (c *fakeConn) appliedAnswer() *webrtc.SessionDescription {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.answer
}

type fakeFactory struct {
	mu       sync.Mutex
	conns    []*fakeConn
	err      error
	offerErr error
}

func (f *fakeFactory) New() (core.MediaConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	c := &fakeConn{id: len(f.conns) + 1, offerErr: f.offerErr}
	f.conns = append(f.conns, c)
	return c, nil
}

func (f *fakeFactory) conn(i int) *fakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conns[i]
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.conns)
}

type recordedRequest struct {
	URL  string
	Body signal.Request
}

// srsMock is an httptest server speaking the SRS rtc/v1 API. Every request
// is recorded; respond decides the reply.
type srsMock struct {
	srv *httptest.Server

	mu       sync.Mutex
	requests []recordedRequest
}

func newSRSMock(t *testing.T, respond func(path string, req signal.Request) signal.Response) *srsMock {
	t.Helper()
	m := &srsMock{}
	handler := func(c *gin.Context) {
		var req signal.Request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400})
			return
		}
		m.mu.Lock()
		m.requests = append(m.requests, recordedRequest{URL: c.GetHeader("X-Original-URL"), Body: req})
		m.mu.Unlock()
		c.JSON(http.StatusOK, respond(c.FullPath(), req))
	}
	r := gin.New()
	r.POST(signal.PathPublish, handler)
	r.POST(signal.PathPlay, handler)
	m.srv = httptest.NewServer(r)
	t.Cleanup(m.srv.Close)
	return m
}

// client returns an http.Client that sends every request to the mock, no
// matter which host the URL names, and keeps the original URL in a header.
func (m *srsMock) client() *http.Client {
	target, _ := url.Parse(m.srv.URL)
	return &http.Client{Transport: redirectTransport{target: target}}
}

func (m *srsMock) recorded() []recordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]recordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

type redirectTransport struct {
	target *url.URL
}

func (rt redirectTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.Header.Set("X-Original-URL", req.URL.String())
	out.URL.Scheme = rt.target.Scheme
	out.URL.Host = rt.target.Host
	out.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(out)
}

func answerOK(sdp string) func(string, signal.Request) signal.Response {
	return func(string, signal.Request) signal.Response {
		return signal.Response{Code: 0, Server: "vid-test", SessionID: "sess-1", SDP: sdp}
	}
}

func answerCode(code int) func(string, signal.Request) signal.Response {
	return func(string, signal.Request) signal.Response {
		return signal.Response{Code: code}
	}
}

func newSampleTrack(t *testing.T, mime, id string) webrtc.TrackLocal {
	t.Helper()
	track, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: mime}, id, "local")
	require.NoError(t, err)
	return track
}

func handleOf(s *session) core.MediaConnection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pc
}
