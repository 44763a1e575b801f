package signal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestExchange(t *testing.T) {
	var got Request
	var contentType string
	r := gin.New()
	r.POST(PathPublish, func(c *gin.Context) {
		contentType = c.GetHeader("Content-Type")
		assert.NoError(t, c.ShouldBindJSON(&got))
		c.JSON(http.StatusOK, Response{Code: 0, Server: "vid-1", SessionID: "s1", SDP: "v=0\r\n"})
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	api := srv.URL + PathPublish
	resp, err := NewClient(srv.Client()).Exchange(context.Background(), Request{
		StreamURL: "webrtc://127.0.0.1/live/livestream",
		SDP:       "offer",
		API:       api,
	})
	require.NoError(t, err)
	assert.Equal(t, &Response{Code: 0, Server: "vid-1", SessionID: "s1", SDP: "v=0\r\n"}, resp)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, Request{StreamURL: "webrtc://127.0.0.1/live/livestream", SDP: "offer", API: api}, got)
}

func TestExchangeNonZeroCodeIsNotAnError(t *testing.T) {
	r := gin.New()
	r.POST(PathPlay, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"code": 400})
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := NewClient(nil).Exchange(context.Background(), Request{API: srv.URL + PathPlay})
	require.NoError(t, err)
	assert.Equal(t, 400, resp.Code)
	assert.Empty(t, resp.SDP)
}

func TestExchangeMalformedBody(t *testing.T) {
	r := gin.New()
	r.POST(PathPlay, func(c *gin.Context) {
		c.String(http.StatusBadGateway, "<html>bad gateway</html>")
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	_, err := NewClient(nil).Exchange(context.Background(), Request{API: srv.URL + PathPlay})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 502")
}

func TestExchangeTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	api := srv.URL + PathPlay
	srv.Close()

	_, err := NewClient(nil).Exchange(context.Background(), Request{API: api})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signal: post")
}

func TestExchangeContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(nil).Exchange(ctx, Request{API: "http://127.0.0.1:1/rtc/v1/play/"})
	require.ErrorIs(t, err, context.Canceled)
}
