package signal

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

const (
	PathPublish = "/rtc/v1/publish/"
	PathPlay    = "/rtc/v1/play/"
)

// maxResponseSize bounds the answer body; an SDP answer is a few KB.
const maxResponseSize = 1 << 20

// Request is the body POSTed to an SRS rtc/v1 endpoint.
type Request struct {
	StreamURL string `json:"streamurl"`
	SDP       string `json:"sdp"`
	API       string `json:"api"`
}

// Response is the SRS reply. SDP is only meaningful when Code is 0.
type Response struct {
	Code      int    `json:"code"`
	Server    string `json:"server,omitempty"`
	SessionID string `json:"sessionid,omitempty"`
	SDP       string `json:"sdp,omitempty"`
}

// Client performs the single HTTP round-trip of SRS WebRTC signaling.
type Client struct {
	httpc *http.Client
}

func NewClient(httpc *http.Client) *Client {
	if httpc == nil {
		httpc = http.DefaultClient
	}
	return &Client{httpc: httpc}
}

// Exchange POSTs req to req.API and decodes the JSON reply. A non-zero Code
// is returned as a value, not an error; transport and decode failures are
// errors.
func (c *Client) Exchange(ctx context.Context, req Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("signal: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.API, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("signal: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	log.Debug().Str("module", "signal").Str("api", req.API).Str("streamurl", req.StreamURL).Msg("exchange sdp")

	httpResp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("signal: post %s: %w", req.API, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("signal: read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("signal: decode response (http %d): %w", httpResp.StatusCode, err)
	}

	log.Debug().
		Str("module", "signal").
		Int("code", resp.Code).
		Str("server", resp.Server).
		Str("session_id", resp.SessionID).
		Msg("exchange done")
	return &resp, nil
}
