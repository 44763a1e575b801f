// Package domain contains stream metadata without transport logic.
package domain

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const StreamURLScheme = "webrtc"

var (
	ErrBadScheme     = errors.New("streamurl: scheme must be webrtc")
	ErrMissingApp    = errors.New("streamurl: missing app")
	ErrMissingStream = errors.New("streamurl: missing stream")
)

// StreamKey identifies a stream on a server as "app/stream".
type StreamKey string

// StreamURL is the webrtc://host/app/stream[?params] address SRS uses to
// identify a stream in signaling requests.
type StreamURL struct {
	Host   string
	App    string
	Stream string
	Params map[string]string
}

func (u StreamURL) Key() StreamKey {
	return StreamKey(u.App + "/" + u.Stream)
}

// String renders the URL. Params are encoded with sorted keys and the "?" is
// omitted when there are none.
func (u StreamURL) String() string {
	s := fmt.Sprintf("%s://%s/%s/%s", StreamURLScheme, u.Host, u.App, u.Stream)
	if q := EncodeParams(u.Params); q != "" {
		s += "?" + q
	}
	return s
}

// EncodeParams url-encodes params in form encoding, keys sorted. Spaces
// become '+', '~' is kept literal and '*' is escaped as %2A; browsers'
// URLSearchParams differ on those two characters, SRS decodes either form.
func EncodeParams(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}
	values := make(url.Values, len(params))
	for k, v := range params {
		values.Set(k, v)
	}
	return values.Encode()
}

// ParseStreamURL parses a signaling streamurl. The last path segment is the
// stream, everything before it is the app.
func ParseStreamURL(raw string) (StreamURL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return StreamURL{}, fmt.Errorf("streamurl: %w", err)
	}
	if u.Scheme != StreamURLScheme {
		return StreamURL{}, ErrBadScheme
	}

	path := strings.Trim(u.Path, "/")
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		if path == "" {
			return StreamURL{}, ErrMissingApp
		}
		return StreamURL{}, ErrMissingStream
	}
	app, stream := path[:idx], path[idx+1:]
	if app == "" {
		return StreamURL{}, ErrMissingApp
	}
	if stream == "" {
		return StreamURL{}, ErrMissingStream
	}

	out := StreamURL{Host: u.Host, App: app, Stream: stream}
	if q := u.Query(); len(q) > 0 {
		out.Params = make(map[string]string, len(q))
		for k := range q {
			out.Params[k] = q.Get(k)
		}
	}
	return out, nil
}
