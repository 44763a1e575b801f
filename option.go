package srsrtc

import (
	"maps"
	"net"
	"strconv"

	"github.com/dkeye/srsrtc/internal/domain"
)

const (
	DefaultApp    = "live"
	DefaultStream = "livestream"
	DefaultIP     = "127.0.0.1"
	DefaultPort   = 1985
)

// Option addresses a stream on an SRS server. Zero-valued fields take their
// defaults when passed to NewPublisher or NewPlayer.
type Option struct {
	App    string            `mapstructure:"app"`
	Stream string            `mapstructure:"stream"`
	IP     string            `mapstructure:"ip"`
	Port   int               `mapstructure:"port"`
	Params map[string]string `mapstructure:"params"`
	HTTPS  bool              `mapstructure:"https"`
}

func DefaultOption() Option {
	return Option{
		App:    DefaultApp,
		Stream: DefaultStream,
		IP:     DefaultIP,
		Port:   DefaultPort,
		Params: map[string]string{},
	}
}

// merge overlays the non-zero fields of o on the defaults. Params is cloned
// so later changes to the caller's map do not leak in.
func (o Option) merge() Option {
	out := DefaultOption()
	if o.App != "" {
		out.App = o.App
	}
	if o.Stream != "" {
		out.Stream = o.Stream
	}
	if o.IP != "" {
		out.IP = o.IP
	}
	if o.Port != 0 {
		out.Port = o.Port
	}
	if o.Params != nil {
		out.Params = maps.Clone(o.Params)
	}
	out.HTTPS = o.HTTPS
	return out
}

func (o Option) clone() Option {
	o.Params = maps.Clone(o.Params)
	return o
}

// StreamURL returns webrtc://ip/app/stream with Params appended as a query.
func (o Option) StreamURL() string {
	return domain.StreamURL{
		Host:   o.IP,
		App:    o.App,
		Stream: o.Stream,
		Params: o.Params,
	}.String()
}

// APIURL returns the signaling endpoint for path, e.g.
// http://127.0.0.1:1985/rtc/v1/play/.
func (o Option) APIURL(path string) string {
	scheme := "http"
	if o.HTTPS {
		scheme = "https"
	}
	return scheme + "://" + net.JoinHostPort(o.IP, strconv.Itoa(o.Port)) + path
}
