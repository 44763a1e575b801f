package srsrtc

import (
	"testing"

	"github.com/dkeye/srsrtc/internal/adapters/signal"
	"github.com/stretchr/testify/assert"
)

func TestOptionDefaults(t *testing.T) {
	opt := Option{}.merge()
	assert.Equal(t, DefaultOption(), opt)
	assert.Equal(t, "webrtc://127.0.0.1/live/livestream", opt.StreamURL())
	assert.Equal(t, "http://127.0.0.1:1985/rtc/v1/publish/", opt.APIURL(signal.PathPublish))
	assert.Equal(t, "http://127.0.0.1:1985/rtc/v1/play/", opt.APIURL(signal.PathPlay))
}

func TestOptionURLs(t *testing.T) {
	tests := []struct {
		name      string
		in        Option
		streamURL string
		playAPI   string
	}{
		{
			name:      "partial override",
			in:        Option{Stream: "cam1"},
			streamURL: "webrtc://127.0.0.1/live/cam1",
			playAPI:   "http://127.0.0.1:1985/rtc/v1/play/",
		},
		{
			name: "all fields",
			in: Option{
				IP:     "203.0.113.5",
				Port:   8080,
				App:    "demo",
				Stream: "cam1",
				Params: map[string]string{"token": "abc"},
			},
			streamURL: "webrtc://203.0.113.5/demo/cam1?token=abc",
			playAPI:   "http://203.0.113.5:8080/rtc/v1/play/",
		},
		{
			name:      "https",
			in:        Option{IP: "srs.example.com", Port: 443, HTTPS: true},
			streamURL: "webrtc://srs.example.com/live/livestream",
			playAPI:   "https://srs.example.com:443/rtc/v1/play/",
		},
		{
			name:      "params encoded and sorted",
			in:        Option{Params: map[string]string{"z": "1", "secret": "a b/c"}},
			streamURL: "webrtc://127.0.0.1/live/livestream?secret=a+b%2Fc&z=1",
			playAPI:   "http://127.0.0.1:1985/rtc/v1/play/",
		},
		{
			name:      "empty params omit query",
			in:        Option{Params: map[string]string{}},
			streamURL: "webrtc://127.0.0.1/live/livestream",
			playAPI:   "http://127.0.0.1:1985/rtc/v1/play/",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt := tt.in.merge()
			assert.Equal(t, tt.streamURL, opt.StreamURL())
			assert.Equal(t, tt.playAPI, opt.APIURL(signal.PathPlay))
		})
	}
}

func TestOptionIsCopiedAtConstruction(t *testing.T) {
	params := map[string]string{"token": "abc"}
	pub := NewPublisher(Option{Params: params})
	params["token"] = "changed"
	params["extra"] = "1"

	assert.Equal(t, map[string]string{"token": "abc"}, pub.Option().Params)
	assert.Equal(t, "webrtc://127.0.0.1/live/livestream?token=abc", pub.Option().StreamURL())
}
