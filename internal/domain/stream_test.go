package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamURLString(t *testing.T) {
	tests := []struct {
		name string
		in   StreamURL
		want string
	}{
		{
			name: "no params",
			in:   StreamURL{Host: "127.0.0.1", App: "live", Stream: "livestream"},
			want: "webrtc://127.0.0.1/live/livestream",
		},
		{
			name: "empty params map",
			in:   StreamURL{Host: "127.0.0.1", App: "live", Stream: "livestream", Params: map[string]string{}},
			want: "webrtc://127.0.0.1/live/livestream",
		},
		{
			name: "sorted and escaped params",
			in: StreamURL{Host: "203.0.113.5", App: "demo", Stream: "cam1", Params: map[string]string{
				"token": "a b&c",
				"app":   "x/y",
			}},
			want: "webrtc://203.0.113.5/demo/cam1?app=x%2Fy&token=a+b%26c",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.String())
		})
	}
}

func TestParseStreamURL(t *testing.T) {
	u, err := ParseStreamURL("webrtc://203.0.113.5/demo/cam1?token=abc")
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.5", u.Host)
	assert.Equal(t, "demo", u.App)
	assert.Equal(t, "cam1", u.Stream)
	assert.Equal(t, map[string]string{"token": "abc"}, u.Params)
	assert.Equal(t, StreamKey("demo/cam1"), u.Key())

	u, err = ParseStreamURL("webrtc://host/a/b/c")
	require.NoError(t, err)
	assert.Equal(t, "a/b", u.App)
	assert.Equal(t, "c", u.Stream)
}

func TestParseStreamURLErrors(t *testing.T) {
	_, err := ParseStreamURL("http://host/live/s")
	assert.ErrorIs(t, err, ErrBadScheme)

	_, err = ParseStreamURL("webrtc://host/")
	assert.ErrorIs(t, err, ErrMissingApp)

	_, err = ParseStreamURL("webrtc://host/live")
	assert.ErrorIs(t, err, ErrMissingStream)

	_, err = ParseStreamURL("webrtc://host/live/")
	assert.ErrorIs(t, err, ErrMissingStream)
}

func TestStreamURLRoundTrip(t *testing.T) {
	in := StreamURL{Host: "h", App: "live", Stream: "s", Params: map[string]string{"k": "v w"}}
	out, err := ParseStreamURL(in.String())
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestEncodeParams(t *testing.T) {
	assert.Empty(t, EncodeParams(nil))
	assert.Equal(t, "a=1&b=x+y", EncodeParams(map[string]string{"b": "x y", "a": "1"}))
	assert.Equal(t, "k=a~b%2Ac%26d%3De", EncodeParams(map[string]string{"k": "a~b*c&d=e"}))
}
