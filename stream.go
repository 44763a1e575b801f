package srsrtc

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
)

// MediaStream collects the inbound tracks of one Play call. Tracks are only
// ever appended.
type MediaStream struct {
	id string

	mu       sync.Mutex
	tracks   []RemoteTrack
	handlers []func(RemoteTrack)
	added    chan struct{}

	// dispatch serializes handler calls so a handler sees replayed tracks
	// before new ones.
	dispatch sync.Mutex
}

func NewMediaStream() *MediaStream {
	return &MediaStream{
		id:    uuid.NewString(),
		added: make(chan struct{}),
	}
}

func (s *MediaStream) ID() string { return s.id }

// Tracks returns a snapshot of the tracks received so far.
func (s *MediaStream) Tracks() []RemoteTrack {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RemoteTrack, len(s.tracks))
	copy(out, s.tracks)
	return out
}

func (s *MediaStream) VideoTracks() []RemoteTrack {
	return s.tracksOf(webrtc.RTPCodecTypeVideo)
}

func (s *MediaStream) AudioTracks() []RemoteTrack {
	return s.tracksOf(webrtc.RTPCodecTypeAudio)
}

func (s *MediaStream) tracksOf(kind webrtc.RTPCodecType) []RemoteTrack {
	var out []RemoteTrack
	for _, t := range s.Tracks() {
		if t.Kind() == kind {
			out = append(out, t)
		}
	}
	return out
}

// OnTrack registers fn for every track of the stream: the ones already
// received are replayed first, later ones follow as they arrive.
func (s *MediaStream) OnTrack(fn func(RemoteTrack)) {
	s.dispatch.Lock()
	defer s.dispatch.Unlock()

	s.mu.Lock()
	existing := make([]RemoteTrack, len(s.tracks))
	copy(existing, s.tracks)
	s.handlers = append(s.handlers, fn)
	s.mu.Unlock()

	for _, t := range existing {
		fn(t)
	}
}

// WaitTracks blocks until the stream holds at least n tracks or ctx is done.
func (s *MediaStream) WaitTracks(ctx context.Context, n int) ([]RemoteTrack, error) {
	for {
		s.mu.Lock()
		if len(s.tracks) >= n {
			out := make([]RemoteTrack, len(s.tracks))
			copy(out, s.tracks)
			s.mu.Unlock()
			return out, nil
		}
		added := s.added
		s.mu.Unlock()

		select {
		case <-added:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (s *MediaStream) addTrack(t RemoteTrack) {
	s.mu.Lock()
	s.tracks = append(s.tracks, t)
	handlers := make([]func(RemoteTrack), len(s.handlers))
	copy(handlers, s.handlers)
	close(s.added)
	s.added = make(chan struct{})
	s.mu.Unlock()

	s.dispatch.Lock()
	defer s.dispatch.Unlock()
	for _, fn := range handlers {
		fn(t)
	}
}

// LocalStream is a MediaSource over a fixed set of local tracks.
type LocalStream struct {
	mu     sync.RWMutex
	tracks []webrtc.TrackLocal
}

func NewLocalStream(tracks ...webrtc.TrackLocal) *LocalStream {
	return &LocalStream{tracks: tracks}
}

func (s *LocalStream) AddTrack(t webrtc.TrackLocal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracks = append(s.tracks, t)
}

func (s *LocalStream) VideoTracks() []webrtc.TrackLocal {
	return s.tracksOf(webrtc.RTPCodecTypeVideo)
}

func (s *LocalStream) AudioTracks() []webrtc.TrackLocal {
	return s.tracksOf(webrtc.RTPCodecTypeAudio)
}

func (s *LocalStream) tracksOf(kind webrtc.RTPCodecType) []webrtc.TrackLocal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []webrtc.TrackLocal
	for _, t := range s.tracks {
		if t.Kind() == kind {
			out = append(out, t)
		}
	}
	return out
}
