package sfu

import (
	"context"
	"errors"
	"sync"

	"github.com/dkeye/srsrtc/internal/core"
	"github.com/dkeye/srsrtc/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

var ErrNoSources = errors.New("sfu: stream has no tracks yet")

// TrackAdder is the part of a subscriber connection the relay needs.
type TrackAdder interface {
	AddLocalTrack(track webrtc.TrackLocal) (*webrtc.RTPSender, error)
}

// RelayManager keeps one Relay per published track, grouped by stream.
type RelayManager struct {
	mu     sync.RWMutex
	relays map[domain.StreamKey]map[webrtc.RTPCodecType]*Relay
}

func NewRelayManager() *RelayManager {
	return &RelayManager{
		relays: make(map[domain.StreamKey]map[webrtc.RTPCodecType]*Relay),
	}
}

// StartRelay creates a Relay for track under key and starts its loop. A relay
// of the same kind already running for key is replaced.
func (m *RelayManager) StartRelay(ctx context.Context, key domain.StreamKey, track core.RemoteTrack) *Relay {
	logger := log.With().
		Str("module", "relay").
		Str("stream", string(key)).
		Str("kind", track.Kind().String()).
		Logger()

	relayCtx, cancel := context.WithCancel(ctx)
	relay := NewRelay(track, cancel)

	m.mu.Lock()
	byKind, ok := m.relays[key]
	if !ok {
		byKind = make(map[webrtc.RTPCodecType]*Relay)
		m.relays[key] = byKind
	}
	if old, ok := byKind[track.Kind()]; ok {
		logger.Info().Msg("replacing existing relay")
		old.stop()
	}
	byKind[track.Kind()] = relay
	m.mu.Unlock()

	logger.Info().Msg("starting relay loop")

	go relay.loop(relayCtx, &logger)
	return relay
}

// Sources returns the published tracks of key.
func (m *RelayManager) Sources(key domain.StreamKey) []core.RemoteTrack {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.RemoteTrack, 0, len(m.relays[key]))
	for _, r := range m.relays[key] {
		out = append(out, r.Src)
	}
	return out
}

// Subscribe adds one local track per published track of key to conn and
// attaches it to the matching relay.
func (m *RelayManager) Subscribe(key domain.StreamKey, dst SubscriberID, conn TrackAdder) error {
	m.mu.RLock()
	relays := make([]*Relay, 0, len(m.relays[key]))
	for _, r := range m.relays[key] {
		relays = append(relays, r)
	}
	m.mu.RUnlock()
	if len(relays) == 0 {
		return ErrNoSources
	}

	for _, r := range relays {
		local, err := webrtc.NewTrackLocalStaticRTP(r.Src.Codec().RTPCodecCapability, r.Src.ID(), r.Src.StreamID())
		if err != nil {
			return err
		}
		if _, err := conn.AddLocalTrack(local); err != nil {
			return err
		}
		r.AddOutTrack(dst, NewOutTrack(local))
	}
	log.Info().Str("module", "relay").Str("stream", string(key)).Str("dst", string(dst)).Int("tracks", len(relays)).Msg("subscribed")
	return nil
}

// Unsubscribe marks the OutTracks of dst for deletion on every relay of key.
func (m *RelayManager) Unsubscribe(key domain.StreamKey, dst SubscriberID) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.relays[key] {
		r.markDelete(dst)
	}
}

// StopStream stops all relays of key and forgets them.
func (m *RelayManager) StopStream(key domain.StreamKey) {
	m.mu.Lock()
	byKind, ok := m.relays[key]
	delete(m.relays, key)
	m.mu.Unlock()
	if !ok {
		return
	}
	for _, r := range byKind {
		r.stop()
	}
	log.Info().Str("module", "relay").Str("stream", string(key)).Msg("stream relays stopped")
}

// HasStream reports whether any relay runs for key.
func (m *RelayManager) HasStream(key domain.StreamKey) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.relays[key]) > 0
}
