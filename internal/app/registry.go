package app

import (
	"errors"
	"sort"
	"sync"

	"github.com/dkeye/srsrtc/internal/domain"
	"github.com/rs/zerolog/log"
)

var ErrStreamBusy = errors.New("stream already published")

type SessionID string

type Role string

const (
	RolePublisher Role = "publisher"
	RolePlayer    Role = "player"
)

// Closer is the connection a session owns.
type Closer interface {
	Close()
}

type sessionEntry struct {
	Stream domain.StreamKey
	Role   Role
	Conn   Closer
}

// StreamInfo is a read-only view of one stream for the API.
type StreamInfo struct {
	Stream    domain.StreamKey `json:"stream"`
	Publisher SessionID        `json:"publisher"`
	Players   int              `json:"players"`
}

// Registry tracks the sessions of the loopback server. At most one publisher
// exists per stream.
type Registry struct {
	mu         sync.RWMutex
	sessions   map[SessionID]*sessionEntry
	publishers map[domain.StreamKey]SessionID
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:   make(map[SessionID]*sessionEntry),
		publishers: make(map[domain.StreamKey]SessionID),
	}
}

// ClaimPublisher reserves key for sid. It fails with ErrStreamBusy while
// another publisher holds the stream.
func (r *Registry) ClaimPublisher(key domain.StreamKey, sid SessionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if owner, ok := r.publishers[key]; ok && owner != sid {
		return ErrStreamBusy
	}
	r.publishers[key] = sid
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("stream", string(key)).Msg("claimed stream")
	return nil
}

// ReleasePublisher frees key if sid still owns it and reports whether it did.
func (r *Registry) ReleasePublisher(key domain.StreamKey, sid SessionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.publishers[key] != sid {
		return false
	}
	delete(r.publishers, key)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("stream", string(key)).Msg("released stream")
	return true
}

func (r *Registry) HasPublisher(key domain.StreamKey) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.publishers[key]
	return ok
}

func (r *Registry) Bind(sid SessionID, key domain.StreamKey, role Role, conn Closer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sid] = &sessionEntry{Stream: key, Role: role, Conn: conn}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("stream", string(key)).Str("role", string(role)).Msg("bound session")
}

func (r *Registry) Unbind(sid SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[sid]; !ok {
		return
	}
	delete(r.sessions, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbind session")
}

func (r *Registry) Streams() []StreamInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byKey := make(map[domain.StreamKey]*StreamInfo, len(r.publishers))
	for key, sid := range r.publishers {
		byKey[key] = &StreamInfo{Stream: key, Publisher: sid}
	}
	for _, e := range r.sessions {
		if e.Role != RolePlayer {
			continue
		}
		if info, ok := byKey[e.Stream]; ok {
			info.Players++
		}
	}
	out := make([]StreamInfo, 0, len(byKey))
	for _, info := range byKey {
		out = append(out, *info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Stream < out[j].Stream })
	return out
}

// CloseAll closes every bound connection. Close callbacks may call back
// into the registry, so connections are closed outside the lock.
func (r *Registry) CloseAll() {
	r.mu.RLock()
	conns := make([]Closer, 0, len(r.sessions))
	for _, e := range r.sessions {
		conns = append(conns, e.Conn)
	}
	r.mu.RUnlock()
	for _, c := range conns {
		c.Close()
	}
}
