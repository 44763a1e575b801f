package sfu

import (
	"context"
	"maps"
	"sync"

	"github.com/dkeye/srsrtc/internal/core"
	"github.com/pion/rtp"
	"github.com/rs/zerolog"
)

// SubscriberID identifies one player session on the loopback server.
type SubscriberID string

// Relay copies RTP from one published track to every subscribed OutTrack.
type Relay struct {
	Src core.RemoteTrack

	mu        sync.RWMutex
	outTracks map[SubscriberID]*OutTrack

	cancel context.CancelFunc
	done   chan struct{}
}

func NewRelay(src core.RemoteTrack, cancel context.CancelFunc) *Relay {
	return &Relay{
		Src:       src,
		outTracks: make(map[SubscriberID]*OutTrack),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// loop reads RTP packets from the source track and forwards them to all OutTracks.
func (r *Relay) loop(ctx context.Context, logger *zerolog.Logger) {
	defer close(r.done)
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("relay stopped, retiring subscribers")
			r.markAllDelete()
			return
		default:
		}
		pkt, _, err := r.Src.ReadRTP()
		if err != nil {
			logger.Info().Err(err).Msg("relay source ended")
			r.markAllDelete()
			return
		}
		r.forward(pkt, logger)
	}
}

func (r *Relay) forward(pkt *rtp.Packet, logger *zerolog.Logger) {
	r.mu.RLock()
	snapshot := maps.Clone(r.outTracks)
	r.mu.RUnlock()

	dirty := make([]SubscriberID, 0)
	for dst, ot := range snapshot {
		if ot.Retired() {
			dirty = append(dirty, dst)
			continue
		}
		if err := ot.Write(pkt); err != nil {
			logger.Error().
				Err(err).
				Str("dst", string(dst)).
				Uint64("sent", ot.Sent()).
				Msg("relay write failed, dropping subscriber")
			dirty = append(dirty, dst)
		}
	}

	// Cleanup is done outside the RLock.
	if len(dirty) > 0 {
		r.cleanupDeleted(dirty)
	}
}

func (r *Relay) cleanupDeleted(dirty []SubscriberID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, dst := range dirty {
		delete(r.outTracks, dst)
	}
}

func (r *Relay) markAllDelete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ot := range r.outTracks {
		ot.Retire()
	}
}

func (r *Relay) AddOutTrack(dst SubscriberID, ot *OutTrack) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outTracks[dst] = ot
}

func (r *Relay) markDelete(dst SubscriberID) {
	r.mu.RLock()
	ot, ok := r.outTracks[dst]
	r.mu.RUnlock()
	if ok {
		ot.Retire()
	}
}

// Subscribers returns how many OutTracks are attached and not yet removed.
func (r *Relay) Subscribers() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.outTracks)
}

func (r *Relay) stop() {
	r.markAllDelete()
	if r.cancel != nil {
		r.cancel()
	}
}
