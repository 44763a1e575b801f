package commands

import (
	"context"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/dkeye/srsrtc"
	"github.com/dkeye/srsrtc/internal/adapters/rtc"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newPlayCmd(c *cli) *cobra.Command {
	var duration time.Duration
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a stream and report received RTP packets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			if duration > 0 {
				var stop context.CancelFunc
				ctx, stop = context.WithTimeout(ctx, duration)
				defer stop()
			}
			return c.play(ctx)
		},
	}
	cmd.Flags().DurationVar(&duration, "duration", 0, "stop after this long (0 runs until interrupted)")
	return cmd
}

func (c *cli) play(ctx context.Context) error {
	player := srsrtc.NewPlayer(c.cfg.SRS, srsrtc.WithWebRTCConfig(rtc.DefaultWebRTCConfig(c.cfg.ICEServers...)))
	defer player.Dispose()

	stream, err := player.Play(ctx)
	if err != nil {
		return err
	}
	log.Info().Str("module", "cli").Str("streamurl", c.cfg.SRS.StreamURL()).Str("stream", stream.ID()).Msg("playing")

	var (
		mu      sync.Mutex
		stopped bool
		wg      sync.WaitGroup
		packets atomic.Int64
	)
	stream.OnTrack(func(track srsrtc.RemoteTrack) {
		mu.Lock()
		if stopped {
			mu.Unlock()
			return
		}
		wg.Add(1)
		mu.Unlock()

		log.Info().Str("module", "cli").Str("track", track.ID()).Str("kind", track.Kind().String()).Str("codec", track.Codec().MimeType).Msg("track received")
		go func() {
			defer wg.Done()
			for {
				if _, _, err := track.ReadRTP(); err != nil {
					return
				}
				packets.Add(1)
			}
		}()
	})

	<-ctx.Done()
	mu.Lock()
	stopped = true
	mu.Unlock()
	player.Dispose()
	wg.Wait()
	log.Info().Str("module", "cli").Int64("packets", packets.Load()).Int("tracks", len(stream.Tracks())).Msg("play finished")
	return nil
}
