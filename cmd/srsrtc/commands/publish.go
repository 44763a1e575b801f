package commands

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/dkeye/srsrtc"
	"github.com/dkeye/srsrtc/internal/adapters/media"
	"github.com/dkeye/srsrtc/internal/adapters/rtc"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newPublishCmd(c *cli) *cobra.Command {
	var video, audio string
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish an IVF video file and an Ogg/Opus audio file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if video == "" || audio == "" {
				return errors.New("both --video and --audio are required")
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return c.publish(ctx, video, audio)
		},
	}
	cmd.Flags().StringVar(&video, "video", "", "IVF file (VP8, VP9 or AV1)")
	cmd.Flags().StringVar(&audio, "audio", "", "Ogg file with Opus audio")
	return cmd
}

func (c *cli) publish(ctx context.Context, videoPath, audioPath string) error {
	src, err := media.Open(c.cfg.SRS.Stream, videoPath, audioPath)
	if err != nil {
		return err
	}
	defer src.Close()

	pub := srsrtc.NewPublisher(c.cfg.SRS, srsrtc.WithWebRTCConfig(rtc.DefaultWebRTCConfig(c.cfg.ICEServers...)))
	defer pub.Dispose()

	if err := pub.Publish(ctx, src); err != nil {
		return err
	}
	log.Info().Str("module", "cli").Str("streamurl", c.cfg.SRS.StreamURL()).Msg("publishing")

	if err := src.Start(ctx); err != nil {
		return err
	}
	frames, pages := src.Sent()
	log.Info().Str("module", "cli").Int64("video_frames", frames).Int64("audio_pages", pages).Msg("publish finished")
	return nil
}
