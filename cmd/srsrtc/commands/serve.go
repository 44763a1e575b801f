package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	router "github.com/dkeye/srsrtc/internal/adapters/http"
	"github.com/dkeye/srsrtc/internal/adapters/rtc"
	"github.com/dkeye/srsrtc/internal/app/orch"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a local SRS-compatible signaling server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return c.serve(ctx)
		},
	}
	cmd.Flags().String("listen", ":1985", "listen address")
	_ = c.v.BindPFlag("listen", cmd.Flags().Lookup("listen"))
	return cmd
}

func (c *cli) serve(ctx context.Context) error {
	webrtcCfg := rtc.DefaultWebRTCConfig(c.cfg.ICEServers...)
	o := orch.New(func(label string) (orch.Answerer, error) {
		return rtc.NewWebRTCConnection(webrtcCfg, label)
	})
	defer o.Close()

	srv := &http.Server{
		Addr:    c.cfg.Listen,
		Handler: router.SetupRouter(c.cfg, o),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("module", "cli").Str("addr", srv.Addr).Str("server", o.ServerID).Msg("signaling server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Str("module", "cli").Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Str("module", "cli").Msg("server forced to shutdown")
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Str("module", "cli").Msg("server exited gracefully")
	return nil
}
