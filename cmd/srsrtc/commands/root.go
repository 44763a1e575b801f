package commands

import (
	"os"

	"github.com/dkeye/srsrtc"
	"github.com/dkeye/srsrtc/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// cli carries the configuration shared by every subcommand.
type cli struct {
	v   *viper.Viper
	cfg *config.Config
}

// flagKeys maps persistent flags to config keys.
var flagKeys = map[string]string{
	"log-level":  "log_level",
	"mode":       "mode",
	"ice-server": "ice_servers",
	"ip":         "srs.ip",
	"port":       "srs.port",
	"app":        "srs.app",
	"stream":     "srs.stream",
	"param":      "srs.params",
	"https":      "srs.https",
}

// NewRootCmd returns the srsrtc command tree.
func NewRootCmd() *cobra.Command {
	cmd, _ := newRootCmd()
	return cmd
}

func newRootCmd() (*cobra.Command, *cli) {
	c := &cli{v: config.New()}

	cmd := &cobra.Command{
		Use:               "srsrtc",
		Short:             "Publish and play WebRTC streams through SRS",
		SilenceUsage:      true,
		TraverseChildren:  true,
		PersistentPreRunE: c.load,
	}

	f := cmd.PersistentFlags()
	f.String("config", "", "config file (default config/config.<CONFIG_ENV>.yaml)")
	f.String("log-level", "info", "trace, debug, info, warn, error")
	f.String("mode", "release", "release, debug or test")
	f.StringSlice("ice-server", nil, "ICE server URL, repeatable")
	f.String("ip", srsrtc.DefaultIP, "SRS server address")
	f.Int("port", srsrtc.DefaultPort, "SRS HTTP API port")
	f.String("app", srsrtc.DefaultApp, "SRS app name")
	f.String("stream", srsrtc.DefaultStream, "SRS stream name")
	f.StringToString("param", nil, "stream URL query parameter key=value, repeatable")
	f.Bool("https", false, "use https for the signaling API")

	for name, key := range flagKeys {
		_ = c.v.BindPFlag(key, f.Lookup(name))
	}

	cmd.AddCommand(newPublishCmd(c), newPlayCmd(c), newServeCmd(c))
	return cmd, c
}

func (c *cli) load(cmd *cobra.Command, _ []string) error {
	setupLogging(c.v.GetString("log_level"))

	file, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	cfg, err := config.Load(c.v, file)
	if err != nil {
		return err
	}
	setupLogging(cfg.LogLevel)
	c.cfg = cfg
	return nil
}

func setupLogging(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
