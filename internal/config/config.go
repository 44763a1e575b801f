package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dkeye/srsrtc"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode         string        `mapstructure:"mode"`
	LogLevel     string        `mapstructure:"log_level"`
	Listen       string        `mapstructure:"listen"`
	RateLimit    int           `mapstructure:"rate_limit"`
	RateInterval time.Duration `mapstructure:"rate_interval"`
	ICEServers   []string      `mapstructure:"ice_servers"`
	SRS          srsrtc.Option `mapstructure:"srs"`
}

// New returns a viper instance with defaults and env binding set up. Callers
// may bind flags to it before Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("SRSRTC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", "release")
	v.SetDefault("log_level", "info")
	v.SetDefault("listen", ":1985")
	v.SetDefault("rate_limit", 30)
	v.SetDefault("rate_interval", "10s")
	v.SetDefault("ice_servers", []string{})
	v.SetDefault("srs.app", srsrtc.DefaultApp)
	v.SetDefault("srs.stream", srsrtc.DefaultStream)
	v.SetDefault("srs.ip", srsrtc.DefaultIP)
	v.SetDefault("srs.port", srsrtc.DefaultPort)
	v.SetDefault("srs.params", map[string]string{})
	v.SetDefault("srs.https", false)
	return v
}

// Load reads fileName into v, or config/config.<CONFIG_ENV>.yaml when
// fileName is empty. A missing default file is not an error; a missing
// explicit file is.
func Load(v *viper.Viper, fileName string) (*Config, error) {
	explicit := fileName != ""
	if !explicit {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		fileName = fmt.Sprintf("config/config.%s.yaml", env)
	}
	v.SetConfigFile(fileName)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !(errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("failed to read config %s: %w", fileName, err)
		}
		log.Debug().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	log.Debug().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Str("streamurl", cfg.SRS.StreamURL()).
		Msg("config ready")
	return &cfg, nil
}
