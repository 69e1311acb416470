package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Lobby struct {
	CodeLength    int           `mapstructure:"code_length"`
	MinPlayers    int           `mapstructure:"min_players"`
	MaxPlayers    int           `mapstructure:"max_players"`
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type Broadcast struct {
	Buffer int    `mapstructure:"buffer"`
	Policy string `mapstructure:"policy"`
}

type JoinLimit struct {
	Count    int           `mapstructure:"count"`
	Interval time.Duration `mapstructure:"interval"`
}

type Redis struct {
	// Addr empty disables the snapshot mirror.
	Addr string        `mapstructure:"addr"`
	TTL  time.Duration `mapstructure:"ttl"`
}

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`

	Lobby     Lobby     `mapstructure:"lobby"`
	Broadcast Broadcast `mapstructure:"broadcast"`
	JoinLimit JoinLimit `mapstructure:"join_limit"`
	Redis     Redis     `mapstructure:"redis"`
}

// Load reads .env, then config/config.<CONFIG_ENV>.yaml, then LOBBY_*
// environment overrides.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("secret", "")

	v.SetDefault("lobby.code_length", 6)
	v.SetDefault("lobby.min_players", 1)
	v.SetDefault("lobby.max_players", 0)
	v.SetDefault("lobby.idle_timeout", "30m")
	v.SetDefault("lobby.sweep_interval", "1m")

	v.SetDefault("broadcast.buffer", 64)
	v.SetDefault("broadcast.policy", "drop_subscription")

	v.SetDefault("join_limit.count", 10)
	v.SetDefault("join_limit.interval", "1m")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.ttl", "10m")
}

// LoadFile is Load without the .env step. A missing file means defaults.
func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.SetEnvPrefix("LOBBY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", fileName, err)
		}
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).
		Str("policy", cfg.Broadcast.Policy).Bool("mirror", cfg.Redis.Addr != "").Msg("config ready")
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Lobby.CodeLength < 4:
		return fmt.Errorf("lobby.code_length must be at least 4, got %d", c.Lobby.CodeLength)
	case c.Lobby.MinPlayers < 1:
		return fmt.Errorf("lobby.min_players must be at least 1, got %d", c.Lobby.MinPlayers)
	case c.Lobby.MaxPlayers != 0 && c.Lobby.MaxPlayers < c.Lobby.MinPlayers:
		return fmt.Errorf("lobby.max_players %d is below min_players %d", c.Lobby.MaxPlayers, c.Lobby.MinPlayers)
	case c.Broadcast.Policy != "drop_subscription" && c.Broadcast.Policy != "skip_event":
		return fmt.Errorf("broadcast.policy must be drop_subscription or skip_event, got %q", c.Broadcast.Policy)
	}
	return nil
}
