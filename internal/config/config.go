package config

import (
	"errors"
	"fmt"
	"time"

	"geobot/internal/common"
	"geobot/internal/geoguesser"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	STORE_SQLITE = "sqlite"
	STORE_REDIS  = "redis"
	STORE_MEMORY = "memory"
)

type Config struct {
	DiscordToken  string `env:"DISCORD_TOKEN"`
	MapsApiKey    string `env:"GOOGLE_MAPS_API_KEY"`
	CommandPrefix string `env:"COMMAND_PREFIX" envDefault:"!"`

	LocationStore string `env:"LOCATION_STORE" envDefault:"sqlite"`
	DBPath        string `env:"DB_PATH" envDefault:"geobot.db"`
	RedisURL      string `env:"REDIS_URL"`
	ImageCacheDir string `env:"IMAGE_CACHE_DIR" envDefault:"images"`

	Rounds                 int           `env:"ROUNDS" envDefault:"5"`
	GuessTime              time.Duration `env:"GUESS_TIME" envDefault:"20s"`
	InterRoundDelay        time.Duration `env:"INTER_ROUND_DELAY" envDefault:"5s"`
	SelectTimeout          time.Duration `env:"SELECT_TIMEOUT" envDefault:"30s"`
	MaxSampleAttempts      int           `env:"MAX_SAMPLE_ATTEMPTS" envDefault:"25"`
	MaxConsecutiveFailures int           `env:"MAX_CONSECUTIVE_FAILURES" envDefault:"3"`

	MapsRequestsPerSecond int           `env:"MAPS_REQUESTS_PER_SECOND" envDefault:"50"`
	MapsTimeout           time.Duration `env:"MAPS_TIMEOUT" envDefault:"10s"`

	AdminAddr string        `env:"ADMIN_ADDR" envDefault:":9090"`
	LogLevel  zerolog.Level `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool          `env:"LOG_PRETTY" envDefault:"false"`
}

// Read the optional .env file and then the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, using the environment only")
	}
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) Validate() error {
	var errs []error
	if cfg.DiscordToken == "" {
		errs = append(errs, fmt.Errorf("DISCORD_TOKEN is not set"))
	}
	if cfg.MapsApiKey == "" {
		errs = append(errs, fmt.Errorf("GOOGLE_MAPS_API_KEY is not set"))
	}
	if cfg.CommandPrefix == "" {
		errs = append(errs, fmt.Errorf("COMMAND_PREFIX must not be empty"))
	}
	switch cfg.LocationStore {
	case STORE_SQLITE, STORE_MEMORY:
	case STORE_REDIS:
		if cfg.RedisURL == "" {
			errs = append(errs, fmt.Errorf("REDIS_URL is required when LOCATION_STORE is redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown LOCATION_STORE %q", cfg.LocationStore))
	}
	if cfg.Rounds <= 0 {
		errs = append(errs, fmt.Errorf("ROUNDS must be > 0"))
	}
	if cfg.GuessTime <= 0 {
		errs = append(errs, fmt.Errorf("GUESS_TIME must be > 0"))
	}
	if cfg.InterRoundDelay < 0 {
		errs = append(errs, fmt.Errorf("INTER_ROUND_DELAY must not be negative"))
	}
	if cfg.MaxSampleAttempts <= 0 {
		errs = append(errs, fmt.Errorf("MAX_SAMPLE_ATTEMPTS must be > 0"))
	}
	if cfg.MaxConsecutiveFailures <= 0 {
		errs = append(errs, fmt.Errorf("MAX_CONSECUTIVE_FAILURES must be > 0"))
	}
	if cfg.MapsRequestsPerSecond <= 0 {
		errs = append(errs, fmt.Errorf("MAPS_REQUESTS_PER_SECOND must be > 0"))
	}
	return errors.Join(errs...)
}

func (cfg *Config) GameOptions() geoguesser.Options {
	options := geoguesser.DefaultOptions()
	options.Rounds = cfg.Rounds
	options.GuessTime = cfg.GuessTime
	options.InterRoundDelay = cfg.InterRoundDelay
	options.SelectTimeout = cfg.SelectTimeout
	options.MaxConsecutiveFailures = cfg.MaxConsecutiveFailures
	return options
}

// Request budget for the maps APIs
func (cfg *Config) MapsRestrictions() []common.Restriction {
	return []common.Restriction{
		{Requests: cfg.MapsRequestsPerSecond, Duration: time.Second},
		{Requests: cfg.MapsRequestsPerSecond * 30, Duration: time.Minute},
	}
}
