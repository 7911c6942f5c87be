package config

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	// WebServer Configuration
	WebServerPort int `mapstructure:"WEBSERVER_PORT" validate:"min=1,max=65535"`

	// Download Configuration
	DownloadDir        string `mapstructure:"DOWNLOAD_DIR" validate:"required"`
	MaxActiveDownloads int    `mapstructure:"MAX_ACTIVE_DOWNLOADS" validate:"min=1"`
	DownloadQueueSize  int    `mapstructure:"DOWNLOAD_QUEUE_SIZE" validate:"min=1"`

	// Tool Configuration
	YtdlpPath   string `mapstructure:"YTDLP_PATH"`
	FfmpegPath  string `mapstructure:"FFMPEG_PATH"`
	CookiesFile string `mapstructure:"COOKIES_FILE"`

	// Retention Configuration
	SweepIntervalMinutes int `mapstructure:"SWEEP_INTERVAL_MINUTES" validate:"min=1"`
	RetentionMinutes     int `mapstructure:"RETENTION_MINUTES" validate:"min=1"`
}

// SweepInterval is the cadence of the retention sweeper.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMinutes) * time.Minute
}

// RetentionAge is how long completed download files stay on disk.
func (c *Config) RetentionAge() time.Duration {
	return time.Duration(c.RetentionMinutes) * time.Minute
}

// use reflect to bind environment variables based on mapstructure tags
func bindEnv(c Config) {
	val := reflect.ValueOf(c)
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		fieldVal := val.Field(i)
		tag := field.Tag.Get("mapstructure")

		if tag != "" {
			viper.BindEnv(tag)
		}

		// Handle nested structs
		if field.Type.Kind() == reflect.Struct && tag == "" {
			nestedTyp := fieldVal.Type()
			for j := 0; j < fieldVal.NumField(); j++ {
				nestedField := nestedTyp.Field(j)
				nestedTag := nestedField.Tag.Get("mapstructure")
				if nestedTag != "" {
					viper.BindEnv(nestedTag)
				}
			}
		}
	}
	slog.Info("Environment variables bound", "config", c)
}

func LoadConfig(ctx context.Context) (*Config, error) {
	bindEnv(Config{})
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("WEBSERVER_PORT", 5000)
	viper.SetDefault("DOWNLOAD_DIR", "downloads")
	viper.SetDefault("MAX_ACTIVE_DOWNLOADS", 4)
	viper.SetDefault("DOWNLOAD_QUEUE_SIZE", 16)
	viper.SetDefault("SWEEP_INTERVAL_MINUTES", 30)
	viper.SetDefault("RETENTION_MINUTES", 60)

	cfg := Config{}
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	slog.Info("Loaded configuration", "config", cfg)

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
