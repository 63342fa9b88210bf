package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	ArtifactStoreLocal = "local"
	ArtifactStoreS3    = "s3"
)

type Config struct {
	Port string `env:"PORT" envDefault:"3001"`

	StagingDir string `env:"STAGING_DIR" envDefault:"./test_data"`
	OutputDir  string `env:"OUTPUT_DIR" envDefault:"./output"`
	ScriptsDir string `env:"SCRIPTS_DIR" envDefault:"./scripts"`
	EvalScript string `env:"EVAL_SCRIPT" envDefault:"complete_evaluation.sh"`

	ShellMode         string `env:"SHELL_MODE" envDefault:"auto"`
	NativeShell       string `env:"NATIVE_SHELL" envDefault:"bash"`
	AltShellPath      string `env:"ALT_SHELL_PATH" envDefault:"C:\\Program Files\\Git\\bin\\bash.exe"`
	AltShellMountRoot string `env:"ALT_SHELL_MOUNT_ROOT"`

	RunTimeout     time.Duration `env:"RUN_TIMEOUT" envDefault:"600s"`
	MaxOutputBytes int           `env:"MAX_OUTPUT_BYTES" envDefault:"10485760"`
	MockDelay      time.Duration `env:"MOCK_DELAY" envDefault:"2s"`

	ArtifactStore     string `env:"ARTIFACT_STORE" envDefault:"local"`
	ArtifactBucket    string `env:"ARTIFACT_BUCKET" envDefault:"evaluation-output"`
	S3EndpointURL     string `env:"S3_ENDPOINT_URL"`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	S3Region          string `env:"AWS_REGION" envDefault:"us-east-1"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	MaxUploadBytes int64    `env:"MAX_UPLOAD_BYTES" envDefault:"1073741824"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first if one exists; variables already set win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded, using environment only", "error", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.ArtifactStore {
	case ArtifactStoreLocal:
	case ArtifactStoreS3:
		if c.ArtifactBucket == "" {
			return fmt.Errorf("ARTIFACT_BUCKET is required when ARTIFACT_STORE=%s", ArtifactStoreS3)
		}
		if c.S3EndpointURL != "" && (c.S3AccessKeyID == "" || c.S3SecretAccessKey == "") {
			slog.Warn("S3_ENDPOINT_URL is set, but AWS_ACCESS_KEY_ID or AWS_SECRET_ACCESS_KEY are missing")
		}
	default:
		return fmt.Errorf("invalid ARTIFACT_STORE '%s': must be %s or %s", c.ArtifactStore, ArtifactStoreLocal, ArtifactStoreS3)
	}

	if c.RunTimeout <= 0 {
		return fmt.Errorf("RUN_TIMEOUT must be positive, got %v", c.RunTimeout)
	}
	if c.MaxOutputBytes <= 0 {
		return fmt.Errorf("MAX_OUTPUT_BYTES must be positive, got %d", c.MaxOutputBytes)
	}
	if c.MockDelay < 0 {
		return fmt.Errorf("MOCK_DELAY must not be negative, got %v", c.MockDelay)
	}

	c.LogLevel = strings.ToLower(c.LogLevel)
	c.LogFormat = strings.ToLower(c.LogFormat)
	return nil
}
