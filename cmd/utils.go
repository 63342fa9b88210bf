package cmd

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"runtime"

	"eval-backend/internal/artifacts"
	"eval-backend/internal/config"
	"eval-backend/internal/producer"
	"eval-backend/internal/storage"

	"github.com/joho/godotenv"
)

func LoadEnvFile() {
	var configPath string

	flag.StringVar(&configPath, "env", "", "path to load env from")
	flag.Parse()

	if configPath == "" {
		log.Printf("no env file specified, using os.Environ only")
		return
	}

	log.Printf("loading env from file %s", configPath)
	err := godotenv.Load(configPath)
	if err != nil {
		log.Fatalf("error loading .env file '%s': %v", configPath, err)
	}
}

func SetupLogger(level, format string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		log.Printf("invalid log level '%s', using info", level)
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// NewArtifactStore returns the store results are read from, and, when that is
// not the local output directory, the same store as a publish target for
// script runs.
func NewArtifactStore(ctx context.Context, cfg *config.Config) (store *artifacts.Store, publish *artifacts.Store, err error) {
	if cfg.ArtifactStore != config.ArtifactStoreS3 {
		// The output directory itself is the bucket.
		provider := storage.NewLocalProvider(cfg.OutputDir)
		return artifacts.NewStore(provider, ""), nil, nil
	}

	s3p, err := storage.NewS3Provider(&storage.S3ProviderConfig{
		S3EndpointURL:     cfg.S3EndpointURL,
		S3AccessKeyID:     cfg.S3AccessKeyID,
		S3SecretAccessKey: cfg.S3SecretAccessKey,
		S3Region:          cfg.S3Region,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("error creating s3 provider: %w", err)
	}

	if err := s3p.CreateBucket(ctx, cfg.ArtifactBucket); err != nil {
		return nil, nil, fmt.Errorf("error creating artifact bucket %s: %w", cfg.ArtifactBucket, err)
	}

	store = artifacts.NewStore(s3p, cfg.ArtifactBucket)
	slog.Info("using s3 artifact store", "bucket", cfg.ArtifactBucket, "endpoint", cfg.S3EndpointURL)
	return store, store, nil
}

func NewProcessRunner(cfg *config.Config, publish *artifacts.Store) (*producer.ProcessRunner, error) {
	builder, err := producer.SelectCommandBuilder(runtime.GOOS, producer.ShellOptions{
		Mode:          cfg.ShellMode,
		NativeShell:   cfg.NativeShell,
		AlternatePath: cfg.AltShellPath,
		MountRoot:     cfg.AltShellMountRoot,
	})
	if err != nil {
		return nil, err
	}

	return producer.NewProcessRunner(producer.ProcessRunnerConfig{
		ScriptsDir:     cfg.ScriptsDir,
		Script:         cfg.EvalScript,
		OutputDir:      cfg.OutputDir,
		Builder:        builder,
		Timeout:        cfg.RunTimeout,
		MaxOutputBytes: cfg.MaxOutputBytes,
		Publish:        publish,
	}), nil
}
