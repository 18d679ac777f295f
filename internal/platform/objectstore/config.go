package objectstore

import (
	"errors"
	"strings"

	"github.com/dealflow-labs/dealflow-go/internal/platform/env"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string

	BucketDecks string
	BucketMemos string
}

func ConfigFromEnv() (Config, error) {
	useSSL, err := env.Bool("DEALFLOW_S3_USE_SSL", false)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Endpoint:    env.String("DEALFLOW_S3_ENDPOINT", "localhost:9000"),
		AccessKey:   env.String("DEALFLOW_S3_ACCESS_KEY", ""),
		SecretKey:   env.String("DEALFLOW_S3_SECRET_KEY", ""),
		UseSSL:      useSSL,
		Region:      env.String("DEALFLOW_S3_REGION", "us-east-1"),
		BucketDecks: env.String("DEALFLOW_S3_BUCKET_DECKS", "dealflow-decks"),
		BucketMemos: env.String("DEALFLOW_S3_BUCKET_MEMOS", "dealflow-memos"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("DEALFLOW_S3_ENDPOINT is required")
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		return errors.New("DEALFLOW_S3_ACCESS_KEY is required")
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("DEALFLOW_S3_SECRET_KEY is required")
	}
	if strings.TrimSpace(c.BucketDecks) == "" {
		return errors.New("DEALFLOW_S3_BUCKET_DECKS is required")
	}
	if strings.TrimSpace(c.BucketMemos) == "" {
		return errors.New("DEALFLOW_S3_BUCKET_MEMOS is required")
	}
	return nil
}
