package archive

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/smallbiznis/pizzaledger/internal/config"
	"go.uber.org/zap"
)

var ErrDisabled = errors.New("archive_disabled")

// Sink keeps exported documents outside the ledger store.
type Sink interface {
	Driver() string
	// Put stores body under key and returns the location it was written to.
	Put(ctx context.Context, key, contentType string, body []byte) (string, error)
}

func NewSink(cfg config.Config, log *zap.Logger) (Sink, error) {
	log = log.Named("archive")
	switch cfg.Archive.Driver {
	case config.ArchiveDriverNone:
		log.Info("export archive disabled")
		return disabledSink{}, nil
	case config.ArchiveDriverS3:
		sink, err := NewS3Sink(context.Background(), S3Config{
			Bucket:    cfg.Archive.S3Bucket,
			Region:    cfg.Archive.S3Region,
			Endpoint:  cfg.Archive.S3Endpoint,
			PathStyle: cfg.Archive.S3PathStyle,
			Prefix:    cfg.Archive.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("archive s3: %w", err)
		}
		log.Info("export archive on s3", zap.String("bucket", cfg.Archive.S3Bucket))
		return sink, nil
	default:
		sink, err := NewFSSink(cfg.Archive.Dir)
		if err != nil {
			return nil, fmt.Errorf("archive fs: %w", err)
		}
		log.Info("export archive on filesystem", zap.String("dir", cfg.Archive.Dir))
		return sink, nil
	}
}

type disabledSink struct{}

func (disabledSink) Driver() string { return config.ArchiveDriverNone }

func (disabledSink) Put(context.Context, string, string, []byte) (string, error) {
	return "", ErrDisabled
}

// cleanKey rejects keys that could escape the archive root.
func cleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("empty key")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return path.Clean(key), nil
}
