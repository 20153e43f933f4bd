package report

import (
	"context"
	"fmt"
)

// NewSink builds the configured sink. Type "" and "none" disable reporting
// and yield a nil Sink.
func NewSink(ctx context.Context, config *Config) (Sink, error) {
	switch config.Type {
	case "", "none":
		return nil, nil

	case "local":
		if config.Local == nil {
			return nil, fmt.Errorf("local configuration is required")
		}
		return NewLocalSink(config.Local)

	case "s3":
		if config.S3 == nil {
			return nil, fmt.Errorf("S3 configuration is required")
		}
		return NewS3Sink(ctx, config.S3)

	case "gcs":
		if config.GCS == nil {
			return nil, fmt.Errorf("GCS configuration is required")
		}
		return NewGCSSink(ctx, config.GCS)

	default:
		return nil, fmt.Errorf("unsupported report sink type: %s", config.Type)
	}
}
