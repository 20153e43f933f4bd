package report

import (
	"context"
	"encoding/json"
	"fmt"
	"path"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/cloudkeep/ebs-snapshot/internal/models"
)

type GCSSink struct {
	client *storage.Client
	bucket string
	prefix string
}

func NewGCSSink(ctx context.Context, config *GCSConfig) (*GCSSink, error) {
	if config.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required for the GCS report sink")
	}

	var opts []option.ClientOption
	if config.Credentials != "" {
		opts = append(opts, option.WithCredentialsFile(config.Credentials))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSSink{
		client: client,
		bucket: config.Bucket,
		prefix: config.Prefix,
	}, nil
}

func (g *GCSSink) Write(ctx context.Context, report *models.RunReport) error {
	name := objectName(report)
	if g.prefix != "" {
		name = path.Join(g.prefix, name)
	}

	w := g.client.Bucket(g.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "application/json"

	if err := json.NewEncoder(w).Encode(report); err != nil {
		if closeErr := w.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close report writer: %v\n", closeErr)
		}
		return fmt.Errorf("failed to write report: %w", err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close report writer: %w", err)
	}

	return nil
}

func (g *GCSSink) Close() error {
	return g.client.Close()
}
