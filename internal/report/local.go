package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cloudkeep/ebs-snapshot/internal/models"
)

type LocalSink struct {
	dir string
}

func NewLocalSink(config *LocalConfig) (*LocalSink, error) {
	if config.Dir == "" {
		return nil, fmt.Errorf("directory is required for the local report sink")
	}

	if err := os.MkdirAll(config.Dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}

	return &LocalSink{
		dir: config.Dir,
	}, nil
}

func (l *LocalSink) Write(ctx context.Context, report *models.RunReport) error {
	path := filepath.Join(l.dir, objectName(report))

	f, err := os.Create(path) // #nosec G304 - controlled report directory
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			fmt.Printf("Warning: failed to close report file: %v\n", err)
		}
	}()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		if removeErr := os.Remove(path); removeErr != nil {
			fmt.Printf("Warning: failed to remove report file: %v\n", removeErr)
		}
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}
