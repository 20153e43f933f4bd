package report

import (
	"context"

	"github.com/cloudkeep/ebs-snapshot/internal/models"
)

// Sink persists the report a run produces. Sinks are write-only; reports
// are operator artifacts and nothing in the tool reads them back.
type Sink interface {
	Write(ctx context.Context, report *models.RunReport) error
}

type Config struct {
	Type  string
	Local *LocalConfig
	S3    *S3Config
	GCS   *GCSConfig
}

type LocalConfig struct {
	Dir string
}

type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Prefix    string
}

type GCSConfig struct {
	Bucket      string
	Credentials string
	Prefix      string
}

// objectName derives the artifact name from the run start time so repeated
// runs never overwrite each other.
func objectName(report *models.RunReport) string {
	return "ebs-snapshot-" + report.StartedAt.UTC().Format("20060102-150405") + ".json"
}
