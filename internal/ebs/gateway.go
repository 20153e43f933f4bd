package ebs

import (
	"context"

	"github.com/cloudkeep/ebs-snapshot/internal/models"
)

// SnapshotFilter narrows ListSnapshots results. Both criteria are applied
// server side by the provider.
type SnapshotFilter struct {
	// VolumeID restricts results to snapshots of one volume.
	VolumeID string
	// Tags restricts results to snapshots carrying every listed tag.
	Tags map[string]string
}

// Gateway is the narrow slice of the EC2 API the tool needs. The real
// implementation wraps the AWS SDK; tests use the in-memory fake.
type Gateway interface {
	// ListVolumes returns every volume visible to the active credentials.
	ListVolumes(ctx context.Context) ([]models.Volume, error)

	// GetVolume returns one volume by id.
	GetVolume(ctx context.Context, volumeID string) (models.Volume, error)

	// CreateSnapshot starts a snapshot of the volume and returns its id.
	CreateSnapshot(ctx context.Context, volumeID, description string) (string, error)

	// GetSnapshot returns one snapshot by id, including its current state
	// and progress.
	GetSnapshot(ctx context.Context, snapshotID string) (models.Snapshot, error)

	// ListSnapshots returns the snapshots matching the filter.
	ListSnapshots(ctx context.Context, filter SnapshotFilter) ([]models.Snapshot, error)

	// DeleteSnapshot removes one snapshot by id.
	DeleteSnapshot(ctx context.Context, snapshotID string) error

	// CreateTags sets tags on a resource, overwriting existing keys.
	CreateTags(ctx context.Context, resourceID string, tags map[string]string) error

	// TagValue returns the value of one tag on a resource, or the empty
	// string when the tag is not set.
	TagValue(ctx context.Context, resourceID, key string) (string, error)
}
