package backup

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/apex/log"

	"github.com/cloudkeep/ebs-snapshot/internal/models"
)

// createAll snapshots every volume in scope. The first failure aborts the
// phase and with it the run, so retention never evaluates a partially
// snapshotted scope. Returns the ids of the created snapshots.
func (c *Client) createAll(ctx context.Context, volumeIDs []string, started time.Time, results *resultSet) ([]string, error) {
	var (
		mu      sync.Mutex
		created []string
	)
	err := forEachVolume(ctx, volumeIDs, c.config.Workers, func(ctx context.Context, volumeID string) error {
		snapshotID, err := c.createOne(ctx, volumeID, started, results)
		if err != nil {
			c.metrics.CreateFailed()
			results.update(volumeID, func(r *models.VolumeResult) { r.Error = err.Error() })
			return err
		}
		if snapshotID != "" {
			mu.Lock()
			created = append(created, snapshotID)
			mu.Unlock()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(created)
	return created, nil
}

// createOne snapshots a single volume and stamps the ownership tags. In
// dry-run mode it only logs the decision and returns an empty id.
func (c *Client) createOne(ctx context.Context, volumeID string, started time.Time, results *resultSet) (string, error) {
	volume, err := c.gateway.GetVolume(ctx, volumeID)
	if err != nil {
		return "", &CreateError{VolumeID: volumeID, Err: err}
	}

	label := instanceLabel(volume)
	name := volume.VolumeID
	if label != detachedLabel {
		hostname, err := c.hostLabel(ctx, volume.Attachment.InstanceID)
		if err != nil {
			return "", &CreateError{VolumeID: volumeID, Err: err}
		}
		name = snapshotName(hostname, deviceLabel(volume))
	}

	description := snapshotDescription(volumeID, label, started)
	logger := c.log.WithFields(log.Fields{
		"volume":      volumeID,
		"instance":    label,
		"name":        name,
		"description": description,
	})

	if c.config.DryRun {
		logger.Info("dry run: would create snapshot")
		results.update(volumeID, func(r *models.VolumeResult) {
			r.SnapshotName = name
			r.Description = description
		})
		return "", nil
	}

	snapshotID, err := c.gateway.CreateSnapshot(ctx, volumeID, description)
	if err != nil {
		return "", &CreateError{VolumeID: volumeID, Err: err}
	}

	if err := c.gateway.CreateTags(ctx, snapshotID, snapshotTags(name, c.config.RetentionDays)); err != nil {
		return "", &CreateError{VolumeID: volumeID, Err: err}
	}

	c.metrics.SnapshotCreated()
	results.update(volumeID, func(r *models.VolumeResult) {
		r.SnapshotID = snapshotID
		r.SnapshotName = name
		r.Description = description
	})
	logger.WithField("snapshot", snapshotID).Info("created snapshot")
	return snapshotID, nil
}

// hostLabel resolves the instance's fqdn tag, falling back to the instance
// id when the tag is absent. A failed lookup is a hard error.
func (c *Client) hostLabel(ctx context.Context, instanceID string) (string, error) {
	fqdn, err := c.gateway.TagValue(ctx, instanceID, fqdnTagKey)
	if err != nil {
		return "", fmt.Errorf("failed to look up fqdn tag of instance %s: %w", instanceID, err)
	}
	if fqdn == "" {
		return instanceID, nil
	}
	return fqdn, nil
}
