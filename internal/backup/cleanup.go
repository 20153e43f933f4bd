package backup

import (
	"context"
	"errors"
	"time"

	"github.com/apex/log"

	"github.com/cloudkeep/ebs-snapshot/internal/models"
)

// cleanupAll deletes the tool's expired snapshots for every volume in
// scope. Failures never stop the remaining deletions; the joined error set
// comes back at the end.
func (c *Client) cleanupAll(ctx context.Context, volumeIDs []string, cutoff time.Time, results *resultSet) error {
	c.log.WithField("cutoff", cutoff.Format(dateLayout)).Info("deleting expired snapshots")

	return forEachVolumeCollect(ctx, volumeIDs, c.config.Workers, func(ctx context.Context, volumeID string) error {
		return c.cleanupOne(ctx, volumeID, cutoff, results)
	})
}

// cleanupOne lists one volume's owned snapshots and deletes the expired
// ones. Only snapshots tagged CreatedBy=AutomatedBackup are candidates; a
// listing failure skips the volume.
func (c *Client) cleanupOne(ctx context.Context, volumeID string, cutoff time.Time, results *resultSet) error {
	snapshots, err := c.gateway.ListSnapshots(ctx, ownershipFilter(volumeID))
	if err != nil {
		qerr := &RetentionQueryError{VolumeID: volumeID, Err: err}
		c.log.WithError(err).WithField("volume", volumeID).Error("skipping cleanup for volume")
		results.update(volumeID, func(r *models.VolumeResult) { r.Error = qerr.Error() })
		return qerr
	}

	plan := planRetention(snapshots, cutoff)
	results.update(volumeID, func(r *models.VolumeResult) {
		for _, s := range plan.Live {
			r.KeptSnapshots = append(r.KeptSnapshots, s.SnapshotID)
		}
	})

	var errs []error
	for _, snapshot := range plan.Expired {
		logger := c.log.WithFields(log.Fields{
			"volume":      volumeID,
			"snapshot":    snapshot.SnapshotID,
			"description": snapshot.Description,
			"started":     snapshot.StartTime.UTC().Format(dateLayout),
		})

		if c.config.DryRun {
			logger.Info("dry run: would delete expired snapshot")
			results.update(volumeID, func(r *models.VolumeResult) {
				r.DeletedSnapshots = append(r.DeletedSnapshots, snapshot.SnapshotID)
			})
			continue
		}

		if err := c.gateway.DeleteSnapshot(ctx, snapshot.SnapshotID); err != nil {
			logger.WithError(err).Error("failed to delete expired snapshot")
			c.metrics.DeleteFailed()
			errs = append(errs, &DeleteError{SnapshotID: snapshot.SnapshotID, VolumeID: volumeID, Err: err})
			continue
		}

		c.metrics.SnapshotDeleted()
		results.update(volumeID, func(r *models.VolumeResult) {
			r.DeletedSnapshots = append(r.DeletedSnapshots, snapshot.SnapshotID)
		})
		logger.Info("deleted expired snapshot")
	}
	return errors.Join(errs...)
}
