package backup

import (
	"fmt"
	"strconv"
	"time"

	"github.com/cloudkeep/ebs-snapshot/internal/ebs"
	"github.com/cloudkeep/ebs-snapshot/internal/models"
)

// Tags stamped on every snapshot the tool creates. The CreatedBy value is
// the ownership marker: retention only ever considers snapshots carrying
// it, so foreign snapshots on the same volumes are never touched.
const (
	TagKeyName        = "Name"
	TagKeyCreatedBy   = "CreatedBy"
	TagValueCreatedBy = "AutomatedBackup"
	TagKeyExpiration  = "ExpirationTime"
)

const (
	// fqdnTagKey is the instance tag consulted for the snapshot Name.
	fqdnTagKey = "fqdn"

	// detachedLabel stands in for the instance id of unattached volumes.
	detachedLabel = "detached"

	secondsPerDay = 86400
	dateLayout    = "2006-01-02"
)

// snapshotDescription builds the description for a new snapshot. The date
// is the run's calendar date, shared by every snapshot of the run.
func snapshotDescription(volumeID, instanceLabel string, date time.Time) string {
	return fmt.Sprintf("%s-%s-backup-%s", volumeID, instanceLabel, date.UTC().Format(dateLayout))
}

// instanceLabel returns the instance id of an attached volume, or
// detachedLabel for volumes without one.
func instanceLabel(v models.Volume) string {
	if v.Attachment == nil || v.Attachment.InstanceID == "" {
		return detachedLabel
	}
	return v.Attachment.InstanceID
}

// deviceLabel returns the block device of an attached volume, falling back
// to the volume id.
func deviceLabel(v models.Volume) string {
	if v.Attachment == nil || v.Attachment.Device == "" {
		return v.VolumeID
	}
	return v.Attachment.Device
}

// snapshotName builds the Name tag value for an attached volume.
func snapshotName(hostname, device string) string {
	return hostname + "-" + device
}

// snapshotTags builds the full tag set for a new snapshot. ExpirationTime
// records the retention threshold in seconds; it is written for operators
// and external tooling, deletion decisions never read it back.
func snapshotTags(name string, retentionDays int) map[string]string {
	return map[string]string{
		TagKeyName:       name,
		TagKeyCreatedBy:  TagValueCreatedBy,
		TagKeyExpiration: strconv.Itoa(retentionDays * secondsPerDay),
	}
}

// ownershipFilter selects, server side, only the snapshots this tool
// created for the volume.
func ownershipFilter(volumeID string) ebs.SnapshotFilter {
	return ebs.SnapshotFilter{
		VolumeID: volumeID,
		Tags:     map[string]string{TagKeyCreatedBy: TagValueCreatedBy},
	}
}
