package backup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cloudkeep/ebs-snapshot/internal/models"
)

func TestSnapshotDescription(t *testing.T) {
	date := time.Date(2024, 1, 8, 10, 30, 0, 0, time.UTC)

	got := snapshotDescription("vol-1", "i-0abc", date)
	assert.Equal(t, "vol-1-i-0abc-backup-2024-01-08", got)

	got = snapshotDescription("vol-2", "detached", date)
	assert.Equal(t, "vol-2-detached-backup-2024-01-08", got)
}

func TestSnapshotDescriptionUsesUTCDate(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	date := time.Date(2024, 1, 8, 8, 0, 0, 0, tokyo)

	got := snapshotDescription("vol-1", "i-0abc", date)
	assert.Equal(t, "vol-1-i-0abc-backup-2024-01-07", got)
}

func TestInstanceLabel(t *testing.T) {
	attached := models.Volume{
		VolumeID:   "vol-1",
		Attachment: &models.Attachment{InstanceID: "i-0abc", Device: "/dev/sda1"},
	}
	assert.Equal(t, "i-0abc", instanceLabel(attached))

	detached := models.Volume{VolumeID: "vol-2"}
	assert.Equal(t, "detached", instanceLabel(detached))

	noInstance := models.Volume{
		VolumeID:   "vol-3",
		Attachment: &models.Attachment{Device: "/dev/sda1"},
	}
	assert.Equal(t, "detached", instanceLabel(noInstance))
}

func TestDeviceLabel(t *testing.T) {
	attached := models.Volume{
		VolumeID:   "vol-1",
		Attachment: &models.Attachment{InstanceID: "i-0abc", Device: "/dev/xvdf"},
	}
	assert.Equal(t, "/dev/xvdf", deviceLabel(attached))

	noDevice := models.Volume{
		VolumeID:   "vol-2",
		Attachment: &models.Attachment{InstanceID: "i-0abc"},
	}
	assert.Equal(t, "vol-2", deviceLabel(noDevice))
}

func TestSnapshotTags(t *testing.T) {
	tags := snapshotTags("web-1.example.com-/dev/sda1", 7)

	assert.Equal(t, map[string]string{
		"Name":           "web-1.example.com-/dev/sda1",
		"CreatedBy":      "AutomatedBackup",
		"ExpirationTime": "604800",
	}, tags)
}

func TestOwnershipFilter(t *testing.T) {
	filter := ownershipFilter("vol-1")

	assert.Equal(t, "vol-1", filter.VolumeID)
	assert.Equal(t, map[string]string{"CreatedBy": "AutomatedBackup"}, filter.Tags)
}
