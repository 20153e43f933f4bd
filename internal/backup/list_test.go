package backup

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudkeep/ebs-snapshot/internal/ebs"
	"github.com/cloudkeep/ebs-snapshot/internal/models"
)

func TestListVolumes(t *testing.T) {
	fake := ebs.NewFake()
	fake.AddVolume(models.Volume{
		VolumeID:         "vol-1",
		State:            "in-use",
		SourceSnapshotID: "snap-base",
		Attachment: &models.Attachment{
			InstanceID: "i-1",
			Device:     "/dev/sda1",
			State:      "attached",
		},
	})
	fake.AddVolume(models.Volume{VolumeID: "vol-2", State: "available"})

	c, _ := newTestClient(fake, Config{RetentionDays: 7})

	var buf bytes.Buffer
	require.NoError(t, c.ListVolumes(context.Background(), &buf))

	out := buf.String()
	assert.Contains(t, out, "VOLUME ID")
	assert.Contains(t, out, "SOURCE SNAPSHOT")
	assert.Contains(t, out, "vol-1")
	assert.Contains(t, out, "snap-base")
	assert.Contains(t, out, "i-1")
	assert.Contains(t, out, "/dev/sda1")

	// Detached volumes render placeholders in the attachment columns.
	assert.Contains(t, out, "vol-2")
	assert.Contains(t, out, "-")

	// Listing is read only.
	assert.Equal(t, []string{"ListVolumes"}, fake.Ops())
}

func TestListVolumesError(t *testing.T) {
	boom := errors.New("UnauthorizedOperation")

	fake := ebs.NewFake()
	fake.FailListVolumes(boom)

	c, _ := newTestClient(fake, Config{RetentionDays: 7})

	err := c.ListVolumes(context.Background(), &bytes.Buffer{})
	require.Error(t, err)

	var resolveErr *ResolveError
	assert.ErrorAs(t, err, &resolveErr)
}
