package ebs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudkeep/ebs-snapshot/internal/models"
)

func TestFakeListSnapshotsFilters(t *testing.T) {
	f := NewFake()
	f.AddSnapshot(models.Snapshot{
		SnapshotID: "snap-owned",
		VolumeID:   "vol-1",
		Tags:       map[string]string{"CreatedBy": "AutomatedBackup"},
	})
	f.AddSnapshot(models.Snapshot{
		SnapshotID: "snap-foreign",
		VolumeID:   "vol-1",
	})
	f.AddSnapshot(models.Snapshot{
		SnapshotID: "snap-other-volume",
		VolumeID:   "vol-2",
		Tags:       map[string]string{"CreatedBy": "AutomatedBackup"},
	})

	got, err := f.ListSnapshots(context.Background(), SnapshotFilter{
		VolumeID: "vol-1",
		Tags:     map[string]string{"CreatedBy": "AutomatedBackup"},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "snap-owned", got[0].SnapshotID)

	all, err := f.ListSnapshots(context.Background(), SnapshotFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestFakeNotFoundErrors(t *testing.T) {
	f := NewFake()

	_, err := f.GetVolume(context.Background(), "vol-missing")
	require.Error(t, err)
	var apiErr smithy.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "InvalidVolume.NotFound", apiErr.ErrorCode())

	err = f.DeleteSnapshot(context.Background(), "snap-missing")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "InvalidSnapshot.NotFound", apiErr.ErrorCode())
}

func TestFakeRecordsOpsInOrder(t *testing.T) {
	f := NewFake()
	f.AddVolume(models.Volume{VolumeID: "vol-1"})

	ctx := context.Background()
	id, err := f.CreateSnapshot(ctx, "vol-1", "test")
	require.NoError(t, err)
	require.NoError(t, f.CreateTags(ctx, id, map[string]string{"Name": "x"}))
	require.NoError(t, f.DeleteSnapshot(ctx, id))

	assert.Equal(t, []string{
		"CreateSnapshot vol-1",
		"CreateTags snap-0001",
		"DeleteSnapshot snap-0001",
	}, f.Ops())
}

func TestFakeSnapshotProgression(t *testing.T) {
	f := NewFake()
	f.AddVolume(models.Volume{VolumeID: "vol-1"})
	now := time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC)
	f.SetClock(func() time.Time { return now })

	ctx := context.Background()
	id, err := f.CreateSnapshot(ctx, "vol-1", "test")
	require.NoError(t, err)

	s, ok := f.Snapshot(id)
	require.True(t, ok)
	assert.Equal(t, models.SnapshotStatePending, s.State)
	assert.Equal(t, now, s.StartTime)

	s, err = f.GetSnapshot(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.SnapshotStatePending, s.State)
	assert.Equal(t, "50%", s.Progress)

	s, err = f.GetSnapshot(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.SnapshotStateCompleted, s.State)
	assert.Equal(t, "100%", s.Progress)
}

func TestFakeSnapshotProgressionToError(t *testing.T) {
	f := NewFake()
	f.AddVolume(models.Volume{VolumeID: "vol-1"})
	f.FinishSnapshotsAs(models.SnapshotStateError)

	ctx := context.Background()
	id, err := f.CreateSnapshot(ctx, "vol-1", "test")
	require.NoError(t, err)

	_, err = f.GetSnapshot(ctx, id)
	require.NoError(t, err)
	s, err := f.GetSnapshot(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.SnapshotStateError, s.State)
}

func TestFakeTagValue(t *testing.T) {
	f := NewFake()
	f.SetInstanceTag("i-1", "fqdn", "db01.example.com")

	ctx := context.Background()
	v, err := f.TagValue(ctx, "i-1", "fqdn")
	require.NoError(t, err)
	assert.Equal(t, "db01.example.com", v)

	v, err = f.TagValue(ctx, "i-1", "missing")
	require.NoError(t, err)
	assert.Empty(t, v)

	v, err = f.TagValue(ctx, "i-unknown", "fqdn")
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestFakeErrorInjection(t *testing.T) {
	f := NewFake()
	f.AddVolume(models.Volume{VolumeID: "vol-1"})
	f.AddSnapshot(models.Snapshot{SnapshotID: "snap-old", VolumeID: "vol-1"})

	boom := errors.New("boom")
	f.FailCreate("vol-1", boom)
	f.FailDelete("snap-old", boom)
	f.FailListSnapshots("vol-1", boom)
	f.FailListVolumes(boom)

	ctx := context.Background()
	_, err := f.CreateSnapshot(ctx, "vol-1", "x")
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, f.DeleteSnapshot(ctx, "snap-old"), boom)
	_, err = f.ListSnapshots(ctx, SnapshotFilter{VolumeID: "vol-1"})
	assert.ErrorIs(t, err, boom)
	_, err = f.ListVolumes(ctx)
	assert.ErrorIs(t, err, boom)

	// The failed delete left the snapshot in place.
	_, ok := f.Snapshot("snap-old")
	assert.True(t, ok)
}

func TestFakeCreateTagsUnknownResource(t *testing.T) {
	f := NewFake()
	err := f.CreateTags(context.Background(), "snap-missing", map[string]string{"Name": "x"})
	require.Error(t, err)
	var apiErr smithy.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "InvalidID", apiErr.ErrorCode())
}
