package report

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudkeep/ebs-snapshot/internal/models"
)

func testReport() *models.RunReport {
	return &models.RunReport{
		Region:        "us-east-1",
		Profile:       "ebs-snapshot",
		RetentionDays: 30,
		Cutoff:        "2024-01-01",
		StartedAt:     time.Date(2024, 1, 31, 8, 30, 15, 0, time.UTC),
		FinishedAt:    time.Date(2024, 1, 31, 8, 31, 0, 0, time.UTC),
		Volumes: []models.VolumeResult{
			{
				VolumeID:         "vol-1",
				SnapshotID:       "snap-0001",
				DeletedSnapshots: []string{"snap-old"},
			},
		},
		Version: "dev",
	}
}

func TestLocalSinkWrite(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewLocalSink(&LocalConfig{Dir: dir})
	require.NoError(t, err)

	require.NoError(t, sink.Write(context.Background(), testReport()))

	path := filepath.Join(dir, "ebs-snapshot-20240131-083015.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got models.RunReport
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "us-east-1", got.Region)
	assert.Equal(t, 30, got.RetentionDays)
	require.Len(t, got.Volumes, 1)
	assert.Equal(t, "snap-0001", got.Volumes[0].SnapshotID)
	assert.Equal(t, []string{"snap-old"}, got.Volumes[0].DeletedSnapshots)
}

func TestLocalSinkCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports", "nested")

	_, err := NewLocalSink(&LocalConfig{Dir: dir})
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLocalSinkRequiresDir(t *testing.T) {
	_, err := NewLocalSink(&LocalConfig{})
	require.Error(t, err)
}

func TestObjectNameUsesUTC(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	r := &models.RunReport{StartedAt: time.Date(2024, 2, 1, 1, 0, 0, 0, tokyo)}

	assert.Equal(t, "ebs-snapshot-20240131-160000.json", objectName(r))
}
