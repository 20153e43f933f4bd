package backup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cloudkeep/ebs-snapshot/internal/models"
)

func TestTruncateToDate(t *testing.T) {
	got := truncateToDate(time.Date(2024, 1, 8, 15, 4, 5, 999, time.UTC))
	assert.Equal(t, time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), got)
}

func TestTruncateToDateConvertsToUTC(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)

	// 08:00 in Tokyo is still the previous calendar day in UTC.
	got := truncateToDate(time.Date(2024, 1, 8, 8, 0, 0, 0, tokyo))
	assert.Equal(t, time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC), got)
}

func TestRetentionCutoff(t *testing.T) {
	now := time.Date(2024, 1, 8, 10, 30, 0, 0, time.UTC)

	cutoff := retentionCutoff(now, 7)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), cutoff)
}

func TestPlanRetentionBoundary(t *testing.T) {
	cutoff := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	onCutoff := models.Snapshot{
		SnapshotID: "snap-on-cutoff",
		StartTime:  time.Date(2024, 1, 1, 23, 59, 59, 0, time.UTC),
	}
	dayAfter := models.Snapshot{
		SnapshotID: "snap-day-after",
		StartTime:  time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	old := models.Snapshot{
		SnapshotID: "snap-old",
		StartTime:  time.Date(2023, 12, 15, 12, 0, 0, 0, time.UTC),
	}

	plan := planRetention([]models.Snapshot{onCutoff, dayAfter, old}, cutoff)

	expired := make([]string, 0, len(plan.Expired))
	for _, s := range plan.Expired {
		expired = append(expired, s.SnapshotID)
	}
	live := make([]string, 0, len(plan.Live))
	for _, s := range plan.Live {
		live = append(live, s.SnapshotID)
	}

	assert.ElementsMatch(t, []string{"snap-on-cutoff", "snap-old"}, expired)
	assert.ElementsMatch(t, []string{"snap-day-after"}, live)
}

func TestPlanRetentionEmpty(t *testing.T) {
	plan := planRetention(nil, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Empty(t, plan.Expired)
	assert.Empty(t, plan.Live)
}
