package backup

import (
	"time"

	"github.com/cloudkeep/ebs-snapshot/internal/models"
)

// truncateToDate drops the time of day, yielding midnight UTC of the
// instant's UTC calendar date.
func truncateToDate(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// retentionCutoff returns the newest calendar date considered expired.
// It is computed once per run; every deletion decision uses the same
// cutoff regardless of how long the run takes.
func retentionCutoff(now time.Time, retentionDays int) time.Time {
	return truncateToDate(now).AddDate(0, 0, -retentionDays)
}

// prunePlan partitions one volume's snapshots against the cutoff.
type prunePlan struct {
	Expired []models.Snapshot
	Live    []models.Snapshot
}

// planRetention classifies snapshots by start date. A snapshot started on
// the cutoff date itself is expired: age equal to the threshold deletes.
func planRetention(snapshots []models.Snapshot, cutoff time.Time) prunePlan {
	var plan prunePlan
	for _, s := range snapshots {
		if expired(s, cutoff) {
			plan.Expired = append(plan.Expired, s)
		} else {
			plan.Live = append(plan.Live, s)
		}
	}
	return plan
}

func expired(s models.Snapshot, cutoff time.Time) bool {
	return !truncateToDate(s.StartTime).After(cutoff)
}
