package backup

import (
	"context"
	"sync"
	"time"

	"github.com/apex/log"

	"github.com/cloudkeep/ebs-snapshot/internal/models"
)

// Run executes one lifecycle pass: resolve the volume scope, snapshot every
// volume, then delete the tool's own expired snapshots. The deletion phase
// is reached only when every creation succeeded; a partial create never
// costs a backup. The returned report is populated in every outcome and
// written to the sink best effort.
func (c *Client) Run(ctx context.Context) (*models.RunReport, error) {
	started := c.now()
	runReport := &models.RunReport{
		Region:        c.config.Region,
		Profile:       c.config.Profile,
		RetentionDays: c.config.RetentionDays,
		Cutoff:        retentionCutoff(started, c.config.RetentionDays).Format(dateLayout),
		DryRun:        c.config.DryRun,
		StartedAt:     started,
		Version:       c.config.Version,
	}

	err := c.run(ctx, started, runReport)
	if err != nil {
		runReport.Error = err.Error()
	}

	finished := c.now()
	runReport.FinishedAt = finished
	c.metrics.RunCompleted(len(runReport.Volumes), finished.Sub(started), err == nil)
	c.writeReport(ctx, runReport)

	return runReport, err
}

func (c *Client) run(ctx context.Context, started time.Time, runReport *models.RunReport) error {
	volumeIDs, err := c.resolveVolumes(ctx)
	if err != nil {
		return err
	}

	results := newResultSet(volumeIDs)
	defer func() { runReport.Volumes = results.list() }()

	if len(volumeIDs) == 0 {
		c.log.Info("no volumes in scope, nothing to do")
		return nil
	}

	c.log.WithFields(log.Fields{
		"volumes":   len(volumeIDs),
		"retention": c.config.RetentionDays,
		"dry_run":   c.config.DryRun,
	}).Info("starting snapshot run")

	created, err := c.createAll(ctx, volumeIDs, started, results)
	if err != nil {
		return err
	}

	if c.config.Wait && !c.config.DryRun {
		if err := c.waitForSnapshots(ctx, created); err != nil {
			return err
		}
	}

	return c.cleanupAll(ctx, volumeIDs, retentionCutoff(started, c.config.RetentionDays), results)
}

// resolveVolumes determines the run scope. An explicit id list is taken as
// given, deduplicated but unverified; a bad id surfaces as a create
// failure. Without one, every visible volume is in scope.
func (c *Client) resolveVolumes(ctx context.Context) ([]string, error) {
	if len(c.config.VolumeIDs) > 0 {
		return dedupe(c.config.VolumeIDs), nil
	}

	volumes, err := c.gateway.ListVolumes(ctx)
	if err != nil {
		return nil, &ResolveError{Err: err}
	}

	ids := make([]string, 0, len(volumes))
	for _, v := range volumes {
		ids = append(ids, v.VolumeID)
	}
	return ids, nil
}

// dedupe removes repeated ids, keeping first occurrences in order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// writeReport persists the report. Failures are logged, never returned; a
// reporting problem does not change the outcome of the run. The write
// survives a cancelled run context.
func (c *Client) writeReport(ctx context.Context, runReport *models.RunReport) {
	if c.sink == nil {
		return
	}
	if err := c.sink.Write(context.WithoutCancel(ctx), runReport); err != nil {
		c.log.WithError(err).Error("failed to write run report")
	}
}

// resultSet collects per-volume outcomes from concurrent phases.
type resultSet struct {
	mu    sync.Mutex
	order []string
	byID  map[string]*models.VolumeResult
}

func newResultSet(volumeIDs []string) *resultSet {
	rs := &resultSet{
		order: volumeIDs,
		byID:  make(map[string]*models.VolumeResult, len(volumeIDs)),
	}
	for _, id := range volumeIDs {
		rs.byID[id] = &models.VolumeResult{VolumeID: id}
	}
	return rs
}

func (rs *resultSet) update(volumeID string, fn func(*models.VolumeResult)) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	r, ok := rs.byID[volumeID]
	if !ok {
		r = &models.VolumeResult{VolumeID: volumeID}
		rs.byID[volumeID] = r
		rs.order = append(rs.order, volumeID)
	}
	fn(r)
}

func (rs *resultSet) list() []models.VolumeResult {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	out := make([]models.VolumeResult, 0, len(rs.order))
	for _, id := range rs.order {
		out = append(out, *rs.byID[id])
	}
	return out
}
