package backup

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/cheggaaa/pb/v3"
	"golang.org/x/term"

	"github.com/cloudkeep/ebs-snapshot/internal/models"
)

// waitForSnapshots polls until every created snapshot leaves the pending
// state. A snapshot ending in the error state fails the run.
func (c *Client) waitForSnapshots(ctx context.Context, snapshotIDs []string) error {
	if len(snapshotIDs) == 0 {
		return nil
	}

	c.log.WithField("snapshots", len(snapshotIDs)).Info("waiting for snapshots to complete")

	progress := c.newSnapshotProgress(snapshotIDs)
	defer progress.finish()

	pending := make(map[string]struct{}, len(snapshotIDs))
	for _, id := range snapshotIDs {
		pending[id] = struct{}{}
	}

	ticker := time.NewTicker(c.config.PollInterval)
	defer ticker.Stop()

	for {
		for _, id := range snapshotIDs {
			if _, ok := pending[id]; !ok {
				continue
			}

			snapshot, err := c.gateway.GetSnapshot(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to poll snapshot %s: %w", id, err)
			}

			progress.set(id, progressPercent(snapshot.Progress))

			switch snapshot.State {
			case models.SnapshotStateCompleted:
				progress.set(id, 100)
				delete(pending, id)
				c.log.WithField("snapshot", id).Debug("snapshot completed")
			case models.SnapshotStateError:
				return fmt.Errorf("snapshot %s entered error state", id)
			default:
				c.log.WithFields(log.Fields{
					"snapshot": id,
					"progress": snapshot.Progress,
				}).Debug("snapshot still pending")
			}
		}

		if len(pending) == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// snapshotProgress renders one aggregate completion bar across all created
// snapshots. A nil receiver draws nothing, which keeps call sites
// unconditional when there is no terminal or quiet mode is on.
type snapshotProgress struct {
	bar     *pb.ProgressBar
	percent map[string]int
}

func (c *Client) newSnapshotProgress(snapshotIDs []string) *snapshotProgress {
	if c.quiet || !term.IsTerminal(int(os.Stderr.Fd())) {
		return nil
	}

	bar := pb.New(len(snapshotIDs) * 100)
	bar.SetTemplateString(`{{ "snapshots" }} {{ bar . "[" "=" ">" " " "]"}} {{percent . }}`)
	bar.SetRefreshRate(200 * time.Millisecond)
	bar.SetWriter(os.Stderr)
	bar.Start()

	return &snapshotProgress{
		bar:     bar,
		percent: make(map[string]int, len(snapshotIDs)),
	}
}

func (p *snapshotProgress) set(id string, percent int) {
	if p == nil {
		return
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	p.percent[id] = percent

	total := 0
	for _, v := range p.percent {
		total += v
	}
	p.bar.SetCurrent(int64(total))
}

func (p *snapshotProgress) finish() {
	if p == nil {
		return
	}
	p.bar.Finish()
}

// progressPercent parses the provider's progress string, e.g. "87%".
// Unparseable values count as zero.
func progressPercent(progress string) int {
	s := strings.TrimSuffix(strings.TrimSpace(progress), "%")
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
