package backup

import (
	"time"

	"github.com/apex/log"

	"github.com/cloudkeep/ebs-snapshot/internal/ebs"
	"github.com/cloudkeep/ebs-snapshot/internal/metrics"
	"github.com/cloudkeep/ebs-snapshot/internal/report"
)

// Config is the immutable configuration of a run.
type Config struct {
	// Profile and Region identify the account scope. They only appear in
	// logs and the run report; the Gateway is already bound to them.
	Profile string
	Region  string

	// RetentionDays is the age threshold. Snapshots whose start date is
	// RetentionDays or more calendar days old are deleted.
	RetentionDays int

	// VolumeIDs limits the run to an explicit set of volumes. Empty means
	// every volume visible to the credentials.
	VolumeIDs []string

	// Workers bounds per-phase parallelism.
	Workers int

	// Wait blocks after creation until every new snapshot completes.
	Wait bool

	// PollInterval is the completion poll period when Wait is set.
	PollInterval time.Duration

	// DryRun logs every decision without creating or deleting anything.
	DryRun bool

	// Version is stamped into the run report.
	Version string
}

// Client drives the snapshot lifecycle against a Gateway.
type Client struct {
	gateway ebs.Gateway
	config  Config
	log     log.Interface
	metrics metrics.Recorder
	sink    report.Sink
	quiet   bool
	now     func() time.Time
}

// NewClient creates a lifecycle client. The logger must not be nil.
func NewClient(gateway ebs.Gateway, config Config, logger log.Interface) *Client {
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 15 * time.Second
	}
	return &Client{
		gateway: gateway,
		config:  config,
		log:     logger,
		metrics: metrics.Noop{},
		now:     time.Now,
	}
}

// SetQuiet disables interactive progress output.
func (c *Client) SetQuiet(quiet bool) {
	c.quiet = quiet
}

// SetMetrics replaces the default no-op recorder.
func (c *Client) SetMetrics(recorder metrics.Recorder) {
	if recorder != nil {
		c.metrics = recorder
	}
}

// SetReportSink sets the destination for run reports.
func (c *Client) SetReportSink(sink report.Sink) {
	c.sink = sink
}

// SetClock overrides the time source. Tests pin it.
func (c *Client) SetClock(now func() time.Time) {
	if now != nil {
		c.now = now
	}
}
