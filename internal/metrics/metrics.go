package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	namespace = "ebs_snapshot"
	jobName   = "ebs_snapshot"
)

// Recorder receives lifecycle events from a snapshot run.
type Recorder interface {
	SnapshotCreated()
	SnapshotDeleted()
	CreateFailed()
	DeleteFailed()
	RunCompleted(volumes int, duration time.Duration, succeeded bool)
}

// Noop discards all events. It is the recorder used when no metrics
// gateway is configured.
type Noop struct{}

func (Noop) SnapshotCreated() {}

func (Noop) SnapshotDeleted() {}

func (Noop) CreateFailed() {}

func (Noop) DeleteFailed() {}

func (Noop) RunCompleted(int, time.Duration, bool) {}

// Prometheus collects run metrics on a private registry so that repeated
// runs inside one process (tests, mainly) never collide on the default
// registry. Metrics reach a Pushgateway via Push once the run is over.
type Prometheus struct {
	registry *prometheus.Registry

	created        prometheus.Counter
	deleted        prometheus.Counter
	createFailures prometheus.Counter
	deleteFailures prometheus.Counter
	volumes        prometheus.Gauge
	duration       prometheus.Gauge
	lastRun        prometheus.Gauge
	lastSuccess    prometheus.Gauge
}

var (
	_ Recorder = Noop{}
	_ Recorder = (*Prometheus)(nil)
)

// NewPrometheus creates a recorder with all metrics registered.
func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_created_total",
			Help:      "Snapshots created during the run.",
		}),
		deleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_deleted_total",
			Help:      "Expired snapshots deleted during the run.",
		}),
		createFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "create_failures_total",
			Help:      "Snapshot creations that failed.",
		}),
		deleteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delete_failures_total",
			Help:      "Snapshot deletions that failed.",
		}),
		volumes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "volumes_total",
			Help:      "Volumes in scope for the run.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall clock duration of the run.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp",
			Help:      "Unix time of the last completed run.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 when the last run succeeded, 0 otherwise.",
		}),
	}
	p.registry.MustRegister(
		p.created,
		p.deleted,
		p.createFailures,
		p.deleteFailures,
		p.volumes,
		p.duration,
		p.lastRun,
		p.lastSuccess,
	)
	return p
}

func (p *Prometheus) SnapshotCreated() { p.created.Inc() }

func (p *Prometheus) SnapshotDeleted() { p.deleted.Inc() }

func (p *Prometheus) CreateFailed() { p.createFailures.Inc() }

func (p *Prometheus) DeleteFailed() { p.deleteFailures.Inc() }

func (p *Prometheus) RunCompleted(volumes int, duration time.Duration, succeeded bool) {
	p.volumes.Set(float64(volumes))
	p.duration.Set(duration.Seconds())
	p.lastRun.SetToCurrentTime()
	if succeeded {
		p.lastSuccess.Set(1)
	} else {
		p.lastSuccess.Set(0)
	}
}

// Push sends the registry to a Pushgateway. Runs are grouped by region so
// deployments covering several regions do not overwrite each other.
func (p *Prometheus) Push(ctx context.Context, gateway, region string) error {
	pusher := push.New(gateway, jobName).Gatherer(p.registry)
	if region != "" {
		pusher = pusher.Grouping("region", region)
	}
	return pusher.PushContext(ctx)
}
