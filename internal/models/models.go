package models

import "time"

// Volume describes an EBS volume as reported by the provider.
type Volume struct {
	VolumeID         string            `json:"volume_id"`
	State            string            `json:"state"`
	SizeGiB          int32             `json:"size_gib,omitempty"`
	AvailabilityZone string            `json:"availability_zone,omitempty"`
	SourceSnapshotID string            `json:"source_snapshot_id,omitempty"`
	Attachment       *Attachment       `json:"attachment,omitempty"`
	Tags             map[string]string `json:"tags,omitempty"`
}

// Attachment describes the instance a volume is attached to. A volume with
// a nil Attachment is detached.
type Attachment struct {
	InstanceID string `json:"instance_id"`
	Device     string `json:"device"`
	State      string `json:"state"`
}

// Snapshot describes an EBS snapshot as reported by the provider.
type Snapshot struct {
	SnapshotID  string            `json:"snapshot_id"`
	VolumeID    string            `json:"volume_id"`
	Description string            `json:"description,omitempty"`
	StartTime   time.Time         `json:"start_time"`
	State       string            `json:"state"`
	Progress    string            `json:"progress,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`
}

// Snapshot states as reported by EC2.
const (
	SnapshotStatePending   = "pending"
	SnapshotStateCompleted = "completed"
	SnapshotStateError     = "error"
)

// RunReport is the audit record of a single run. It is written to the
// configured report sink and never read back by the tool.
type RunReport struct {
	Region        string         `json:"region,omitempty"`
	Profile       string         `json:"profile,omitempty"`
	RetentionDays int            `json:"retention_days"`
	Cutoff        string         `json:"cutoff"`
	DryRun        bool           `json:"dry_run,omitempty"`
	StartedAt     time.Time      `json:"started_at"`
	FinishedAt    time.Time      `json:"finished_at"`
	Volumes       []VolumeResult `json:"volumes,omitempty"`
	Error         string         `json:"error,omitempty"`
	Version       string         `json:"version"`
}

// VolumeResult records what a run did for one volume.
type VolumeResult struct {
	VolumeID         string   `json:"volume_id"`
	SnapshotID       string   `json:"snapshot_id,omitempty"`
	SnapshotName     string   `json:"snapshot_name,omitempty"`
	Description      string   `json:"description,omitempty"`
	DeletedSnapshots []string `json:"deleted_snapshots,omitempty"`
	KeptSnapshots    []string `json:"kept_snapshots,omitempty"`
	Error            string   `json:"error,omitempty"`
}
