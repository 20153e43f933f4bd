package backup

import "fmt"

// ResolveError reports a volume discovery failure. It is fatal for the run.
type ResolveError struct {
	Err error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("failed to resolve volumes: %v", e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }

// CreateError reports a snapshot or tag creation failure for one volume.
// Any CreateError aborts the run before a single deletion is issued.
type CreateError struct {
	VolumeID string
	Err      error
}

func (e *CreateError) Error() string {
	return fmt.Sprintf("failed to snapshot volume %s: %v", e.VolumeID, e.Err)
}

func (e *CreateError) Unwrap() error { return e.Err }

// RetentionQueryError reports a snapshot listing failure for one volume.
// Cleanup skips that volume; the rest of the run proceeds.
type RetentionQueryError struct {
	VolumeID string
	Err      error
}

func (e *RetentionQueryError) Error() string {
	return fmt.Sprintf("failed to list snapshots for volume %s: %v", e.VolumeID, e.Err)
}

func (e *RetentionQueryError) Unwrap() error { return e.Err }

// DeleteError reports a snapshot deletion failure. Deletions are
// independent; the error is collected and remaining deletions continue.
type DeleteError struct {
	SnapshotID string
	VolumeID   string
	Err        error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("failed to delete snapshot %s of volume %s: %v", e.SnapshotID, e.VolumeID, e.Err)
}

func (e *DeleteError) Unwrap() error { return e.Err }
