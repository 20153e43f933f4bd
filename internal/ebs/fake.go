package ebs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aws/smithy-go"

	"github.com/cloudkeep/ebs-snapshot/internal/models"
)

// Fake is an in-memory Gateway for tests. It mirrors the EC2 API's filter
// and error semantics and records every call in order, so tests can assert
// not just end state but call sequencing.
type Fake struct {
	mu           sync.Mutex
	volumes      map[string]models.Volume
	snapshots    map[string]models.Snapshot
	instanceTags map[string]map[string]string
	ops          []string
	nextSnapshot int

	now        func() time.Time
	finalState string
	polls      map[string]int

	createErr      map[string]error
	deleteErr      map[string]error
	listSnapErr    map[string]error
	listVolumesErr error
}

var _ Gateway = (*Fake)(nil)

// NewFake returns an empty fake gateway.
func NewFake() *Fake {
	return &Fake{
		volumes:      make(map[string]models.Volume),
		snapshots:    make(map[string]models.Snapshot),
		instanceTags: make(map[string]map[string]string),
		now:          time.Now,
		finalState:   models.SnapshotStateCompleted,
		polls:        make(map[string]int),
		createErr:    make(map[string]error),
		deleteErr:    make(map[string]error),
		listSnapErr:  make(map[string]error),
	}
}

// AddVolume registers a volume.
func (f *Fake) AddVolume(v models.Volume) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v.Tags = copyTags(v.Tags)
	f.volumes[v.VolumeID] = v
}

// AddSnapshot registers a pre-existing snapshot, for example one left by an
// earlier run or by another tool.
func (f *Fake) AddSnapshot(s models.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.State == "" {
		s.State = models.SnapshotStateCompleted
	}
	s.Tags = copyTags(s.Tags)
	f.snapshots[s.SnapshotID] = s
}

// SetInstanceTag sets a tag on an instance, visible through TagValue.
func (f *Fake) SetInstanceTag(instanceID, key, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tags := f.instanceTags[instanceID]
	if tags == nil {
		tags = make(map[string]string)
		f.instanceTags[instanceID] = tags
	}
	tags[key] = value
}

// SetClock pins the timestamp given to newly created snapshots.
func (f *Fake) SetClock(now func() time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = now
}

// FinishSnapshotsAs sets the state newly created snapshots settle into when
// polled, completed by default.
func (f *Fake) FinishSnapshotsAs(state string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finalState = state
}

// FailCreate makes CreateSnapshot fail for one volume.
func (f *Fake) FailCreate(volumeID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createErr[volumeID] = err
}

// FailDelete makes DeleteSnapshot fail for one snapshot.
func (f *Fake) FailDelete(snapshotID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteErr[snapshotID] = err
}

// FailListSnapshots makes ListSnapshots fail for filters naming one volume.
func (f *Fake) FailListSnapshots(volumeID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listSnapErr[volumeID] = err
}

// FailListVolumes makes ListVolumes fail.
func (f *Fake) FailListVolumes(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listVolumesErr = err
}

// Ops returns every gateway call made so far, in order, as "<method> <arg>"
// strings.
func (f *Fake) Ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.ops))
	copy(out, f.ops)
	return out
}

// Snapshots returns all stored snapshots sorted by id.
func (f *Fake) Snapshots() []models.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Snapshot, 0, len(f.snapshots))
	for _, s := range f.snapshots {
		s.Tags = copyTags(s.Tags)
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SnapshotID < out[j].SnapshotID })
	return out
}

// Snapshot returns one stored snapshot by id.
func (f *Fake) Snapshot(id string) (models.Snapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.snapshots[id]
	if ok {
		s.Tags = copyTags(s.Tags)
	}
	return s, ok
}

func (f *Fake) ListVolumes(ctx context.Context) ([]models.Volume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListVolumes")
	if f.listVolumesErr != nil {
		return nil, f.listVolumesErr
	}

	out := make([]models.Volume, 0, len(f.volumes))
	for _, v := range f.volumes {
		v.Tags = copyTags(v.Tags)
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VolumeID < out[j].VolumeID })
	return out, nil
}

func (f *Fake) GetVolume(ctx context.Context, volumeID string) (models.Volume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetVolume " + volumeID)

	v, ok := f.volumes[volumeID]
	if !ok {
		return models.Volume{}, apiError("InvalidVolume.NotFound", "The volume '%s' does not exist.", volumeID)
	}
	v.Tags = copyTags(v.Tags)
	return v, nil
}

func (f *Fake) CreateSnapshot(ctx context.Context, volumeID, description string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateSnapshot " + volumeID)

	if err := f.createErr[volumeID]; err != nil {
		return "", err
	}
	if _, ok := f.volumes[volumeID]; !ok {
		return "", apiError("InvalidVolume.NotFound", "The volume '%s' does not exist.", volumeID)
	}

	f.nextSnapshot++
	id := fmt.Sprintf("snap-%04d", f.nextSnapshot)
	f.snapshots[id] = models.Snapshot{
		SnapshotID:  id,
		VolumeID:    volumeID,
		Description: description,
		StartTime:   f.now(),
		State:       models.SnapshotStatePending,
		Progress:    "0%",
	}
	return id, nil
}

func (f *Fake) GetSnapshot(ctx context.Context, snapshotID string) (models.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetSnapshot " + snapshotID)

	s, ok := f.snapshots[snapshotID]
	if !ok {
		return models.Snapshot{}, apiError("InvalidSnapshot.NotFound", "The snapshot '%s' does not exist.", snapshotID)
	}

	// Pending snapshots advance one step per poll, settling into the
	// configured final state on the second poll.
	if s.State == models.SnapshotStatePending {
		f.polls[snapshotID]++
		switch {
		case f.polls[snapshotID] == 1:
			s.Progress = "50%"
		case f.finalState == models.SnapshotStateCompleted:
			s.State = models.SnapshotStateCompleted
			s.Progress = "100%"
		default:
			s.State = f.finalState
		}
		f.snapshots[snapshotID] = s
	}

	s.Tags = copyTags(s.Tags)
	return s, nil
}

func (f *Fake) ListSnapshots(ctx context.Context, filter SnapshotFilter) ([]models.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListSnapshots " + filter.VolumeID)

	if filter.VolumeID != "" {
		if err := f.listSnapErr[filter.VolumeID]; err != nil {
			return nil, err
		}
	}

	var out []models.Snapshot
	for _, s := range f.snapshots {
		if !matchesFilter(s, filter) {
			continue
		}
		s.Tags = copyTags(s.Tags)
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SnapshotID < out[j].SnapshotID })
	return out, nil
}

func (f *Fake) DeleteSnapshot(ctx context.Context, snapshotID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DeleteSnapshot " + snapshotID)

	if err := f.deleteErr[snapshotID]; err != nil {
		return err
	}
	if _, ok := f.snapshots[snapshotID]; !ok {
		return apiError("InvalidSnapshot.NotFound", "The snapshot '%s' does not exist.", snapshotID)
	}
	delete(f.snapshots, snapshotID)
	return nil
}

func (f *Fake) CreateTags(ctx context.Context, resourceID string, tags map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateTags " + resourceID)

	if s, ok := f.snapshots[resourceID]; ok {
		if s.Tags == nil {
			s.Tags = make(map[string]string, len(tags))
		}
		for k, v := range tags {
			s.Tags[k] = v
		}
		f.snapshots[resourceID] = s
		return nil
	}
	if v, ok := f.volumes[resourceID]; ok {
		if v.Tags == nil {
			v.Tags = make(map[string]string, len(tags))
		}
		for k, v2 := range tags {
			v.Tags[k] = v2
		}
		f.volumes[resourceID] = v
		return nil
	}
	return apiError("InvalidID", "The ID '%s' is not valid", resourceID)
}

func (f *Fake) TagValue(ctx context.Context, resourceID, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("TagValue " + resourceID)

	// DescribeTags on an unknown resource returns nothing rather than an
	// error, and the fake keeps that behavior.
	if v, ok := f.volumes[resourceID]; ok {
		return v.Tags[key], nil
	}
	if s, ok := f.snapshots[resourceID]; ok {
		return s.Tags[key], nil
	}
	return f.instanceTags[resourceID][key], nil
}

func (f *Fake) record(op string) {
	f.ops = append(f.ops, op)
}

func matchesFilter(s models.Snapshot, filter SnapshotFilter) bool {
	if filter.VolumeID != "" && s.VolumeID != filter.VolumeID {
		return false
	}
	for k, v := range filter.Tags {
		if s.Tags[k] != v {
			return false
		}
	}
	return true
}

func apiError(code, format string, args ...interface{}) error {
	return &smithy.GenericAPIError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

func copyTags(tags map[string]string) map[string]string {
	if tags == nil {
		return nil
	}
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		out[k] = v
	}
	return out
}
