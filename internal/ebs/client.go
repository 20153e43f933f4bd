package ebs

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"
	"golang.org/x/time/rate"

	"github.com/cloudkeep/ebs-snapshot/internal/models"
)

// Config carries the AWS connection settings for the EC2 client.
type Config struct {
	Profile     string
	Region      string
	MaxAttempts int           // retry attempts per API call
	MaxBackoff  time.Duration // upper bound for retry backoff
	APIRate     float64       // client-side request rate toward EC2, calls per second
}

const (
	defaultMaxAttempts = 5
	defaultMaxBackoff  = 20 * time.Second
	defaultAPIRate     = 10
)

// ec2API is the part of the EC2 SDK client the wrapper calls.
type ec2API interface {
	DescribeVolumes(ctx context.Context, params *ec2.DescribeVolumesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeVolumesOutput, error)
	DescribeSnapshots(ctx context.Context, params *ec2.DescribeSnapshotsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSnapshotsOutput, error)
	DescribeTags(ctx context.Context, params *ec2.DescribeTagsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeTagsOutput, error)
	CreateSnapshot(ctx context.Context, params *ec2.CreateSnapshotInput, optFns ...func(*ec2.Options)) (*ec2.CreateSnapshotOutput, error)
	CreateTags(ctx context.Context, params *ec2.CreateTagsInput, optFns ...func(*ec2.Options)) (*ec2.CreateTagsOutput, error)
	DeleteSnapshot(ctx context.Context, params *ec2.DeleteSnapshotInput, optFns ...func(*ec2.Options)) (*ec2.DeleteSnapshotOutput, error)
}

// Client implements Gateway on top of the AWS EC2 SDK.
type Client struct {
	api     ec2API
	limiter *rate.Limiter
}

var _ Gateway = (*Client)(nil)

// NewClient resolves the AWS profile and region and returns a ready EC2
// gateway. Credential resolution is verified up front so that a bad profile
// fails here rather than mid-run.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaultMaxBackoff
	}
	if cfg.APIRate <= 0 {
		cfg.APIRate = defaultAPIRate
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRetryer(func() aws.Retryer {
			return retry.NewStandard(func(o *retry.StandardOptions) {
				o.MaxAttempts = cfg.MaxAttempts
				o.MaxBackoff = cfg.MaxBackoff
			})
		}),
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if _, err := awsConfig.Credentials.Retrieve(ctx); err != nil {
		return nil, fmt.Errorf("failed to resolve AWS credentials for profile %q: %w", cfg.Profile, err)
	}

	return &Client{
		api:     ec2.NewFromConfig(awsConfig),
		limiter: rate.NewLimiter(rate.Limit(cfg.APIRate), int(cfg.APIRate)),
	}, nil
}

// ListVolumes returns every volume visible to the active credentials.
func (c *Client) ListVolumes(ctx context.Context) ([]models.Volume, error) {
	var volumes []models.Volume

	paginator := ec2.NewDescribeVolumesPaginator(c.api, &ec2.DescribeVolumesInput{})
	for paginator.HasMorePages() {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe volumes: %w", err)
		}
		for _, v := range output.Volumes {
			volumes = append(volumes, volumeFromAPI(v))
		}
	}

	return volumes, nil
}

// GetVolume returns one volume by id.
func (c *Client) GetVolume(ctx context.Context, volumeID string) (models.Volume, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return models.Volume{}, err
	}

	output, err := c.api.DescribeVolumes(ctx, &ec2.DescribeVolumesInput{
		VolumeIds: []string{volumeID},
	})
	if err != nil {
		return models.Volume{}, fmt.Errorf("failed to describe volume %s: %w", volumeID, err)
	}
	if len(output.Volumes) == 0 {
		return models.Volume{}, &smithy.GenericAPIError{
			Code:    "InvalidVolume.NotFound",
			Message: fmt.Sprintf("The volume '%s' does not exist.", volumeID),
		}
	}

	return volumeFromAPI(output.Volumes[0]), nil
}

// CreateSnapshot starts a snapshot of the volume and returns its id.
func (c *Client) CreateSnapshot(ctx context.Context, volumeID, description string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	output, err := c.api.CreateSnapshot(ctx, &ec2.CreateSnapshotInput{
		VolumeId:    aws.String(volumeID),
		Description: aws.String(description),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create snapshot for volume %s: %w", volumeID, err)
	}

	return aws.ToString(output.SnapshotId), nil
}

// GetSnapshot returns one snapshot by id.
func (c *Client) GetSnapshot(ctx context.Context, snapshotID string) (models.Snapshot, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return models.Snapshot{}, err
	}

	output, err := c.api.DescribeSnapshots(ctx, &ec2.DescribeSnapshotsInput{
		SnapshotIds: []string{snapshotID},
	})
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("failed to describe snapshot %s: %w", snapshotID, err)
	}
	if len(output.Snapshots) == 0 {
		return models.Snapshot{}, &smithy.GenericAPIError{
			Code:    "InvalidSnapshot.NotFound",
			Message: fmt.Sprintf("The snapshot '%s' does not exist.", snapshotID),
		}
	}

	return snapshotFromAPI(output.Snapshots[0]), nil
}

// ListSnapshots returns the snapshots matching the filter.
func (c *Client) ListSnapshots(ctx context.Context, filter SnapshotFilter) ([]models.Snapshot, error) {
	input := &ec2.DescribeSnapshotsInput{Filters: apiFilters(filter)}

	var snapshots []models.Snapshot
	paginator := ec2.NewDescribeSnapshotsPaginator(c.api, input)
	for paginator.HasMorePages() {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe snapshots: %w", err)
		}
		for _, s := range output.Snapshots {
			snapshots = append(snapshots, snapshotFromAPI(s))
		}
	}

	return snapshots, nil
}

// DeleteSnapshot removes one snapshot by id.
func (c *Client) DeleteSnapshot(ctx context.Context, snapshotID string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	_, err := c.api.DeleteSnapshot(ctx, &ec2.DeleteSnapshotInput{
		SnapshotId: aws.String(snapshotID),
	})
	if err != nil {
		return fmt.Errorf("failed to delete snapshot %s: %w", snapshotID, err)
	}

	return nil
}

// CreateTags sets tags on a resource, overwriting existing keys.
func (c *Client) CreateTags(ctx context.Context, resourceID string, tags map[string]string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	_, err := c.api.CreateTags(ctx, &ec2.CreateTagsInput{
		Resources: []string{resourceID},
		Tags:      apiTags(tags),
	})
	if err != nil {
		return fmt.Errorf("failed to tag resource %s: %w", resourceID, err)
	}

	return nil
}

// TagValue returns the value of one tag on a resource, or the empty string
// when the tag is not set.
func (c *Client) TagValue(ctx context.Context, resourceID, key string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	output, err := c.api.DescribeTags(ctx, &ec2.DescribeTagsInput{
		Filters: []types.Filter{
			{Name: aws.String("resource-id"), Values: []string{resourceID}},
			{Name: aws.String("key"), Values: []string{key}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to describe tags for %s: %w", resourceID, err)
	}
	if len(output.Tags) == 0 {
		return "", nil
	}

	return aws.ToString(output.Tags[0].Value), nil
}

func volumeFromAPI(v types.Volume) models.Volume {
	volume := models.Volume{
		VolumeID:         aws.ToString(v.VolumeId),
		State:            string(v.State),
		SizeGiB:          aws.ToInt32(v.Size),
		AvailabilityZone: aws.ToString(v.AvailabilityZone),
		SourceSnapshotID: aws.ToString(v.SnapshotId),
		Tags:             tagMap(v.Tags),
	}
	if len(v.Attachments) > 0 {
		a := v.Attachments[0]
		volume.Attachment = &models.Attachment{
			InstanceID: aws.ToString(a.InstanceId),
			Device:     aws.ToString(a.Device),
			State:      string(a.State),
		}
	}
	return volume
}

func snapshotFromAPI(s types.Snapshot) models.Snapshot {
	return models.Snapshot{
		SnapshotID:  aws.ToString(s.SnapshotId),
		VolumeID:    aws.ToString(s.VolumeId),
		Description: aws.ToString(s.Description),
		StartTime:   aws.ToTime(s.StartTime),
		State:       string(s.State),
		Progress:    aws.ToString(s.Progress),
		Tags:        tagMap(s.Tags),
	}
}

func apiFilters(filter SnapshotFilter) []types.Filter {
	var filters []types.Filter
	if filter.VolumeID != "" {
		filters = append(filters, types.Filter{
			Name:   aws.String("volume-id"),
			Values: []string{filter.VolumeID},
		})
	}
	keys := make([]string, 0, len(filter.Tags))
	for k := range filter.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		filters = append(filters, types.Filter{
			Name:   aws.String("tag:" + k),
			Values: []string{filter.Tags[k]},
		})
	}
	return filters
}

func apiTags(tags map[string]string) []types.Tag {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]types.Tag, 0, len(tags))
	for _, k := range keys {
		out = append(out, types.Tag{Key: aws.String(k), Value: aws.String(tags[k])})
	}
	return out
}

func tagMap(tags []types.Tag) map[string]string {
	if len(tags) == 0 {
		return nil
	}
	out := make(map[string]string, len(tags))
	for _, t := range tags {
		out[aws.ToString(t.Key)] = aws.ToString(t.Value)
	}
	return out
}
