package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cloudkeep/ebs-snapshot/internal/backup"
	"github.com/cloudkeep/ebs-snapshot/internal/ebs"
	"github.com/cloudkeep/ebs-snapshot/internal/logging"
	"github.com/cloudkeep/ebs-snapshot/internal/metrics"
	"github.com/cloudkeep/ebs-snapshot/internal/report"
	"github.com/cloudkeep/ebs-snapshot/pkg/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Global variables for CLI flags
var (
	cfgFile      string
	volumeIDs    []string
	profile      string
	region       string
	expireAfter  int
	listVolumes  bool
	workers      int
	wait         bool
	pollInterval time.Duration
	timeout      time.Duration
	maxAttempts  int
	apiRate      float64
	logFile      string
	verbose      bool
	quiet        bool
	dryRun       bool
	// Report flags
	reportType      string
	reportPath      string
	reportS3Bucket  string
	reportGCSBucket string
	reportGCSCreds  string
	// Metrics flags
	metricsGateway string
)

func buildReportConfig() (*report.Config, error) {
	config := &report.Config{
		Type: reportType,
	}

	switch reportType {
	case "", "none":
		// Reporting disabled.
	case "local":
		if reportPath == "" {
			return nil, fmt.Errorf("--report-path is required when using the local report sink")
		}
		config.Local = &report.LocalConfig{
			Dir: reportPath,
		}
	case "s3":
		if reportS3Bucket == "" {
			return nil, fmt.Errorf("S3 bucket is required when using the s3 report sink")
		}
		config.S3 = &report.S3Config{
			Bucket: reportS3Bucket,
			Region: region,
		}
	case "gcs":
		if reportGCSBucket == "" {
			return nil, fmt.Errorf("GCS bucket is required when using the gcs report sink")
		}
		config.GCS = &report.GCSConfig{
			Bucket:      reportGCSBucket,
			Credentials: reportGCSCreds,
		}
	default:
		return nil, fmt.Errorf("unsupported report sink type: %s", reportType)
	}

	return config, nil
}

func validateFlags() error {
	// Retention below one day would expire the snapshot a run just created.
	if expireAfter < 1 {
		return fmt.Errorf("--expire-after must be at least 1 day")
	}
	if workers < 1 {
		return fmt.Errorf("--workers must be at least 1")
	}
	if pollInterval <= 0 {
		return fmt.Errorf("--poll-interval must be positive")
	}
	if timeout <= 0 {
		return fmt.Errorf("--timeout must be positive")
	}
	if maxAttempts < 1 {
		return fmt.Errorf("--max-attempts must be at least 1")
	}
	if apiRate <= 0 {
		return fmt.Errorf("--api-rps must be positive")
	}
	return nil
}

// loadConfig seeds every flag the user did not set on the command line from
// the config file and EBS_SNAPSHOT_* environment variables. Explicit
// command-line values always win.
func loadConfig(cmd *cobra.Command) error {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
		}
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
		v.SetConfigName(".ebs-snapshot")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return fmt.Errorf("failed to read config file %s: %w", v.ConfigFileUsed(), err)
			}
		}
	}

	v.SetEnvPrefix("EBS_SNAPSHOT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed || !v.IsSet(f.Name) {
			return
		}
		value := fmt.Sprintf("%v", v.Get(f.Name))
		if f.Value.Type() == "stringSlice" {
			value = strings.Join(v.GetStringSlice(f.Name), ",")
		}
		if err := cmd.Flags().Set(f.Name, value); err != nil && bindErr == nil {
			bindErr = fmt.Errorf("invalid config value for %s: %w", f.Name, err)
		}
	})
	return bindErr
}

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ebs-snapshot",
		Short:         "Automated EBS volume snapshots with age-based retention",
		Long:          "ebs-snapshot creates one snapshot of every Amazon EBS volume in scope, tags each snapshot it creates, and deletes its own snapshots once they outlive the retention window. Built for unattended runs from cron.",
		Version:       version.Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Version output must not depend on a readable config file
			if cmd.Name() == "version" {
				return nil
			}
			return loadConfig(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFlags(); err != nil {
				return err
			}

			logConfig := logging.Config{
				File:    logFile,
				Verbose: verbose,
				Quiet:   quiet,
			}
			if listVolumes {
				// The volume table is a read-only diagnostic; it must not
				// require write access to the log file.
				logConfig.File = ""
			}
			logger, logCloser, err := logging.Setup(logConfig)
			if err != nil {
				return err
			}
			defer func() {
				if err := logCloser.Close(); err != nil {
					fmt.Printf("Warning: failed to close log file: %v\n", err)
				}
			}()

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			gateway, err := ebs.NewClient(ctx, ebs.Config{
				Profile:     profile,
				Region:      region,
				MaxAttempts: maxAttempts,
				APIRate:     apiRate,
			})
			if err != nil {
				return err
			}

			client := backup.NewClient(gateway, backup.Config{
				Profile:       profile,
				Region:        region,
				RetentionDays: expireAfter,
				VolumeIDs:     volumeIDs,
				Workers:       workers,
				Wait:          wait,
				PollInterval:  pollInterval,
				DryRun:        dryRun,
				Version:       version.Version,
			}, logger)
			client.SetQuiet(quiet)

			if listVolumes {
				return client.ListVolumes(ctx, os.Stdout)
			}

			reportConfig, err := buildReportConfig()
			if err != nil {
				return err
			}
			sink, err := report.NewSink(ctx, reportConfig)
			if err != nil {
				return err
			}
			if sink != nil {
				client.SetReportSink(sink)
			}

			var recorder *metrics.Prometheus
			if metricsGateway != "" {
				recorder = metrics.NewPrometheus()
				client.SetMetrics(recorder)
			}

			runReport, runErr := client.Run(ctx)
			if runErr != nil {
				logger.WithError(runErr).Error("snapshot run failed")
			} else {
				logger.WithField("volumes", len(runReport.Volumes)).Info("snapshot run finished")
			}

			if recorder != nil {
				// The push client carries no timeout of its own, and the
				// run context may already be cancelled here.
				pushCtx, cancelPush := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
				defer cancelPush()
				if err := recorder.Push(pushCtx, metricsGateway, region); err != nil {
					logger.WithError(err).Error("failed to push metrics")
				}
			}

			return runErr
		},
	}

	// Scope and retention flags
	rootCmd.Flags().StringSliceVar(&volumeIDs, "volume-ids", nil, "Volume IDs to snapshot (default: every visible volume)")
	rootCmd.Flags().StringVar(&profile, "profile", "ebs-snapshot", "AWS shared-config profile")
	rootCmd.Flags().StringVar(&region, "region", "us-east-1", "AWS region")
	rootCmd.Flags().IntVar(&expireAfter, "expire-after", 30, "Days to keep snapshots before deletion")
	rootCmd.Flags().BoolVar(&listVolumes, "list-volumes", false, "Print the visible volumes and exit without snapshotting")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log every decision without creating or deleting anything")

	// Execution flags
	rootCmd.Flags().IntVar(&workers, "workers", 4, "Concurrent volumes per phase")
	rootCmd.Flags().BoolVar(&wait, "wait", false, "Wait until every new snapshot completes")
	rootCmd.Flags().DurationVar(&pollInterval, "poll-interval", 15*time.Second, "Snapshot completion poll interval")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 30*time.Minute, "Bound for the whole run")
	rootCmd.Flags().IntVar(&maxAttempts, "max-attempts", 5, "Retry attempts per EC2 API call")
	rootCmd.Flags().Float64Var(&apiRate, "api-rps", 10, "Client-side EC2 request rate in calls per second")

	// Output flags
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "Config file (default $HOME/.ebs-snapshot.yaml)")
	rootCmd.Flags().StringVar(&logFile, "log-file", "/var/log/ebs-snapshot.log", "JSON log file")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Quiet output")

	// Report flags
	rootCmd.Flags().StringVar(&reportType, "report", "none", "Run report sink (none, local, s3, gcs)")
	rootCmd.Flags().StringVar(&reportPath, "report-path", "", "Directory for local run reports")
	rootCmd.Flags().StringVar(&reportS3Bucket, "report-s3-bucket", "", "S3 bucket for run reports")
	rootCmd.Flags().StringVar(&reportGCSBucket, "report-gcs-bucket", "", "GCS bucket for run reports")
	rootCmd.Flags().StringVar(&reportGCSCreds, "report-gcs-creds", "", "Path to GCS credentials file")

	// Metrics flags
	rootCmd.Flags().StringVar(&metricsGateway, "metrics-gateway", "", "Prometheus Pushgateway base URL")

	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.Info())
		},
	}
}
