package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"

	"github.com/slotwise/calsync/pkg/cli/config"
	"github.com/slotwise/calsync/pkg/domain/model"
	"github.com/slotwise/calsync/pkg/domain/types"
	"github.com/slotwise/calsync/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdStats() *cli.Command {
	var businessID string
	var exportBucket string
	var exportPrefix string
	var repoCfg config.Repository
	var googleCfg config.Google
	var microsoftCfg config.Microsoft
	var notifierCfg config.Notifier

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "business-id",
			Usage:       "Business to report on",
			Required:    true,
			Sources:     cli.EnvVars("CALSYNC_BUSINESS_ID"),
			Destination: &businessID,
		},
		&cli.StringFlag{
			Name:        "export-bucket",
			Usage:       "GCS bucket to export the report to (optional)",
			Sources:     cli.EnvVars("CALSYNC_EXPORT_BUCKET"),
			Destination: &exportBucket,
		},
		&cli.StringFlag{
			Name:        "export-prefix",
			Usage:       "Object prefix for exported reports",
			Value:       "sync-stats",
			Sources:     cli.EnvVars("CALSYNC_EXPORT_PREFIX"),
			Destination: &exportPrefix,
		},
	}
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, googleCfg.Flags()...)
	flags = append(flags, microsoftCfg.Flags()...)
	flags = append(flags, notifierCfg.Flags()...)

	return &cli.Command{
		Name:  "stats",
		Usage: "Print sync statistics for a business",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			uc, closeRepo, err := buildUseCases(ctx, &repoCfg, &googleCfg, &microsoftCfg, &notifierCfg)
			if err != nil {
				return err
			}
			defer closeRepo()

			stats, err := uc.SyncStatistics(ctx, types.BusinessID(businessID))
			if err != nil {
				return goerr.Wrap(err, "failed to aggregate statistics", goerr.V("businessID", businessID))
			}

			printStats(stats)

			if exportBucket != "" {
				object := fmt.Sprintf("%s/%s/%s.json",
					exportPrefix, businessID, time.Now().UTC().Format("20060102T150405Z"))
				if err := exportStats(ctx, exportBucket, object, stats); err != nil {
					return goerr.Wrap(err, "failed to export statistics",
						goerr.V("bucket", exportBucket), goerr.V("object", object))
				}
				logging.Default().Info("Statistics exported",
					"bucket", exportBucket, "object", object)
			}

			return nil
		},
	}
}

func printStats(stats *model.SyncStatistics) {
	bold := color.New(color.Bold)
	bold.Printf("Sync statistics for business %s\n", stats.BusinessID) //nolint:errcheck // terminal output

	fmt.Printf("  total attempts: %d\n", stats.TotalAttempts)
	color.Green("  successful: %d", stats.Successful)
	if stats.Failed > 0 {
		color.Red("  failed: %d", stats.Failed)
	} else {
		fmt.Printf("  failed: %d\n", stats.Failed)
	}
	if stats.Pending > 0 {
		color.Yellow("  pending: %d", stats.Pending)
	} else {
		fmt.Printf("  pending: %d\n", stats.Pending)
	}
	fmt.Printf("  success rate: %.1f%%\n", stats.SuccessRate()*100)
}

func exportStats(ctx context.Context, bucket, object string, stats *model.SyncStatistics) error {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to create storage client")
	}
	defer client.Close() //nolint:errcheck // read-only handle

	data, err := json.Marshal(map[string]any{
		"business_id":    stats.BusinessID,
		"total_attempts": stats.TotalAttempts,
		"successful":     stats.Successful,
		"failed":         stats.Failed,
		"pending":        stats.Pending,
		"success_rate":   stats.SuccessRate(),
		"generated_at":   time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return goerr.Wrap(err, "failed to marshal statistics")
	}

	w := client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		w.Close() //nolint:errcheck // write already failed
		return goerr.Wrap(err, "failed to write statistics object")
	}
	return w.Close()
}
