package cli

import (
	"context"

	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/slotwise/calsync/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdMigrate() *cli.Command {
	var projectID string
	var databaseID string
	var dryRun bool

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Migrate Firestore indexes",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "firestore-project-id",
				Usage:       "Firestore Project ID (required)",
				Required:    true,
				Sources:     cli.EnvVars("CALSYNC_FIRESTORE_PROJECT_ID"),
				Destination: &projectID,
			},
			&cli.StringFlag{
				Name:        "firestore-database-id",
				Usage:       "Firestore Database ID",
				Sources:     cli.EnvVars("CALSYNC_FIRESTORE_DATABASE_ID"),
				Destination: &databaseID,
			},
			&cli.BoolFlag{
				Name:        "dry-run",
				Usage:       "Preview changes without applying",
				Destination: &dryRun,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			logger.Info("Migrate configuration",
				"projectID", projectID,
				"databaseID", databaseID,
				"dryRun", dryRun)

			indexConfig := getIndexConfig()

			client, err := fireconf.NewClient(ctx, projectID, databaseID)
			if err != nil {
				return goerr.Wrap(err, "failed to create fireconf client")
			}
			defer func() {
				if err := client.Close(); err != nil {
					logger.Error("failed to close fireconf client", "error", err.Error())
				}
			}()

			if dryRun {
				logger.Info("Dry run mode - previewing changes")
				plan, err := client.GetMigrationPlan(ctx, indexConfig)
				if err != nil {
					return goerr.Wrap(err, "failed to create migration plan")
				}

				if len(plan.Steps) == 0 {
					logger.Info("No changes required")
					return nil
				}

				for _, step := range plan.Steps {
					logger.Info("Migration step",
						"collection", step.Collection,
						"operation", step.Operation,
						"description", step.Description,
						"destructive", step.Destructive)
				}
			} else {
				logger.Info("Applying migrations")
				if err := client.Migrate(ctx, indexConfig); err != nil {
					return goerr.Wrap(err, "failed to apply migrations")
				}
				logger.Info("Migrations applied successfully")
			}

			return nil
		},
	}
}

// getIndexConfig returns the Firestore index configuration
func getIndexConfig() *fireconf.Config {
	return &fireconf.Config{
		Collections: []fireconf.Collection{
			{
				Name: "event_mappings",
				Indexes: []fireconf.Index{
					// GetByExternalID: connection_id ASC, external_event_id ASC
					{
						Fields: []fireconf.IndexField{
							{Path: "connection_id", Order: fireconf.OrderAscending},
							{Path: "external_event_id", Order: fireconf.OrderAscending},
						},
					},
				},
			},
			{
				Name: "bookings",
				Indexes: []fireconf.Index{
					// ListByStatus: business_id ASC, event_status ASC, created_at ASC
					{
						Fields: []fireconf.IndexField{
							{Path: "business_id", Order: fireconf.OrderAscending},
							{Path: "event_status", Order: fireconf.OrderAscending},
							{Path: "created_at", Order: fireconf.OrderAscending},
						},
					},
				},
			},
			{
				Name: "connections",
				Indexes: []fireconf.Index{
					// Put sibling deactivation: staff_id ASC, provider ASC, active ASC
					{
						Fields: []fireconf.IndexField{
							{Path: "staff_id", Order: fireconf.OrderAscending},
							{Path: "provider", Order: fireconf.OrderAscending},
							{Path: "active", Order: fireconf.OrderAscending},
						},
					},
					// ListActiveByStaff: staff_id ASC, active ASC
					{
						Fields: []fireconf.IndexField{
							{Path: "staff_id", Order: fireconf.OrderAscending},
							{Path: "active", Order: fireconf.OrderAscending},
						},
					},
					// ListActiveByBusiness: business_id ASC, active ASC
					{
						Fields: []fireconf.IndexField{
							{Path: "business_id", Order: fireconf.OrderAscending},
							{Path: "active", Order: fireconf.OrderAscending},
						},
					},
					// ListExpiring: active ASC, token_expiry ASC
					{
						Fields: []fireconf.IndexField{
							{Path: "active", Order: fireconf.OrderAscending},
							{Path: "token_expiry", Order: fireconf.OrderAscending},
						},
					},
				},
			},
		},
	}
}
