package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/oauth2"

	"github.com/slotwise/calsync/pkg/cli/config"
	"github.com/slotwise/calsync/pkg/domain/model"
	"github.com/slotwise/calsync/pkg/domain/types"
	"github.com/slotwise/calsync/pkg/service/provider"
	"github.com/slotwise/calsync/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdSync() *cli.Command {
	var businessID string
	var mode string
	var limit int
	var repoCfg config.Repository
	var googleCfg config.Google
	var microsoftCfg config.Microsoft
	var notifierCfg config.Notifier

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "business-id",
			Usage:       "Business to sync",
			Required:    true,
			Sources:     cli.EnvVars("CALSYNC_BUSINESS_ID"),
			Destination: &businessID,
		},
		&cli.StringFlag{
			Name:        "mode",
			Usage:       "Sync pass to run (retry, pending or full)",
			Value:       "retry",
			Destination: &mode,
		},
		&cli.IntFlag{
			Name:        "limit",
			Usage:       "Maximum bookings per pass (0 for unbounded)",
			Value:       50,
			Destination: &limit,
		},
	}
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, googleCfg.Flags()...)
	flags = append(flags, microsoftCfg.Flags()...)
	flags = append(flags, notifierCfg.Flags()...)

	return &cli.Command{
		Name:  "sync",
		Usage: "Run one sync pass for a business and exit",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			uc, closeRepo, err := buildUseCases(ctx, &repoCfg, &googleCfg, &microsoftCfg, &notifierCfg)
			if err != nil {
				return err
			}
			defer closeRepo()

			var outcome *model.RetryOutcome
			switch mode {
			case "retry":
				outcome, err = uc.RetryFailedSyncs(ctx, types.BusinessID(businessID), limit)
			case "pending":
				outcome, err = uc.SyncPendingBookings(ctx, types.BusinessID(businessID), limit)
			case "full":
				outcome, err = uc.FullResync(ctx, types.BusinessID(businessID))
			default:
				return goerr.New("invalid mode, expected retry, pending or full", goerr.V("mode", mode))
			}
			if err != nil {
				return goerr.Wrap(err, "sync pass failed", goerr.V("businessID", businessID))
			}

			printOutcome(mode, businessID, outcome)
			return nil
		},
	}
}

func printOutcome(mode, businessID string, outcome *model.RetryOutcome) {
	bold := color.New(color.Bold)
	bold.Printf("Sync pass %q for business %s\n", mode, businessID) //nolint:errcheck // terminal output

	fmt.Printf("  attempted: %d\n", outcome.TotalAttempted)
	color.Green("  successful: %d", outcome.Successful)
	if outcome.Failed > 0 {
		color.Red("  failed: %d", outcome.Failed)
	} else {
		fmt.Printf("  failed: %d\n", outcome.Failed)
	}
}

// buildUseCases wires the repository, provider registry and notifier for
// one-off commands.
func buildUseCases(ctx context.Context, repoCfg *config.Repository, googleCfg *config.Google, microsoftCfg *config.Microsoft, notifierCfg *config.Notifier) (*usecase.UseCases, func(), error) {
	repo, err := repoCfg.Configure(ctx)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to initialize repository")
	}
	closeRepo := func() {
		repo.Close() //nolint:errcheck // process is exiting
	}

	var googleOAuth, microsoftOAuth *oauth2.Config
	if googleCfg.IsConfigured() {
		if googleOAuth, err = googleCfg.Configure(); err != nil {
			closeRepo()
			return nil, nil, err
		}
	}
	if microsoftCfg.IsConfigured() {
		if microsoftOAuth, err = microsoftCfg.Configure(); err != nil {
			closeRepo()
			return nil, nil, err
		}
	}

	notifier, err := notifierCfg.Configure()
	if err != nil {
		closeRepo()
		return nil, nil, err
	}

	opts := []usecase.Option{}
	if notifier != nil {
		opts = append(opts, usecase.WithNotifier(notifier))
	}

	uc := usecase.New(repo, provider.New(googleOAuth, microsoftOAuth), opts...)
	return uc, closeRepo, nil
}
