package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/oauth2"

	"github.com/slotwise/calsync/pkg/cli/config"
	httpctrl "github.com/slotwise/calsync/pkg/controller/http"
	"github.com/slotwise/calsync/pkg/domain/types"
	"github.com/slotwise/calsync/pkg/service/provider"
	"github.com/slotwise/calsync/pkg/service/worker"
	"github.com/slotwise/calsync/pkg/usecase"
	"github.com/slotwise/calsync/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var addr string
	var repoCfg config.Repository
	var googleCfg config.Google
	var microsoftCfg config.Microsoft
	var notifierCfg config.Notifier
	var syncCfg config.Sync

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("CALSYNC_ADDR"),
			Destination: &addr,
		},
		&cli.StringSliceFlag{
			Name:    "business-id",
			Usage:   "Business to schedule periodic imports for (repeatable)",
			Sources: cli.EnvVars("CALSYNC_BUSINESS_IDS"),
		},
	}
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, googleCfg.Flags()...)
	flags = append(flags, microsoftCfg.Flags()...)
	flags = append(flags, notifierCfg.Flags()...)
	flags = append(flags, syncCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server and background workers",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			tuning, err := syncCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load sync tuning")
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			notifier, err := notifierCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to configure notifier")
			}

			var googleOAuth, microsoftOAuth *oauth2.Config
			if googleCfg.IsConfigured() {
				if googleOAuth, err = googleCfg.Configure(); err != nil {
					return goerr.Wrap(err, "failed to configure Google client")
				}
				logging.Default().Info("Google Calendar enabled")
			} else {
				logging.Default().Info("Google Calendar not configured")
			}
			if microsoftCfg.IsConfigured() {
				if microsoftOAuth, err = microsoftCfg.Configure(); err != nil {
					return goerr.Wrap(err, "failed to configure Microsoft client")
				}
				logging.Default().Info("Microsoft 365 enabled")
			} else {
				logging.Default().Info("Microsoft 365 not configured")
			}

			registry := provider.New(googleOAuth, microsoftOAuth)

			ucOpts := []usecase.Option{
				usecase.WithRefreshWindow(tuning.Window()),
				usecase.WithDeactivationGrace(tuning.Grace()),
			}
			if notifier != nil {
				ucOpts = append(ucOpts, usecase.WithNotifier(notifier))
			}
			uc := usecase.New(repo, registry, ucOpts...)

			queue := worker.NewQueue(
				worker.WithWorkers(tuning.Workers),
				worker.WithQueueSize(tuning.QueueSize),
				worker.WithMaxAttempts(tuning.MaxAttempts),
				worker.WithBaseDelay(tuning.BaseDelay()),
				worker.WithMaxDelay(tuning.MaxDelay()),
			)
			if err := queue.Start(ctx); err != nil {
				return goerr.Wrap(err, "failed to start job queue")
			}

			refreshWorker := worker.NewTokenRefreshWorker(uc, tuning.Interval())
			if err := refreshWorker.Start(ctx); err != nil {
				return goerr.Wrap(err, "failed to start token refresh worker")
			}

			for _, raw := range c.StringSlice("business-id") {
				businessID := types.BusinessID(raw)
				job := worker.NewScheduleImportsJob(uc, repo, queue, businessID)
				if err := queue.Enqueue(job); err != nil {
					logging.Default().Warn("import scheduling skipped",
						"businessID", businessID, "error", err)
				}
			}

			httpOpts := []httpctrl.Options{}
			if notifier != nil {
				httpOpts = append(httpOpts, httpctrl.WithNotifier(notifier))
			}
			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc, repo, queue, httpOpts...),
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				refreshWorker.Stop()
				queue.Stop()

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
