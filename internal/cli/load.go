package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/vvka-141/pgseed/internal/db"
	"github.com/vvka-141/pgseed/internal/db/manager"
	"github.com/vvka-141/pgseed/internal/loader"
	"github.com/vvka-141/pgseed/internal/logging"
	"github.com/vvka-141/pgseed/internal/report"
	"github.com/vvka-141/pgseed/internal/services"
	"github.com/vvka-141/pgseed/internal/ui"
	"github.com/vvka-141/pgseed/pkg/pgseed"
)

// Seams replaced in tests.
var (
	sessionOpener = db.ConnectorOpener(db.NewConnector)
	newApprover   = func(force, verbose bool) pgseed.Approver {
		return ui.NewApprover(force, ui.DetectMode(), verbose)
	}
)

func newLoadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Create databases, schemas and tables and load their CSV data",
		Long: `Load runs the catalog against one PostgreSQL server:

1. On the maintenance database, (re)create every catalog database
2. For each database: (re)create its schemas
3. For each schema: create all tables, then TRUNCATE and COPY each CSV source

A failing table or load is reported and the run continues with the next one.
A connection failure stops the run.

With the default recreate policy existing databases and schemas are DROPPED.
You are asked to confirm unless --force is given or no terminal is attached.

Examples:
  # Built-in catalog against the docker-compose server
  pgseed load --force

  # Custom catalog, only one database, non-destructive
  pgseed load --catalog catalog.yaml --only kaggle_db --policy preserve

  # CSV sources in MinIO, JSON report, fail the job on any failed step
  pgseed load --catalog catalog.yaml --s3-endpoint https://minio:9000 --report json --strict`,
		Args: cobra.NoArgs,
		RunE: runLoad,
	}

	addConnectionFlags(cmd.Flags())
	addS3Flags(cmd.Flags())
	addCatalogFlags(cmd.Flags())
	addRunFlags(cmd.Flags())
	return cmd
}

func runLoad(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if err := report.ValidateFormat(settings.Report); err != nil {
		return err
	}

	logger, err := logging.New(settings.LogFormat, settings.Verbose)
	if err != nil {
		return err
	}
	runID := uuid.New()
	logger = logging.WithRunID(logger, runID.String())
	if settings.File != "" {
		logger.Verbose("Using settings from %s", settings.File)
	}

	connConfig, err := db.ResolveConnection(settings.ConnectionFlags(), db.LoadFromEnvironment())
	if err != nil {
		return err
	}
	logger.Verbose("Server %s:%d as %s, maintenance database %s (%s)",
		connConfig.Host, connConfig.Port, connConfig.Username, connConfig.Database, connConfig.AuthMethod)

	cat, err := loadCatalog(settings)
	if err != nil {
		return err
	}

	opener, err := newSourceOpener(settings)
	if err != nil {
		return err
	}

	svc := services.NewLoadService(
		sessionOpener,
		newApprover(settings.Force, settings.Verbose),
		logger,
		manager.New(logger),
		loader.New(opener, logger),
	)

	ctx, cancel := runContext(cmd.Context(), settings.Timeout)
	defer cancel()

	rep, runErr := svc.Run(ctx, cat, pgseed.RunOptions{
		Connection: connConfig,
		Policy:     settings.RunPolicy(),
		Only:       settings.Only,
		SkipLoad:   settings.SkipLoad,
		RunID:      runID,
	})

	if rep != nil && len(rep.Steps) > 0 {
		if err := report.Render(cmd.OutOrStdout(), rep, settings.Report); err != nil {
			logger.Error("Failed to render report: %v", err)
		}
	}
	if runErr != nil {
		return fmt.Errorf("load failed: %w", runErr)
	}

	if failed := rep.Failed(); len(failed) > 0 {
		logger.Error("%d of %d steps failed", len(failed), len(rep.Steps))
		if settings.Strict {
			return rep.Err()
		}
		return nil
	}
	logger.Info("Run %s completed: %d rows loaded", rep.RunID, rep.RowsLoaded())
	return nil
}

// runContext bounds the run by timeout (zero means none) and cancels it on
// SIGINT or SIGTERM.
func runContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, timeout)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, "\n[INTERRUPT] Received interrupt signal, cancelling run...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
