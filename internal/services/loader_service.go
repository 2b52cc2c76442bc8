package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/vvka-141/pgseed/internal/catalog"
	"github.com/vvka-141/pgseed/internal/db"
	"github.com/vvka-141/pgseed/pkg/pgseed"
)

var templateDatabases = []string{"template0", "template1"}

// LoadService sequences a run: databases on the maintenance database, then
// per database its schemas, tables and loads.
// Thread-Safety: NOT safe for concurrent Run() calls on the same instance.
type LoadService struct {
	open      db.SessionOpener
	approver  pgseed.Approver
	logger    pgseed.Logger
	dbManager pgseed.DatabaseManager
	loader    pgseed.BulkLoader
}

// NewLoadService creates a LoadService with all dependencies injected.
// Panics on nil dependencies.
func NewLoadService(
	open db.SessionOpener,
	approver pgseed.Approver,
	logger pgseed.Logger,
	dbManager pgseed.DatabaseManager,
	loader pgseed.BulkLoader,
) *LoadService {
	if open == nil {
		panic("open cannot be nil")
	}
	if approver == nil {
		panic("approver cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	if dbManager == nil {
		panic("dbManager cannot be nil")
	}
	if loader == nil {
		panic("loader cannot be nil")
	}
	return &LoadService{
		open:      open,
		approver:  approver,
		logger:    logger,
		dbManager: dbManager,
		loader:    loader,
	}
}

// Run executes cat against the server described by opts.Connection.
//
// Per-item failures end up in the report and never stop the run. Invalid
// options, a denied approval, a connection failure or a cancelled context
// return an error together with whatever the report holds at that point.
func (s *LoadService) Run(ctx context.Context, cat catalog.Catalog, opts pgseed.RunOptions) (*pgseed.Report, error) {
	report := pgseed.NewReport()
	defer report.Finish()
	if opts.RunID != uuid.Nil {
		report.RunID = opts.RunID
	}

	selected, maintenance, err := s.prepare(cat, opts)
	if err != nil {
		return report, err
	}

	s.logger.Verbose("Run %s: %d database(s), %d table(s), policy %s",
		report.RunID, len(selected.Databases), selected.TableCount(), opts.Policy)

	if err := s.approve(ctx, selected, opts.Policy); err != nil {
		return report, err
	}

	scope := db.NewScope(opts.Connection, s.open, s.logger)

	s.logger.Info("Creating databases %s ...", strings.Join(selected.DatabaseNames(), ", "))
	err = scope.With(ctx, maintenance, func(ctx context.Context, conn pgseed.DBConnection) error {
		report.Add(s.dbManager.RecreateDatabases(ctx, conn, selected.DatabaseNames(), opts.Policy)...)
		return ctx.Err()
	})
	if err != nil {
		return report, err
	}

	for _, database := range selected.Databases {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		err := scope.With(ctx, database.Name, func(ctx context.Context, conn pgseed.DBConnection) error {
			return s.populate(ctx, conn, selected, database, opts, report)
		})
		if err != nil {
			return report, err
		}
	}

	return report, nil
}

func (s *LoadService) prepare(cat catalog.Catalog, opts pgseed.RunOptions) (catalog.Catalog, string, error) {
	if err := opts.Validate(); err != nil {
		return catalog.Catalog{}, "", fmt.Errorf("invalid options: %w", err)
	}

	selected, err := cat.Select(opts.Only)
	if err != nil {
		return catalog.Catalog{}, "", err
	}

	maintenance := selected.MaintenanceDatabase
	if maintenance == "" {
		maintenance = opts.Connection.Database
	}
	selected.MaintenanceDatabase = maintenance

	if err := selected.Validate(); err != nil {
		return catalog.Catalog{}, "", err
	}
	for _, name := range selected.DatabaseNames() {
		if err := validateTarget(name, opts.Policy); err != nil {
			return catalog.Catalog{}, "", err
		}
	}
	return selected, maintenance, nil
}

func validateTarget(name string, policy pgseed.Policy) error {
	if !policy.IsDestructive() {
		return nil
	}
	for _, tmpl := range templateDatabases {
		if strings.EqualFold(name, tmpl) {
			return fmt.Errorf(
				"cannot recreate database %q: PostgreSQL template databases cannot be dropped: %w",
				name, pgseed.ErrInvalidConfig,
			)
		}
	}
	return nil
}

// approve asks once per database before anything is dropped.
func (s *LoadService) approve(ctx context.Context, cat catalog.Catalog, policy pgseed.Policy) error {
	if !policy.IsDestructive() {
		return nil
	}
	for _, name := range cat.DatabaseNames() {
		approved, err := s.approver.RequestApproval(ctx, name)
		if err != nil {
			return fmt.Errorf("approval request failed: %w", err)
		}
		if !approved {
			return fmt.Errorf("recreate of database %q: %w", name, pgseed.ErrApprovalDenied)
		}
	}
	return nil
}

// populate runs inside the scope of one database. Within each schema every
// table is created before any table is loaded.
func (s *LoadService) populate(ctx context.Context, conn pgseed.DBConnection, cat catalog.Catalog, database catalog.Database, opts pgseed.RunOptions, report *pgseed.Report) error {
	if len(database.Schemas) == 0 {
		s.logger.Verbose("Database %s has no schemas", database.Name)
		return nil
	}

	s.logger.Info("Creating schemas for %s database ...", database.Name)
	report.Add(s.dbManager.RecreateSchemas(ctx, conn, database.SchemaNames(), opts.Policy)...)

	for _, schema := range database.Schemas {
		if len(schema.Tables) == 0 {
			continue
		}

		s.logger.Info("Creating tables in schema %s of %s database ...", schema.Name, database.Name)
		for _, table := range schema.Tables {
			if err := ctx.Err(); err != nil {
				return err
			}
			report.Add(s.dbManager.CreateTable(ctx, conn, schema.Name, table.Name, table.Columns))
		}

		if opts.SkipLoad {
			continue
		}

		s.logger.Info("Loading data into the tables of schema %s of %s database ...", schema.Name, database.Name)
		for _, table := range schema.Tables {
			if err := ctx.Err(); err != nil {
				return err
			}
			if table.Source == "" {
				s.logger.Verbose("Table %s.%s has no source, skipping load", schema.Name, table.Name)
				continue
			}
			report.Add(s.loader.Load(ctx, conn, cat.ResolveSource(table.Source), schema.Name, table.Name))
		}
	}
	return nil
}
