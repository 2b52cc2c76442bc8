// Package manager creates the databases, schemas and tables a catalog
// describes.
//
// The bulk operations take an open pgseed.DBConnection and fold every item
// into a pgseed.StepResult, so one failing name is logged, recorded and
// skipped while the remaining names are still attempted:
//   - RecreateDatabases runs on the maintenance database. Under
//     PolicyRecreate it terminates other sessions, drops and creates each
//     database; under PolicyPreserve it creates only the missing ones.
//   - RecreateSchemas runs on the target database, one transaction per
//     schema. PolicyRecreate drops the schema with CASCADE first.
//   - CreateTable issues CREATE TABLE IF NOT EXISTS from the raw column
//     fragment in its own transaction.
//
// Identifiers are lower-cased and quoted with pgx.Identifier.Sanitize.
//
// # Example Usage
//
//	mgr := manager.New(logger)
//
//	// On the maintenance database
//	results := mgr.RecreateDatabases(ctx, admin, []string{"kaggle_db"}, pgseed.PolicyRecreate)
//
//	// On kaggle_db
//	results = append(results, mgr.RecreateSchemas(ctx, conn, []string{"IPL"}, pgseed.PolicyRecreate)...)
//	results = append(results, mgr.CreateTable(ctx, conn, "IPL", "teams", "Team_Id INT PRIMARY KEY"))
//
// Manager is NOT safe for concurrent use.
package manager
