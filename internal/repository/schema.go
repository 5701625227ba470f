package repository

import (
	"context"
	"fmt"
	"strings"

	"entgo.io/ent/dialect"
)

// column types that differ between backends
type ddlTypes struct {
	Bool, JSON, Float, BigInt string
}

var dialectTypes = map[string]ddlTypes{
	dialect.Postgres: {Bool: "BOOLEAN", JSON: "JSONB", Float: "DOUBLE PRECISION", BigInt: "BIGINT"},
	dialect.SQLite:   {Bool: "INTEGER", JSON: "TEXT", Float: "REAL", BigInt: "INTEGER"},
}

// Identifiers and timestamps are stored as TEXT on every backend; timestamps use
// "YYYY-MM-DD HH:MM:SS" in UTC.
const schemaTemplate = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	case_id TEXT NULL,
	document_type TEXT NOT NULL,
	file_path TEXT NOT NULL,
	media_type TEXT NOT NULL DEFAULT '',
	is_processed {{BOOL}} NOT NULL DEFAULT {{FALSE}},
	extracted_data {{JSON}} NULL,
	processed_at TEXT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS documents_unprocessed_idx ON documents (is_processed, created_at);
CREATE TABLE IF NOT EXISTS employment_relationships (
	id TEXT PRIMARY KEY,
	case_id TEXT NOT NULL,
	source_document_id TEXT NOT NULL,
	employer_name TEXT NOT NULL,
	employer_tax_id TEXT NOT NULL DEFAULT '',
	start_date TEXT NULL,
	end_date TEXT NULL,
	salary {{FLOAT}} NOT NULL DEFAULT 0,
	"position" TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS employment_relationships_case_idx ON employment_relationships (case_id);
CREATE INDEX IF NOT EXISTS employment_relationships_source_idx ON employment_relationships (source_document_id);
CREATE TABLE IF NOT EXISTS extraction_runs (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL,
	document_type TEXT NOT NULL,
	status TEXT NOT NULL,
	stage TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL DEFAULT '',
	error TEXT NULL,
	started_at TEXT NOT NULL,
	finished_at TEXT NULL,
	duration_ms {{BIGINT}} NULL
);
CREATE INDEX IF NOT EXISTS extraction_runs_document_idx ON extraction_runs (document_id);
`

func schemaStatements(d string) ([]string, error) {
	t, ok := dialectTypes[d]
	if !ok {
		return nil, fmt.Errorf("no schema for dialect %q", d)
	}
	falseLit := "FALSE"
	if d == dialect.SQLite {
		falseLit = "0"
	}
	ddl := strings.NewReplacer(
		"{{BOOL}}", t.Bool,
		"{{FALSE}}", falseLit,
		"{{JSON}}", t.JSON,
		"{{FLOAT}}", t.Float,
		"{{BIGINT}}", t.BigInt,
	).Replace(schemaTemplate)

	var stmts []string
	for _, s := range strings.Split(ddl, ";") {
		if s = strings.TrimSpace(s); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts, nil
}

// Migrate creates the tables and indexes if they do not exist.
func (db *DB) Migrate(ctx context.Context) error {
	stmts, err := schemaStatements(db.dialect)
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if err := db.drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			db.logger.Error("migration failed", "error", err)
			return fmt.Errorf("migrate: %w", err)
		}
	}
	db.logger.Info("database schema up to date", "dialect", db.dialect, "statements", len(stmts))
	return nil
}
