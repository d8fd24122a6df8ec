package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" //nolint:blank-imports

	goose "github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var coreMigrations embed.FS

const coreVersionTable = "goose_db_version"

// MigrationSet is a module-owned directory of goose migrations.
type MigrationSet struct {
	Module string
	FS     fs.FS
	Dir    string
}

// CoreMigrations returns the schema shared by every module.
func CoreMigrations() MigrationSet {
	return MigrationSet{Module: "core", FS: coreMigrations, Dir: "migrations"}
}

// goose keeps its configuration in package globals.
var migrateMu sync.Mutex

// Migrate applies the core schema followed by each module set. Every module
// tracks its versions in its own table so numbering never collides.
func Migrate(ctx context.Context, dsn string, sets ...MigrationSet) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("platform/db: open migrations: %w", err)
	}
	defer sqlDB.Close()

	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("platform/db: goose dialect: %w", err)
	}
	defer goose.SetTableName(coreVersionTable)

	all := append([]MigrationSet{CoreMigrations()}, sets...)
	for _, set := range all {
		if set.FS == nil {
			continue
		}
		table := coreVersionTable
		if set.Module != "core" {
			table = coreVersionTable + "_" + set.Module
		}
		goose.SetBaseFS(set.FS)
		goose.SetTableName(table)
		dir := set.Dir
		if dir == "" {
			dir = "."
		}
		if err := goose.UpContext(ctx, sqlDB, dir); err != nil && !errors.Is(err, goose.ErrNoNextVersion) {
			return fmt.Errorf("platform/db: migrate %s: %w", set.Module, err)
		}
	}
	return nil
}
