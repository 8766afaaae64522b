// Package migrations embeds the versioned schema and applies it with golang-migrate.
package migrations

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed *.sql
var files embed.FS

// FS exposes the embedded migration files.
func FS() fs.FS {
	return files
}

// Up applies every pending up migration against dbURL. It is a no-op when the
// schema is already current.
func Up(dbURL string) error {
	src, err := iofs.New(files, ".")
	if err != nil {
		return fmt.Errorf("open migration source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dbURL)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// UpScripts returns the contents of the up migrations in version order. Tests
// use it to prepare throwaway databases without the migrate bookkeeping table.
func UpScripts() ([]string, error) {
	names, err := fs.Glob(files, "*_*.up.sql")
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, errors.New("no migration files found")
	}
	sort.Strings(names)

	scripts := make([]string, 0, len(names))
	for _, name := range names {
		payload, err := fs.ReadFile(files, name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		scripts = append(scripts, string(payload))
	}
	return scripts, nil
}
