package pg

import (
	"context"
	"fmt"
	"io/fs"
	"sort"

	migrations "github.com/dropDatabas3/oauthbridge/migrations/postgres"
)

// migrationFiles lista las migraciones embebidas en orden ascendente de
// aplicación (el prefijo numérico del nombre define el orden).
func migrationFiles() ([]string, error) {
	names, err := fs.Glob(migrations.FS, "*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Migrate aplica las migraciones embebidas en orden. Los archivos usan
// IF NOT EXISTS, así que correrlo contra un esquema ya migrado es seguro.
func (s *Store) Migrate(ctx context.Context) error {
	names, err := migrationFiles()
	if err != nil {
		return fmt.Errorf("pg: list migrations: %w", err)
	}
	for _, name := range names {
		b, err := migrations.FS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("pg: read migration %s: %w", name, err)
		}
		if _, err := s.pool.Exec(ctx, string(b)); err != nil {
			return fmt.Errorf("pg: apply migration %s: %w", name, err)
		}
	}
	return nil
}
