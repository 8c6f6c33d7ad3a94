package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// storiesSchemaVersion is stored in PRAGMA user_version. Bump it when
// schema.sql changes shape.
const storiesSchemaVersion = 1

// ErrSchemaMismatch means the stories database was created by a different
// schema version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

func (s *Store) initSchema(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	switch version {
	case storiesSchemaVersion:
		return nil
	case 0:
		return s.createStoriesSchema(ctx)
	default:
		return fmt.Errorf("%w: %s is at version %d, reelsmith expects %d (remove it to rebuild the story list)",
			ErrSchemaMismatch, s.path, version, storiesSchemaVersion)
	}
}

func (s *Store) createStoriesSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create stories table: %w", err)
	}
	// PRAGMA does not accept bound parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", storiesSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return tx.Commit()
}
