package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// DefaultMigrationsSource - каталог миграций относительно рабочей директории
const DefaultMigrationsSource = "file://migrations"

// migrationURL переводит DSN postgres:// в схему драйвера pgx5 для golang-migrate
func migrationURL(databaseURL string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(databaseURL, prefix) {
			return "pgx5://" + strings.TrimPrefix(databaseURL, prefix)
		}
	}
	return databaseURL
}

// NewMigrator создает экземпляр golang-migrate; вызывающий обязан вызвать Close
func NewMigrator(databaseURL, source string) (*migrate.Migrate, error) {
	if source == "" {
		source = DefaultMigrationsSource
	}
	m, err := migrate.New(source, migrationURL(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("could not create migrate instance: %w", err)
	}
	return m, nil
}

// MigrateUp применяет все новые миграции. Отсутствие изменений ошибкой не считается.
func MigrateUp(databaseURL, source string) error {
	m, err := NewMigrator(databaseURL, source)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// MigrateDown откатывает steps последних миграций
func MigrateDown(databaseURL, source string, steps int) error {
	m, err := NewMigrator(databaseURL, source)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to roll back migrations: %w", err)
	}
	return nil
}
