package application

import (
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// MigrationManager applies the SQL schemas modules register at load time.
type MigrationManager interface {
	RegisterSchema(fsys fs.FS)
	Run() error
	Rollback() error
}

func NewMigrationManager(pool *pgxpool.Pool) MigrationManager {
	return &migrationManager{pool: pool}
}

type migrationManager struct {
	pool    *pgxpool.Pool
	schemas []fs.FS
}

func (m *migrationManager) RegisterSchema(fsys fs.FS) {
	m.schemas = append(m.schemas, fsys)
}

func (m *migrationManager) Run() error {
	db := stdlib.OpenDBFromPool(m.pool)
	defer func() { _ = db.Close() }()

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	for _, fsys := range m.schemas {
		goose.SetBaseFS(fsys)
		if err := goose.Up(db, "."); err != nil {
			return err
		}
	}
	goose.SetBaseFS(nil)
	return nil
}

func (m *migrationManager) Rollback() error {
	db := stdlib.OpenDBFromPool(m.pool)
	defer func() { _ = db.Close() }()

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	for _, fsys := range m.schemas {
		goose.SetBaseFS(fsys)
		if err := goose.Down(db, "."); err != nil {
			return err
		}
	}
	goose.SetBaseFS(nil)
	return nil
}
