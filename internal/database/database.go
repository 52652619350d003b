package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// connectionParams are appended to the database path. Write transactions start
// with BEGIN IMMEDIATE so concurrent writers queue on the busy timeout instead
// of failing on lock upgrade.
const connectionParams = "_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate&_foreign_keys=0"

type Database struct {
	DB   *gorm.DB
	path string
}

// NewDatabase opens the database and applies all pending migrations.
func NewDatabase(dbPath string) (*Database, error) {
	database, err := Connect(dbPath)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := database.MigrateUp(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Printf("Database initialized successfully at %s", dbPath)

	return database, nil
}

// Connect opens the database without touching the schema.
func Connect(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dsn(dbPath)), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Database{DB: db, path: dbPath}, nil
}

func dsn(dbPath string) string {
	if strings.Contains(dbPath, "?") {
		return dbPath + "&" + connectionParams
	}
	return dbPath + "?" + connectionParams
}

// Path returns the filesystem path the database was opened with.
func (d *Database) Path() string {
	return d.path
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that the underlying connection is usable.
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (d *Database) migrationProvider() (*goose.Provider, error) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return nil, err
	}
	migrations, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, err
	}
	return goose.NewProvider(goose.DialectSQLite3, sqlDB, migrations)
}

// MigrateUp applies every pending migration and returns how many ran.
func (d *Database) MigrateUp(ctx context.Context) (int, error) {
	provider, err := d.migrationProvider()
	if err != nil {
		return 0, err
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return 0, err
	}
	for _, r := range results {
		log.Printf("Applied migration %s (%v)", r.Source.Path, r.Duration.Round(time.Millisecond))
	}
	return len(results), nil
}

// MigrateDown rolls back the most recent migration.
func (d *Database) MigrateDown(ctx context.Context) error {
	provider, err := d.migrationProvider()
	if err != nil {
		return err
	}
	result, err := provider.Down(ctx)
	if err != nil {
		return err
	}
	log.Printf("Rolled back migration %s", result.Source.Path)
	return nil
}

// MigrationStatus describes one known migration.
type MigrationStatus struct {
	Version   int64
	Path      string
	Applied   bool
	AppliedAt time.Time
}

// MigrationStatus lists all embedded migrations and whether they are applied.
func (d *Database) MigrationStatus(ctx context.Context) ([]MigrationStatus, error) {
	provider, err := d.migrationProvider()
	if err != nil {
		return nil, err
	}
	statuses, err := provider.Status(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]MigrationStatus, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, MigrationStatus{
			Version:   s.Source.Version,
			Path:      s.Source.Path,
			Applied:   s.State == goose.StateApplied,
			AppliedAt: s.AppliedAt,
		})
	}
	return out, nil
}

// SchemaVersion returns the version of the latest applied migration.
func (d *Database) SchemaVersion(ctx context.Context) (int64, error) {
	provider, err := d.migrationProvider()
	if err != nil {
		return 0, err
	}
	return provider.GetDBVersion(ctx)
}
