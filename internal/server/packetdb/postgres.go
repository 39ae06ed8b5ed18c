package packetdb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/bulletinkeeper/internal/bulletin"
	"github.com/dmitrijs2005/bulletinkeeper/internal/dbx"
	"github.com/dmitrijs2005/bulletinkeeper/internal/server/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// sqlOpen is a seam for testing sql.Open.
var sqlOpen = sql.Open

// PostgresDatabase is the PostgreSQL-backed Database.
type PostgresDatabase struct {
	db *sql.DB
}

// NewPostgresDatabase wraps an already-open connection pool.
func NewPostgresDatabase(db *sql.DB) *PostgresDatabase {
	return &PostgresDatabase{db: db}
}

// OpenPostgres connects with pgx and applies the embedded migrations.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresDatabase, error) {
	db, err := sqlOpen("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}
	return NewPostgresDatabase(db), nil
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

func (p *PostgresDatabase) repo() *PostgresRepository {
	return NewPostgresRepository(p.db)
}

func (p *PostgresDatabase) ReadRecord(ctx context.Context, key bulletin.DatabaseKey) ([]byte, error) {
	return p.repo().Get(ctx, key)
}

func (p *PostgresDatabase) RecordExists(ctx context.Context, key bulletin.DatabaseKey) (bool, error) {
	return p.repo().Exists(ctx, key)
}

func (p *PostgresDatabase) RecordSize(ctx context.Context, key bulletin.DatabaseKey) (int64, error) {
	return p.repo().Size(ctx, key)
}

func (p *PostgresDatabase) WriteRecord(ctx context.Context, rec Record) error {
	return p.repo().Upsert(ctx, rec)
}

func (p *PostgresDatabase) Commit(ctx context.Context, deletes []bulletin.DatabaseKey, writes []Record) error {
	return dbx.WithTx(ctx, p.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := NewPostgresRepository(tx)
		for _, k := range deletes {
			if err := repo.Delete(ctx, k); err != nil {
				return err
			}
		}
		for _, rec := range writes {
			write := repo.Upsert
			if rec.Key.IsSealed() {
				write = repo.Insert
			}
			if err := write(ctx, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// Visit snapshots the key list before calling fn so fn may query the
// database without holding a cursor open.
func (p *PostgresDatabase) Visit(ctx context.Context, fn func(bulletin.DatabaseKey) error) error {
	keys, err := p.repo().Keys(ctx)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(k); err != nil {
			return err
		}
	}
	return nil
}

func (p *PostgresDatabase) Close() error {
	return p.db.Close()
}
