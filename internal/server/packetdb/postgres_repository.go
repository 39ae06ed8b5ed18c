package packetdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/bulletinkeeper/internal/bulletin"
	"github.com/dmitrijs2005/bulletinkeeper/internal/common"
	"github.com/dmitrijs2005/bulletinkeeper/internal/dbx"
)

// PostgresRepository implements packet queries over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func keyArgs(key bulletin.DatabaseKey) []any {
	return []any{key.UID.AccountID, key.UID.LocalID, string(key.Status)}
}

func (r *PostgresRepository) Get(ctx context.Context, key bulletin.DatabaseKey) ([]byte, error) {
	query := `SELECT data FROM packets WHERE account_id = $1 AND local_id = $2 AND status = $3`

	var data []byte
	err := r.db.QueryRowContext(ctx, query, keyArgs(key)...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return data, nil
}

func (r *PostgresRepository) Size(ctx context.Context, key bulletin.DatabaseKey) (int64, error) {
	query := `SELECT octet_length(data) FROM packets WHERE account_id = $1 AND local_id = $2 AND status = $3`

	var n int64
	err := r.db.QueryRowContext(ctx, query, keyArgs(key)...).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, common.ErrorNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Exists(ctx context.Context, key bulletin.DatabaseKey) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM packets WHERE account_id = $1 AND local_id = $2 AND status = $3)`

	var ok bool
	if err := r.db.QueryRowContext(ctx, query, keyArgs(key)...).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

// Upsert inserts or replaces a record.
func (r *PostgresRepository) Upsert(ctx context.Context, rec Record) error {
	query := `
		INSERT INTO packets (account_id, local_id, status, data, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (account_id, local_id, status)
		DO UPDATE SET data = EXCLUDED.data, updated_at = now();
	`
	args := append(keyArgs(rec.Key), rec.Data)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
	return nil
}

// Insert adds a record that must not exist yet. A conflicting row is left
// untouched and reported as common.ErrSealedPacketExists.
func (r *PostgresRepository) Insert(ctx context.Context, rec Record) error {
	query := `
		INSERT INTO packets (account_id, local_id, status, data, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (account_id, local_id, status) DO NOTHING;
	`
	args := append(keyArgs(rec.Key), rec.Data)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", common.ErrSealedPacketExists, rec.Key.UID.LocalID)
	}
	return nil
}

// Delete removes a record; deleting a missing key is not an error.
func (r *PostgresRepository) Delete(ctx context.Context, key bulletin.DatabaseKey) error {
	query := `DELETE FROM packets WHERE account_id = $1 AND local_id = $2 AND status = $3`
	if _, err := r.db.ExecContext(ctx, query, keyArgs(key)...); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Keys lists every stored key ordered by account, local id and status.
func (r *PostgresRepository) Keys(ctx context.Context) ([]bulletin.DatabaseKey, error) {
	query := `SELECT account_id, local_id, status FROM packets ORDER BY account_id, local_id, status`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select packets: %w", err)
	}
	defer rows.Close()

	var result []bulletin.DatabaseKey
	for rows.Next() {
		var k bulletin.DatabaseKey
		var status string
		if err := rows.Scan(&k.UID.AccountID, &k.UID.LocalID, &status); err != nil {
			return nil, err
		}
		k.Status = bulletin.Status(status)
		result = append(result, k)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
