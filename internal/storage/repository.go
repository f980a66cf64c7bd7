// Package storage is the SQLite implementation of the remote transactions
// table and of the local account store.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"shopledger/internal/core"
	applog "shopledger/internal/log"
	"shopledger/internal/remote"
)

type SQLiteRepository struct {
	db     *sql.DB
	logger *applog.Logger
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// applies pending migrations.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// single writer; avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:     db,
		logger: applog.Default(applog.ComponentStorage),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

var _ remote.Table = (*SQLiteRepository)(nil)

const selectColumns = `id, user_id, description, amount_cents, type, category, date`

func (r *SQLiteRepository) Select(ctx context.Context, table string, f remote.Filter) ([]core.Transaction, error) {
	if err := remote.CheckTable(table); err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}

	query := `SELECT ` + selectColumns + ` FROM transactions WHERE user_id = ?`
	args := []any{f.UserID}
	if f.ID != "" {
		query += ` AND id = ?`
		args = append(args, f.ID)
	}
	query += ` ORDER BY date DESC, created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			t     core.Transaction
			cents int64
			typ   string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Description, &cents, &typ, &t.Category, &t.Date); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Amount = core.Money{Cents: cents}
		t.Type = core.TxType(typ)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// Insert writes all rows in one database transaction.
func (r *SQLiteRepository) Insert(ctx context.Context, table string, rows []core.Transaction) ([]core.Transaction, error) {
	if err := remote.CheckTable(table); err != nil {
		return nil, err
	}
	for _, t := range rows {
		if err := t.ValidatePersisted(); err != nil {
			return nil, err
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO transactions (id, user_id, description, amount_cents, type, category, date) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range rows {
		if _, err := stmt.ExecContext(ctx, t.ID, t.UserID, t.Description, t.Amount.Cents, string(t.Type), t.Category, t.Date); err != nil {
			if isUniqueViolation(err) {
				return nil, fmt.Errorf("%w: %s", remote.ErrDuplicateID, t.ID)
			}
			return nil, fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit insert: %w", err)
	}

	r.logger.DebugContext(ctx, "Transactions written to SQLite", applog.FieldCount, len(rows))
	return append([]core.Transaction(nil), rows...), nil
}

func (r *SQLiteRepository) DeleteWhere(ctx context.Context, table string, f remote.Filter) error {
	if err := remote.CheckTable(table); err != nil {
		return err
	}
	if err := f.Validate(); err != nil {
		return err
	}

	query := `DELETE FROM transactions WHERE user_id = ?`
	args := []any{f.UserID}
	if f.ID != "" {
		query += ` AND id = ?`
		args = append(args, f.ID)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete transactions: %w", err)
	}
	n, _ := res.RowsAffected()
	r.logger.DebugContext(ctx, "Transactions deleted from SQLite",
		applog.FieldUserID, f.UserID,
		"removed", n)
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
