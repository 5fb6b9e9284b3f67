// Package storage is the durable event store: an append-only expense log,
// the user registry and the seeded category catalog, all in SQLite.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"traty/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SetClock overrides the timestamp source. Tests use this to insert records
// at known creation times.
func (r *SQLiteRepository) SetClock(now func() time.Time) {
	r.now = now
}

// UpsertUser registers a user or refreshes the display name of an existing
// one. Idempotent; the registration timestamp is kept from first contact.
func (r *SQLiteRepository) UpsertUser(ctx context.Context, id int64, displayName string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (user_id, display_name, registered_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET display_name = excluded.display_name`,
		id, displayName, r.now())
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// GetUser returns the registered user, or sql.ErrNoRows wrapped.
func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, display_name, registered_at FROM users WHERE user_id = ?`,
		id).Scan(&u.ID, &u.DisplayName, &u.RegisteredAt)
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// CreateExpense appends one record with a server-assigned timestamp. The
// write is the commit point of an entry flow; it either lands whole or
// fails loud.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, userID int64, amount core.Money, category, description string) (core.ExpenseRecord, error) {
	rec := core.ExpenseRecord{
		UserID:      userID,
		Amount:      amount,
		Category:    category,
		Description: description,
		CreatedAt:   r.now(),
	}
	if err := rec.Validate(); err != nil {
		return core.ExpenseRecord{}, err
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO expenses (user_id, amount_kopecks, category, description, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		rec.UserID, rec.Amount.Kopecks, rec.Category, rec.Description, rec.CreatedAt)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("insert expense: %w", err)
	}
	rec.ID, err = res.LastInsertId()
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("expense id: %w", err)
	}

	slog.InfoContext(ctx, "Expense recorded",
		"id", rec.ID,
		"user_id", rec.UserID,
		"amount_kopecks", rec.Amount.Kopecks,
		"category", rec.Category)

	return rec, nil
}

// ExpensesByWindow returns the user's records with timestamps in
// [start, end], oldest first. Nil bounds leave that side unbounded.
func (r *SQLiteRepository) ExpensesByWindow(ctx context.Context, userID int64, start, end *time.Time) ([]core.ExpenseRecord, error) {
	query := `SELECT id, user_id, amount_kopecks, category, description, created_at
		FROM expenses WHERE user_id = ?`
	args := []any{userID}
	if start != nil {
		query += " AND created_at >= ?"
		args = append(args, *start)
	}
	if end != nil {
		query += " AND created_at <= ?"
		args = append(args, *end)
	}
	query += " ORDER BY created_at ASC"

	return r.queryExpenses(ctx, query, args...)
}

// ExpensesByCategory is an exact-match filter on the stored category. The
// caller strips decorative glyphs; the store never interprets them.
func (r *SQLiteRepository) ExpensesByCategory(ctx context.Context, userID int64, category string) ([]core.ExpenseRecord, error) {
	return r.queryExpenses(ctx, `
		SELECT id, user_id, amount_kopecks, category, description, created_at
		FROM expenses WHERE user_id = ? AND category = ?
		ORDER BY created_at ASC`,
		userID, category)
}

// TopExpenses returns the n largest records, ties broken most recent first.
func (r *SQLiteRepository) TopExpenses(ctx context.Context, userID int64, n int) ([]core.ExpenseRecord, error) {
	return r.queryExpenses(ctx, `
		SELECT id, user_id, amount_kopecks, category, description, created_at
		FROM expenses WHERE user_id = ?
		ORDER BY amount_kopecks DESC, created_at DESC
		LIMIT ?`,
		userID, n)
}

// LatestExpenses returns the most recent records, newest first.
func (r *SQLiteRepository) LatestExpenses(ctx context.Context, userID int64, limit int) ([]core.ExpenseRecord, error) {
	return r.queryExpenses(ctx, `
		SELECT id, user_id, amount_kopecks, category, description, created_at
		FROM expenses WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?`,
		userID, limit)
}

// Categories returns the seeded catalog in seed order.
func (r *SQLiteRepository) Categories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, glyph FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var cats []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.Name, &c.Glyph); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (r *SQLiteRepository) queryExpenses(ctx context.Context, query string, args ...any) ([]core.ExpenseRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var records []core.ExpenseRecord
	for rows.Next() {
		var rec core.ExpenseRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Amount.Kopecks,
			&rec.Category, &rec.Description, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
