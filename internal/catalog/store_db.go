package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
	pgUniqueCode = "23505"
)

// PostgresStore expects the following table to exist:
//
//	CREATE TABLE items (
//		id           text PRIMARY KEY,
//		name         text NOT NULL,
//		price        numeric NOT NULL CHECK (price >= 0),
//		created_date timestamptz NOT NULL
//	);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres opens a pgx-backed *sql.DB and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	const op = "OpenPostgres"

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := withTimeout(ctx, pingTimeout, db.PingContext); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return db, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.db.PingContext(ctx)
	})
}

func (s *PostgresStore) Create(ctx context.Context, it Item) error {
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO items (id, name, price, created_date)
			VALUES ($1, $2, $3, $4)
		`, it.ID, it.Name, it.Price, it.CreatedDate)
		return err
	})
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: id=%s", ErrDuplicateID, it.ID)
	}
	return err
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Item, bool, error) {
	var it Item

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, `
			SELECT id, name, price, created_date
			FROM items
			WHERE id = $1
		`, id).Scan(&it.ID, &it.Name, &it.Price, &it.CreatedDate)
	})

	if errors.Is(err, sql.ErrNoRows) {
		return Item{}, false, nil
	}
	if err != nil {
		return Item{}, false, err
	}
	it.CreatedDate = it.CreatedDate.UTC()
	return it, true, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Item, error) {
	var out []Item

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT id, name, price, created_date
			FROM items
			ORDER BY created_date ASC, id ASC
		`)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]Item, 0, 16)
		for rows.Next() {
			var it Item
			if err := rows.Scan(&it.ID, &it.Name, &it.Price, &it.CreatedDate); err != nil {
				return err
			}
			it.CreatedDate = it.CreatedDate.UTC()
			out = append(out, it)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update leaves created_date untouched regardless of what it carries.
func (s *PostgresStore) Update(ctx context.Context, it Item) error {
	return s.execOne(ctx, it.ID, `
		UPDATE items
		SET name = $2, price = $3
		WHERE id = $1
	`, it.ID, it.Name, it.Price)
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	return s.execOne(ctx, id, `DELETE FROM items WHERE id = $1`, id)
}

func (s *PostgresStore) execOne(ctx context.Context, id, query string, args ...any) error {
	var n int64

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: id=%s", ErrUnknownID, id)
	}
	return nil
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueCode
}
