package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"notebot/internal/models"
	"notebot/internal/store"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// DBType represents the type of database
type DBType string

const (
	SQLite   DBType = "sqlite3"
	Postgres DBType = "postgres"
)

// SQLStore implements the Store interface for SQL databases. Each user is a
// single row; every Update is one transaction.
type SQLStore struct {
	db     *sql.DB
	dbType DBType
	config store.Config
	locks  store.Locker
}

var _ store.Store = (*SQLStore)(nil)

// New opens the database, creates the schema and validates every stored row.
func New(driver, connStr string, opts ...store.Option) (*SQLStore, error) {
	dbType := DBType(driver)
	if dbType != SQLite && dbType != Postgres {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, connStr)
	if err != nil {
		return nil, err
	}
	if dbType == SQLite {
		// One writer at a time; also keeps ":memory:" on a single database.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLStore{
		db:     db,
		dbType: dbType,
		config: store.NewConfig(opts...),
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := s.Load(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL
func (s *SQLStore) rebind(query string) string {
	if s.dbType == SQLite {
		return query
	}
	var result strings.Builder
	argNum := 1
	for _, c := range query {
		if c == '?' {
			result.WriteString(fmt.Sprintf("$%d", argNum))
			argNum++
		} else {
			result.WriteRune(c)
		}
	}
	return result.String()
}

func (s *SQLStore) initSchema() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS user_records (
		user_id TEXT PRIMARY KEY,
		notes TEXT NOT NULL,
		reset_date TEXT NOT NULL
	);`)
	return err
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Load reads and validates every row.
func (s *SQLStore) Load(ctx context.Context) (map[string]models.UserRecord, error) {
	unlock := s.locks.LockAll()
	defer unlock()

	rows, err := s.db.QueryContext(ctx, "SELECT user_id, notes, reset_date FROM user_records")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make(map[string]models.UserRecord)
	for rows.Next() {
		var userID, notes, resetDate string
		if err := rows.Scan(&userID, &notes, &resetDate); err != nil {
			return nil, err
		}
		rec, err := decodeRow(userID, notes, resetDate)
		if err != nil {
			return nil, err
		}
		records[userID] = rec
	}
	return records, rows.Err()
}

// Save replaces the table contents in one transaction.
func (s *SQLStore) Save(ctx context.Context, records map[string]models.UserRecord) error {
	unlock := s.locks.LockAll()
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM user_records"); err != nil {
		return err
	}
	for userID, rec := range records {
		if err := s.upsert(ctx, tx, userID, rec); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLStore) GetOrCreate(ctx context.Context, userID string) (models.UserRecord, error) {
	return s.Update(ctx, userID, func(*models.UserRecord) (bool, error) {
		return false, nil
	})
}

func (s *SQLStore) Update(ctx context.Context, userID string, fn store.UpdateFunc) (models.UserRecord, error) {
	if userID == "" {
		return models.UserRecord{}, fmt.Errorf("empty user id")
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.UserRecord{}, err
	}
	defer tx.Rollback()

	// Claim the row before locking it: FOR UPDATE cannot lock a row that does
	// not exist yet, and a concurrent creator blocks on the primary key here.
	created, err := s.insertIfAbsent(ctx, tx, userID, models.NewUserRecord(s.config.Now()))
	if err != nil {
		return models.UserRecord{}, err
	}

	query := "SELECT notes, reset_date FROM user_records WHERE user_id = ?"
	if s.dbType == Postgres {
		query += " FOR UPDATE"
	}

	var notes, resetDate string
	if err := tx.QueryRowContext(ctx, s.rebind(query), userID).Scan(&notes, &resetDate); err != nil {
		return models.UserRecord{}, err
	}
	current, err := decodeRow(userID, notes, resetDate)
	if err != nil {
		return models.UserRecord{}, err
	}

	next := current.Clone()
	changed, fnErr := fn(&next)
	if fnErr != nil {
		if created {
			if err := s.commit(tx, userID); err != nil {
				return models.UserRecord{}, err
			}
		}
		return models.UserRecord{}, fnErr
	}

	if changed {
		if err := s.upsert(ctx, tx, userID, next); err != nil {
			return models.UserRecord{}, err
		}
	}
	if changed || created {
		if err := s.commit(tx, userID); err != nil {
			return models.UserRecord{}, err
		}
	}
	return next, nil
}

// insertIfAbsent stores rec only when userID has no row and reports whether
// it did.
func (s *SQLStore) insertIfAbsent(ctx context.Context, tx *sql.Tx, userID string, rec models.UserRecord) (bool, error) {
	notes, err := store.EncodeNotes(rec.Notes)
	if err != nil {
		return false, err
	}
	res, err := tx.ExecContext(ctx, s.rebind(`
	INSERT INTO user_records (user_id, notes, reset_date) VALUES (?, ?, ?)
	ON CONFLICT (user_id) DO NOTHING`),
		userID, notes, store.FormatTime(rec.ResetAt))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *SQLStore) commit(tx *sql.Tx, userID string) error {
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit user %s: %w", userID, err)
	}
	return nil
}

func (s *SQLStore) upsert(ctx context.Context, tx *sql.Tx, userID string, rec models.UserRecord) error {
	notes, err := store.EncodeNotes(rec.Notes)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, s.rebind(`
	INSERT INTO user_records (user_id, notes, reset_date) VALUES (?, ?, ?)
	ON CONFLICT (user_id) DO UPDATE SET notes = excluded.notes, reset_date = excluded.reset_date`),
		userID, notes, store.FormatTime(rec.ResetAt))
	return err
}

func decodeRow(userID, notes, resetDate string) (models.UserRecord, error) {
	decoded, err := store.DecodeNotes(notes)
	if err != nil {
		return models.UserRecord{}, fmt.Errorf("user %s: %w", userID, err)
	}
	resetAt, err := store.ParseTime(resetDate)
	if err != nil {
		return models.UserRecord{}, fmt.Errorf("%w: user %s: reset_date: %v", store.ErrMalformedState, userID, err)
	}
	return models.UserRecord{Notes: decoded, ResetAt: resetAt}, nil
}
