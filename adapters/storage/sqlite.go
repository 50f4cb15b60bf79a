package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"vat-cost/core/types"
	"vat-cost/internal/errors"
)

// timeLayout is fixed width so text ordering matches time ordering
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore keeps calculations in a SQLite database.
// Rows are append-only; the payload column holds the full calculation JSON.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens or creates the database at path.
// Use ":memory:" for an in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	memory := path == ":memory:"
	if !memory {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, errors.Wrapf(errors.TypeConfig, err, "failed to create storage directory for %s", path)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, errors.Wrap(errors.TypeInternal, "failed to open database", err)
	}
	if memory {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(errors.TypeInternal, "failed to migrate database", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS calculations (
		id TEXT PRIMARY KEY,
		input_hash TEXT NOT NULL,
		created_at TEXT NOT NULL,
		currency TEXT NOT NULL,
		countries TEXT NOT NULL,
		total TEXT NOT NULL,
		payload TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_calculations_created_at
		ON calculations(created_at);

	CREATE INDEX IF NOT EXISTS idx_calculations_input_hash
		ON calculations(input_hash);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Save(ctx context.Context, calc *types.Calculation) error {
	if calc == nil || calc.ID == "" {
		return errors.Validation("id", "calculation must have an id")
	}

	payload, err := json.Marshal(calc)
	if err != nil {
		return errors.Wrap(errors.TypeInternal, "failed to marshal calculation", err)
	}

	countries := make([]string, len(calc.Breakdowns))
	for i, b := range calc.Breakdowns {
		countries[i] = b.CountryCode
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM calculations WHERE id = ?`, calc.ID).Scan(&exists)
	if err != nil {
		return errors.Wrap(errors.TypeInternal, "failed to check calculation", err)
	}
	if exists > 0 {
		return errors.Validation("id", "calculation already stored: "+calc.ID)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO calculations (id, input_hash, created_at, currency, countries, total, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		calc.ID,
		calc.InputHash,
		calc.CreatedAt.UTC().Format(timeLayout),
		string(calc.Currency),
		strings.Join(countries, ","),
		calc.Total.String(),
		string(payload),
	)
	if err != nil {
		return errors.Wrap(errors.TypeInternal, "failed to insert calculation", err).
			WithContext("calculation_id", calc.ID)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*types.Calculation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM calculations WHERE id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("calculation", id)
	}
	if err != nil {
		return nil, errors.Wrap(errors.TypeInternal, "failed to read calculation", err)
	}
	return decode(payload)
}

func (s *SQLiteStore) List(ctx context.Context, filter *ListFilter) ([]*types.Calculation, error) {
	query := `SELECT payload FROM calculations WHERE 1=1`
	var args []interface{}

	if filter != nil {
		if filter.InputHash != "" {
			query += ` AND input_hash = ?`
			args = append(args, filter.InputHash)
		}
		if !filter.Since.IsZero() {
			query += ` AND created_at >= ?`
			args = append(args, filter.Since.UTC().Format(timeLayout))
		}
		if !filter.Until.IsZero() {
			query += ` AND created_at <= ?`
			args = append(args, filter.Until.UTC().Format(timeLayout))
		}
	}
	query += ` ORDER BY created_at DESC, id`
	if filter != nil && filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	} else if filter != nil && filter.Offset > 0 {
		query += ` LIMIT -1 OFFSET ?`
		args = append(args, filter.Offset)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.TypeInternal, "failed to list calculations", err)
	}
	defer rows.Close()

	results := []*types.Calculation{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, errors.Wrap(errors.TypeInternal, "failed to scan calculation", err)
		}
		calc, err := decode(payload)
		if err != nil {
			return nil, err
		}
		results = append(results, calc)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.TypeInternal, "failed to list calculations", err)
	}
	return results, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM calculations WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(errors.TypeInternal, "failed to delete calculation", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NotFound("calculation", id)
	}
	return nil
}

func (s *SQLiteStore) Compare(ctx context.Context, oldID, newID string) (*CompareResult, error) {
	oldCalc, err := s.Get(ctx, oldID)
	if err != nil {
		return nil, err
	}
	newCalc, err := s.Get(ctx, newID)
	if err != nil {
		return nil, err
	}
	return compare(oldCalc, newCalc)
}

func decode(payload string) (*types.Calculation, error) {
	var calc types.Calculation
	if err := json.Unmarshal([]byte(payload), &calc); err != nil {
		return nil, errors.DataIntegrity("stored calculation is corrupt", err)
	}
	return &calc, nil
}
