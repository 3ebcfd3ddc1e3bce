// Package customer is the SQLite-backed customer record store used by the
// customer_lookup tool. Only protected forms of personal data are stored:
// emails as SHA-256 digests and phone numbers masked to their last two digits.
package customer

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Lookup when no record matches.
var ErrNotFound = errors.New("customer not found")

// Record is a stored customer row.
type Record struct {
	ID          int64  `json:"id"`
	EmailSHA256 string `json:"email_sha256"`
	PhoneMasked string `json:"phone_masked"`
	Notes       string `json:"notes"`
}

// String renders the record the way it is shown to the model.
func (r Record) String() string {
	return fmt.Sprintf("(%d, '%s', '%s', '%s')", r.ID, r.EmailSHA256, r.PhoneMasked, r.Notes)
}

// Store reads and writes customer records.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS customers (
		id INTEGER PRIMARY KEY,
		email_sha256 TEXT NOT NULL,
		phone_masked TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT ''
	);`); err != nil {
		return fmt.Errorf("create customers table: %w", err)
	}
	return nil
}

// Put inserts or replaces a customer, hashing the email and masking the phone.
func (s *Store) Put(ctx context.Context, id int64, email, phone, notes string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO customers (id, email_sha256, phone_masked, notes) VALUES (?, ?, ?, ?)`,
		id, HashEmail(email), MaskPhone(phone), notes,
	)
	if err != nil {
		return fmt.Errorf("put customer %d: %w", id, err)
	}
	return nil
}

// Lookup returns the record with the given id.
func (s *Store) Lookup(ctx context.Context, id int64) (Record, error) {
	var r Record
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email_sha256, phone_masked, notes FROM customers WHERE id = ?`, id,
	).Scan(&r.ID, &r.EmailSHA256, &r.PhoneMasked, &r.Notes)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("lookup customer %d: %w", id, err)
	}
	return r, nil
}

// Reset drops every record.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM customers`); err != nil {
		return fmt.Errorf("reset customers: %w", err)
	}
	return nil
}

// Seed replaces the table content with the demo customer.
func (s *Store) Seed(ctx context.Context) error {
	if err := s.Reset(ctx); err != nil {
		return err
	}
	return s.Put(ctx, 12345, "alice@example.com", "555-0101", "VIP customer")
}

// HashEmail returns the hex SHA-256 of the trimmed, lower-cased email.
func HashEmail(email string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])
}

// MaskPhone keeps only the last two digits of a phone number.
func MaskPhone(phone string) string {
	digits := make([]rune, 0, len(phone))
	for _, r := range phone {
		if unicode.IsDigit(r) {
			digits = append(digits, r)
		}
	}
	if len(digits) < 2 {
		return "***"
	}
	return "***-**" + string(digits[len(digits)-2:])
}
