package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	migrate "github.com/rubenv/sql-migrate"

	"github.com/okian/commskill/internal/domain/model"
	"github.com/okian/commskill/internal/domain/scoring"
	"github.com/okian/commskill/pkg/metrics"
)

const (
	pgUniqueViolation   = "23505"
	mysqlDuplicateEntry = 1062
	recordColumns       = "id, owner_id, video_url, scores, feedback, created_at, digest"
)

// SQLStore is a Store backed by PostgreSQL or MySQL.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// Open connects to the database, checks connectivity and, unless disabled,
// applies migrations.
func Open(ctx context.Context, driver, dsn string, opts ...SQLOption) (*SQLStore, error) {
	o := sqlOptions{
		maxOpenConns:    defaultMaxOpenConns,
		maxIdleConns:    defaultMaxIdleConns,
		connMaxLifetime: defaultConnMaxLifetime,
		migrate:         true,
	}
	for _, opt := range opts {
		opt(&o)
	}

	dsn, err := prepareDSN(driver, dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	db.SetMaxOpenConns(o.maxOpenConns)
	db.SetMaxIdleConns(o.maxIdleConns)
	db.SetConnMaxLifetime(o.connMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	s, err := NewSQLStore(db, driver)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if o.migrate {
		if _, err := s.Migrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

// NewSQLStore wraps an existing connection pool.
func NewSQLStore(db *sql.DB, driver string) (*SQLStore, error) {
	if driver != DriverPostgres && driver != DriverMySQL {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
	return &SQLStore{db: db, driver: driver}, nil
}

// prepareDSN forces UTC time parsing for MySQL, which otherwise returns
// DATETIME columns as []byte.
func prepareDSN(driver, dsn string) (string, error) {
	switch driver {
	case DriverPostgres:
		return dsn, nil
	case DriverMySQL:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return "", fmt.Errorf("parse mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		cfg.Loc = time.UTC
		return cfg.FormatDSN(), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
}

// Migrate applies pending migrations and returns how many ran.
func (s *SQLStore) Migrate() (int, error) {
	src, err := migrations(s.driver)
	if err != nil {
		return 0, err
	}
	n, err := migrate.Exec(s.db, s.driver, src, migrate.Up)
	if err != nil {
		return n, fmt.Errorf("migrate %s: %w", s.driver, err)
	}
	return n, nil
}

// Ping checks connectivity.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders as $n for PostgreSQL.
func rebind(driver, q string) string {
	if driver != DriverPostgres {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isDuplicate(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgUniqueViolation
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	return false
}

// Save implements Store.
func (s *SQLStore) Save(ctx context.Context, rec model.AnalysisRecord) error {
	if err := validate(rec); err != nil {
		return err
	}
	scores, err := json.Marshal(rec.Scores)
	if err != nil {
		return fmt.Errorf("encode scores: %w", err)
	}
	var feedback sql.NullString
	if rec.Feedback != nil {
		b, err := json.Marshal(rec.Feedback)
		if err != nil {
			return fmt.Errorf("encode feedback: %w", err)
		}
		feedback = sql.NullString{String: string(b), Valid: true}
	}
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	q := rebind(s.driver, `INSERT INTO analysis_records (`+recordColumns+`) VALUES (?,?,?,?,?,?,?)`)
	if _, err := s.db.ExecContext(ctx, q, rec.ID, rec.OwnerID, rec.VideoURL, string(scores), feedback, created.UTC(), rec.Digest); err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("%w: duplicate id %s", ErrInvalidRecord, rec.ID)
		}
		metrics.RecordError("repository", "save")
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (model.AnalysisRecord, error) {
	var (
		rec      model.AnalysisRecord
		scores   string
		feedback sql.NullString
	)
	if err := row.Scan(&rec.ID, &rec.OwnerID, &rec.VideoURL, &scores, &feedback, &rec.CreatedAt, &rec.Digest); err != nil {
		return model.AnalysisRecord{}, err
	}
	rec.Scores = scoring.Scores{}
	if err := json.Unmarshal([]byte(scores), &rec.Scores); err != nil {
		return model.AnalysisRecord{}, fmt.Errorf("decode scores of %s: %w", rec.ID, err)
	}
	if feedback.Valid && feedback.String != "" {
		rec.Feedback = &model.Insights{}
		if err := json.Unmarshal([]byte(feedback.String), rec.Feedback); err != nil {
			return model.AnalysisRecord{}, fmt.Errorf("decode feedback of %s: %w", rec.ID, err)
		}
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

// Get implements Store.
func (s *SQLStore) Get(ctx context.Context, owner, id string) (model.AnalysisRecord, error) {
	q := rebind(s.driver, `SELECT `+recordColumns+` FROM analysis_records WHERE id = ? AND owner_id = ?`)
	rec, err := scanRecord(s.db.QueryRowContext(ctx, q, id, owner))
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordError("repository", "not_found")
		return model.AnalysisRecord{}, ErrNotFound
	}
	if err != nil {
		return model.AnalysisRecord{}, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

// List implements Store.
func (s *SQLStore) List(ctx context.Context, owner string, limit int) ([]model.AnalysisRecord, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	q := rebind(s.driver, `SELECT `+recordColumns+` FROM analysis_records
WHERE owner_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`)
	rows, err := s.db.QueryContext(ctx, q, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	out := make([]model.AnalysisRecord, 0, limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete implements Store.
func (s *SQLStore) Delete(ctx context.Context, owner, id string) (model.AnalysisRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.AnalysisRecord{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	q := rebind(s.driver, `SELECT `+recordColumns+` FROM analysis_records WHERE id = ? AND owner_id = ?`)
	rec, err := scanRecord(tx.QueryRowContext(ctx, q, id, owner))
	if errors.Is(err, sql.ErrNoRows) {
		return model.AnalysisRecord{}, ErrNotFound
	}
	if err != nil {
		return model.AnalysisRecord{}, fmt.Errorf("delete record: %w", err)
	}
	if _, err := tx.ExecContext(ctx, rebind(s.driver, `DELETE FROM analysis_records WHERE id = ?`), id); err != nil {
		return model.AnalysisRecord{}, fmt.Errorf("delete record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.AnalysisRecord{}, fmt.Errorf("commit: %w", err)
	}
	return rec, nil
}

// Count implements Store. Query failures count as zero.
func (s *SQLStore) Count(ctx context.Context) int {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analysis_records`).Scan(&n); err != nil {
		metrics.RecordError("repository", "count")
		return 0
	}
	metrics.UpdateStoredRecords(n)
	return n
}
