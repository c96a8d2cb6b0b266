package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/khanhnv2901/siteaudit/internal/report"
	"github.com/khanhnv2901/siteaudit/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/siteaudit/internal/shared/errors"
	"github.com/khanhnv2901/siteaudit/internal/shared/security"
)

// Store persists completed audit reports. The pipeline treats every
// method as best-effort: a save failure is logged by the caller and
// never changes the response already computed.
type Store interface {
	SaveReport(ctx context.Context, r *report.Report, owner string) error
	GetReport(ctx context.Context, id string) (*report.Report, error)
	ListReports(ctx context.Context, limit int) ([]ReportSummary, error)
	Close() error
}

// ReportSummary is the lightweight listing row.
type ReportSummary struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Overall   int       `json:"overall_score"`
	Owner     string    `json:"owner,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SQLiteStore stores reports in a single SQLite file. Full reports are
// kept as JSON next to the indexed columns, which keeps the schema
// stable while the report shape evolves.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// Open opens or creates the report database under dir.
func Open(dir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dir, constants.DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	dbPath, err := security.ResolveWithin(dir, "siteaudit.db")
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite supports one writer; keep the pool at a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &SQLiteStore{db: db, dbPath: dbPath}

	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		overall_score INTEGER NOT NULL,
		owner TEXT,
		created_at DATETIME NOT NULL,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reports_url ON reports(url);
	CREATE INDEX IF NOT EXISTS idx_reports_created ON reports(created_at);
	`
	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveReport stores one completed report. Owner is the optional caller
// identity forwarded by the API layer; the store does not validate it.
func (s *SQLiteStore) SaveReport(ctx context.Context, r *report.Report, owner string) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("serialize report: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reports (id, url, overall_score, owner, created_at, report_json)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.URL, r.Overall, owner, r.CreatedAt.UTC(), string(payload),
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// GetReport loads one report by ID.
func (s *SQLiteStore) GetReport(ctx context.Context, id string) (*report.Report, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT report_json FROM reports WHERE id = ?`, id,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sharedErrors.ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query report: %w", err)
	}

	var r report.Report
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return nil, fmt.Errorf("deserialize report: %w", err)
	}
	return &r, nil
}

// ListReports returns the most recent reports, newest first.
func (s *SQLiteStore) ListReports(ctx context.Context, limit int) ([]ReportSummary, error) {
	if limit <= 0 {
		limit = 25
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, url, overall_score, COALESCE(owner, ''), created_at
		 FROM reports ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	var out []ReportSummary
	for rows.Next() {
		var item ReportSummary
		if err := rows.Scan(&item.ID, &item.URL, &item.Overall, &item.Owner, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan report row: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}
