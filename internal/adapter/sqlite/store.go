package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/pm25-stats/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS city_severity (
    city         TEXT    NOT NULL,
    source       TEXT    NOT NULL,
    heavy        REAL    NOT NULL,
    medium       REAL    NOT NULL,
    light        REAL    NOT NULL,
    good         REAL    NOT NULL,
    hours        INTEGER NOT NULL,
    generated_at DATETIME NOT NULL,
    PRIMARY KEY (city, source)
);

CREATE TABLE IF NOT EXISTS monthly_average (
    city    TEXT    NOT NULL,
    month   TEXT    NOT NULL,
    station TEXT    NOT NULL,
    mean    REAL    NOT NULL,
    hours   INTEGER NOT NULL,
    PRIMARY KEY (city, month, station)
);
`

// Store writes city reports into the city_severity and monthly_average tables.
// Re-running a city replaces its rows. It implements pipeline.ReportSink.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore wraps an open database. Call Init before writing.
func NewStore(db *sql.DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Init creates the tables if they do not exist.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

func (s *Store) WriteReport(ctx context.Context, report domain.CityReport) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err := insertSeverity(ctx, tx, report); err != nil {
		return err
	}
	if err := replaceMonthly(ctx, tx, report); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit city %s: %w", report.City, err)
	}
	s.logger.Debug("report stored", "city", report.City, "months", len(report.Monthly))
	return nil
}

func insertSeverity(ctx context.Context, tx *sql.Tx, report domain.CityReport) error {
	const q = `
		INSERT INTO city_severity (city, source, heavy, medium, light, good, hours, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (city, source) DO UPDATE SET
			heavy = excluded.heavy,
			medium = excluded.medium,
			light = excluded.light,
			good = excluded.good,
			hours = excluded.hours,
			generated_at = excluded.generated_at`

	for _, src := range domain.Sources {
		sh := report.Shares(src)
		if _, err := tx.ExecContext(ctx, q,
			report.City, string(src), sh.Heavy, sh.Medium, sh.Light, sh.Good, sh.Hours,
			report.GeneratedAt.UTC(),
		); err != nil {
			return fmt.Errorf("insert severity %s/%s: %w", report.City, src, err)
		}
	}
	return nil
}

func replaceMonthly(ctx context.Context, tx *sql.Tx, report domain.CityReport) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM monthly_average WHERE city = ?`, report.City); err != nil {
		return fmt.Errorf("clear monthly %s: %w", report.City, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO monthly_average (city, month, station, mean, hours)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare monthly insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range report.Monthly {
		for i, station := range report.Stations {
			if i >= len(m.Means) {
				return fmt.Errorf("city %s month %s: missing mean for %s", report.City, m.Label, station)
			}
			if _, err := stmt.ExecContext(ctx, report.City, m.Label, station, m.Means[i], m.Hours); err != nil {
				return fmt.Errorf("insert monthly %s/%s: %w", report.City, m.Label, err)
			}
		}
	}
	return nil
}

// ErrNotFound is returned when no stored row matches a lookup.
var ErrNotFound = errors.New("not found")

// Shares returns the stored band shares of a city for one source.
func (s *Store) Shares(ctx context.Context, city string, src domain.Source) (domain.BandShares, time.Time, error) {
	var (
		sh          domain.BandShares
		generatedAt time.Time
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT heavy, medium, light, good, hours, generated_at
		FROM city_severity WHERE city = ? AND source = ?`, city, string(src),
	).Scan(&sh.Heavy, &sh.Medium, &sh.Light, &sh.Good, &sh.Hours, &generatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.BandShares{}, time.Time{}, fmt.Errorf("severity %s/%s: %w", city, src, ErrNotFound)
	}
	if err != nil {
		return domain.BandShares{}, time.Time{}, fmt.Errorf("query severity %s/%s: %w", city, src, err)
	}
	return sh, generatedAt, nil
}

// StationMonthly returns a station's monthly means for a city, ordered by month.
func (s *Store) StationMonthly(ctx context.Context, city, station string) (map[string]float64, []string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT month, mean FROM monthly_average
		WHERE city = ? AND station = ?
		ORDER BY month`, city, station)
	if err != nil {
		return nil, nil, fmt.Errorf("query monthly %s/%s: %w", city, station, err)
	}
	defer rows.Close()

	means := make(map[string]float64)
	var order []string
	for rows.Next() {
		var (
			month string
			mean  float64
		)
		if err := rows.Scan(&month, &mean); err != nil {
			return nil, nil, fmt.Errorf("scan monthly: %w", err)
		}
		means[month] = mean
		order = append(order, month)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate monthly: %w", err)
	}
	return means, order, nil
}
