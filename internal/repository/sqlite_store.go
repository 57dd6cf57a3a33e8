// Package repository provides the persistence backends behind the
// domain/repository.Store interface: an embedded SQLite file for single-node
// deployments and ClickHouse for shared ones.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"ThetaHarvest/internal/domain/models"
	"ThetaHarvest/pkg/logger"
)

// scanHistoryKeep bounds how many scan results are retained; older rows are
// pruned on every save.
const scanHistoryKeep = 50

// SQLiteStore implements repository.Store on an embedded SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	log *logger.Logger
}

// NewSQLiteStore opens (and creates, if needed) the database file.
func NewSQLiteStore(path string, log *logger.Logger) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	// The sqlite driver serializes writes anyway; a single connection avoids
	// SQLITE_BUSY churn under the concurrent scan workers.
	db.SetMaxOpenConns(1)
	return &SQLiteStore{db: db, log: log}, nil
}

// Init creates the schema. Idempotent.
func (s *SQLiteStore) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS daily_iv (
			ticker     TEXT NOT NULL,
			date       TEXT NOT NULL,
			atm_iv     REAL NOT NULL,
			rv30       REAL,
			vrp        REAL,
			term_slope REAL,
			PRIMARY KEY (ticker, date)
		)`,
		`CREATE TABLE IF NOT EXISTS scan_results (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			scanned_at   TEXT NOT NULL,
			ticker_count INTEGER NOT NULL,
			best_ticker  TEXT,
			best_score   INTEGER,
			regime       TEXT NOT NULL,
			tickers      TEXT NOT NULL,
			historical   TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS scan_log (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			scanned_at   TEXT NOT NULL,
			ticker_count INTEGER NOT NULL,
			duration_ms  INTEGER NOT NULL,
			errors       TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS earnings_cache (
			ticker        TEXT PRIMARY KEY,
			earnings_date TEXT NOT NULL,
			fetched_at    TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite init: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) UpsertDailyPoint(ctx context.Context, ticker string, p models.HistoricalPoint) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_iv (ticker, date, atm_iv, rv30, vrp, term_slope)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (ticker, date) DO UPDATE SET
			atm_iv = excluded.atm_iv,
			rv30 = excluded.rv30,
			vrp = excluded.vrp,
			term_slope = excluded.term_slope`,
		ticker, p.Date, p.AtmIV, p.RV30, p.VRP, p.TermSlope)
	if err != nil {
		return fmt.Errorf("upsert daily point: %w", err)
	}
	return nil
}

func (s *SQLiteStore) HistoricalIVs(ctx context.Context, ticker string, lookbackDays int) ([]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT atm_iv FROM daily_iv
		WHERE ticker = ?
		ORDER BY date DESC
		LIMIT ?`, ticker, lookbackDays)
	if err != nil {
		return nil, fmt.Errorf("query historical ivs: %w", err)
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var iv float64
		if err := rows.Scan(&iv); err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	reverseFloats(out)
	return out, rows.Err()
}

func (s *SQLiteStore) Series(ctx context.Context, ticker string, lookbackDays int) ([]models.HistoricalPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, atm_iv, rv30, vrp, term_slope FROM daily_iv
		WHERE ticker = ?
		ORDER BY date DESC
		LIMIT ?`, ticker, lookbackDays)
	if err != nil {
		return nil, fmt.Errorf("query series: %w", err)
	}
	defer rows.Close()

	var out []models.HistoricalPoint
	for rows.Next() {
		var p models.HistoricalPoint
		if err := rows.Scan(&p.Date, &p.AtmIV, &p.RV30, &p.VRP, &p.TermSlope); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	reversePoints(out)
	return out, rows.Err()
}

func (s *SQLiteStore) PointCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM daily_iv`).Scan(&n)
	return n, err
}

func (s *SQLiteStore) SaveScan(ctx context.Context, res *models.ScanResult) error {
	regime, err := json.Marshal(res.Regime)
	if err != nil {
		return fmt.Errorf("marshal regime: %w", err)
	}
	tickers, err := json.Marshal(res.Tickers)
	if err != nil {
		return fmt.Errorf("marshal tickers: %w", err)
	}
	historical, err := json.Marshal(res.Historical)
	if err != nil {
		return fmt.Errorf("marshal historical: %w", err)
	}

	var bestTicker sql.NullString
	var bestScore sql.NullInt64
	if len(res.Tickers) > 0 {
		bestTicker = sql.NullString{String: res.Tickers[0].Ticker, Valid: true}
		bestScore = sql.NullInt64{Int64: int64(res.Tickers[0].Score), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scan_results (scanned_at, ticker_count, best_ticker, best_score, regime, tickers, historical)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		res.ScannedAt.UTC().Format(time.RFC3339), len(res.Tickers), bestTicker, bestScore,
		string(regime), string(tickers), string(historical))
	if err != nil {
		return fmt.Errorf("insert scan: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		DELETE FROM scan_results
		WHERE id NOT IN (SELECT id FROM scan_results ORDER BY id DESC LIMIT ?)`,
		scanHistoryKeep)
	if err != nil {
		return fmt.Errorf("prune scans: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LatestScan(ctx context.Context) (*models.ScanResult, error) {
	var scannedAt, regime, tickers, historical string
	err := s.db.QueryRowContext(ctx, `
		SELECT scanned_at, regime, tickers, historical FROM scan_results
		ORDER BY id DESC LIMIT 1`).
		Scan(&scannedAt, &regime, &tickers, &historical)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest scan: %w", err)
	}
	return unmarshalScan(scannedAt, regime, tickers, historical)
}

func (s *SQLiteStore) ScanHistory(ctx context.Context, limit int) ([]models.ScanSummary, error) {
	if limit <= 0 || limit > scanHistoryKeep {
		limit = scanHistoryKeep
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scanned_at, ticker_count, best_ticker, best_score FROM scan_results
		ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query scan history: %w", err)
	}
	defer rows.Close()

	var out []models.ScanSummary
	for rows.Next() {
		var sum models.ScanSummary
		var scannedAt string
		var bestTicker sql.NullString
		var bestScore sql.NullInt64
		if err := rows.Scan(&sum.ID, &scannedAt, &sum.TickerCount, &bestTicker, &bestScore); err != nil {
			return nil, err
		}
		sum.ScannedAt, _ = time.Parse(time.RFC3339, scannedAt)
		if bestTicker.Valid {
			sum.BestTicker = bestTicker.String
		}
		if bestScore.Valid {
			score := int(bestScore.Int64)
			sum.BestScore = &score
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) LogScan(ctx context.Context, scannedAt time.Time, tickers int, duration time.Duration, errs []string) error {
	var errText sql.NullString
	if len(errs) > 0 {
		b, _ := json.Marshal(errs)
		errText = sql.NullString{String: string(b), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scan_log (scanned_at, ticker_count, duration_ms, errors)
		VALUES (?, ?, ?, ?)`,
		scannedAt.UTC().Format(time.RFC3339), tickers, duration.Milliseconds(), errText)
	return err
}

func (s *SQLiteStore) CachedEarnings(ctx context.Context, ticker string) (string, error) {
	var date string
	err := s.db.QueryRowContext(ctx,
		`SELECT earnings_date FROM earnings_cache WHERE ticker = ?`, ticker).Scan(&date)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return date, err
}

func (s *SQLiteStore) StoreEarnings(ctx context.Context, ticker, date string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO earnings_cache (ticker, earnings_date, fetched_at)
		VALUES (?, ?, ?)
		ON CONFLICT (ticker) DO UPDATE SET
			earnings_date = excluded.earnings_date,
			fetched_at = excluded.fetched_at`,
		ticker, date, time.Now().UTC().Format(time.RFC3339))
	return err
}

func (s *SQLiteStore) ClearEarnings(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM earnings_cache`)
	return err
}

func (s *SQLiteStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func unmarshalScan(scannedAt, regime, tickers, historical string) (*models.ScanResult, error) {
	res := &models.ScanResult{}
	var err error
	if res.ScannedAt, err = time.Parse(time.RFC3339, scannedAt); err != nil {
		return nil, fmt.Errorf("parse scanned_at: %w", err)
	}
	if err := json.Unmarshal([]byte(regime), &res.Regime); err != nil {
		return nil, fmt.Errorf("unmarshal regime: %w", err)
	}
	if err := json.Unmarshal([]byte(tickers), &res.Tickers); err != nil {
		return nil, fmt.Errorf("unmarshal tickers: %w", err)
	}
	if err := json.Unmarshal([]byte(historical), &res.Historical); err != nil {
		return nil, fmt.Errorf("unmarshal historical: %w", err)
	}
	return res, nil
}

func reverseFloats(s []float64) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func reversePoints(s []models.HistoricalPoint) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
