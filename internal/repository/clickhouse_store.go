package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ThetaHarvest/internal/domain/models"
	pkgch "ThetaHarvest/pkg/clickhouse"
	"ThetaHarvest/pkg/logger"
)

// CHStore implements repository.Store on ClickHouse, for deployments where
// several scanner instances share one history. Daily points and earnings
// rows live in ReplacingMergeTree tables so the upsert semantics match the
// SQLite backend; scan results age out via TTL instead of explicit pruning.
type CHStore struct {
	client *pkgch.Client
	log    *logger.Logger
}

func NewCHStore(client *pkgch.Client, log *logger.Logger) *CHStore {
	return &CHStore{client: client, log: log}
}

func (s *CHStore) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS vol_daily_iv (
			ticker     String,
			date       Date,
			atm_iv     Float64,
			rv30       Nullable(Float64),
			vrp        Nullable(Float64),
			term_slope Nullable(Float64)
		) ENGINE = ReplacingMergeTree
		ORDER BY (ticker, date)`,
		`CREATE TABLE IF NOT EXISTS vol_scan_results (
			scanned_at   DateTime,
			ticker_count UInt32,
			best_ticker  String,
			best_score   Nullable(Int32),
			regime       String,
			tickers      String,
			historical   String
		) ENGINE = MergeTree
		ORDER BY scanned_at
		TTL scanned_at + INTERVAL 90 DAY`,
		`CREATE TABLE IF NOT EXISTS vol_scan_log (
			scanned_at   DateTime,
			ticker_count UInt32,
			duration_ms  UInt64,
			errors       String
		) ENGINE = MergeTree
		ORDER BY scanned_at
		TTL scanned_at + INTERVAL 90 DAY`,
		`CREATE TABLE IF NOT EXISTS vol_earnings_cache (
			ticker        String,
			earnings_date String,
			fetched_at    DateTime
		) ENGINE = ReplacingMergeTree(fetched_at)
		ORDER BY ticker`,
	}
	return s.client.InitSchema(ctx, stmts)
}

func (s *CHStore) UpsertDailyPoint(ctx context.Context, ticker string, p models.HistoricalPoint) error {
	_, err := s.client.DB().ExecContext(ctx, `
		INSERT INTO vol_daily_iv (ticker, date, atm_iv, rv30, vrp, term_slope)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ticker, p.Date, p.AtmIV, p.RV30, p.VRP, p.TermSlope)
	if err != nil {
		return fmt.Errorf("insert daily point: %w", err)
	}
	return nil
}

func (s *CHStore) HistoricalIVs(ctx context.Context, ticker string, lookbackDays int) ([]float64, error) {
	rows, err := s.client.DB().QueryContext(ctx, `
		SELECT atm_iv FROM vol_daily_iv FINAL
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

func (s *CHStore) Series(ctx context.Context, ticker string, lookbackDays int) ([]models.HistoricalPoint, error) {
	rows, err := s.client.DB().QueryContext(ctx, `
		SELECT toString(date), atm_iv, rv30, vrp, term_slope FROM vol_daily_iv FINAL
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

func (s *CHStore) PointCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.client.DB().QueryRowContext(ctx,
		`SELECT count() FROM vol_daily_iv FINAL`).Scan(&n)
	return n, err
}

func (s *CHStore) SaveScan(ctx context.Context, res *models.ScanResult) error {
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

	bestTicker := ""
	var bestScore *int32
	if len(res.Tickers) > 0 {
		bestTicker = res.Tickers[0].Ticker
		score := int32(res.Tickers[0].Score)
		bestScore = &score
	}

	_, err = s.client.DB().ExecContext(ctx, `
		INSERT INTO vol_scan_results
			(scanned_at, ticker_count, best_ticker, best_score, regime, tickers, historical)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		res.ScannedAt.UTC(), uint32(len(res.Tickers)), bestTicker, bestScore,
		string(regime), string(tickers), string(historical))
	if err != nil {
		return fmt.Errorf("insert scan: %w", err)
	}
	return nil
}

func (s *CHStore) LatestScan(ctx context.Context) (*models.ScanResult, error) {
	var scannedAt time.Time
	var regime, tickers, historical string
	err := s.client.DB().QueryRowContext(ctx, `
		SELECT scanned_at, regime, tickers, historical FROM vol_scan_results
		ORDER BY scanned_at DESC LIMIT 1`).
		Scan(&scannedAt, &regime, &tickers, &historical)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest scan: %w", err)
	}
	return unmarshalScan(scannedAt.UTC().Format(time.RFC3339), regime, tickers, historical)
}

func (s *CHStore) ScanHistory(ctx context.Context, limit int) ([]models.ScanSummary, error) {
	if limit <= 0 || limit > scanHistoryKeep {
		limit = scanHistoryKeep
	}
	rows, err := s.client.DB().QueryContext(ctx, `
		SELECT toUnixTimestamp(scanned_at), scanned_at, ticker_count, best_ticker, best_score
		FROM vol_scan_results
		ORDER BY scanned_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query scan history: %w", err)
	}
	defer rows.Close()

	var out []models.ScanSummary
	for rows.Next() {
		var sum models.ScanSummary
		var tickerCount uint32
		var bestScore *int32
		if err := rows.Scan(&sum.ID, &sum.ScannedAt, &tickerCount, &sum.BestTicker, &bestScore); err != nil {
			return nil, err
		}
		sum.TickerCount = int(tickerCount)
		if bestScore != nil {
			score := int(*bestScore)
			sum.BestScore = &score
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *CHStore) LogScan(ctx context.Context, scannedAt time.Time, tickers int, duration time.Duration, errs []string) error {
	errText := ""
	if len(errs) > 0 {
		b, _ := json.Marshal(errs)
		errText = string(b)
	}
	_, err := s.client.DB().ExecContext(ctx, `
		INSERT INTO vol_scan_log (scanned_at, ticker_count, duration_ms, errors)
		VALUES (?, ?, ?, ?)`,
		scannedAt.UTC(), uint32(tickers), uint64(duration.Milliseconds()), errText)
	return err
}

func (s *CHStore) CachedEarnings(ctx context.Context, ticker string) (string, error) {
	var date string
	err := s.client.DB().QueryRowContext(ctx, `
		SELECT earnings_date FROM vol_earnings_cache FINAL
		WHERE ticker = ?`, ticker).Scan(&date)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return date, err
}

func (s *CHStore) StoreEarnings(ctx context.Context, ticker, date string) error {
	_, err := s.client.DB().ExecContext(ctx, `
		INSERT INTO vol_earnings_cache (ticker, earnings_date, fetched_at)
		VALUES (?, ?, ?)`,
		ticker, date, time.Now().UTC())
	return err
}

func (s *CHStore) ClearEarnings(ctx context.Context) error {
	_, err := s.client.DB().ExecContext(ctx,
		`TRUNCATE TABLE IF EXISTS vol_earnings_cache`)
	return err
}

func (s *CHStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *CHStore) Close() error {
	return s.client.Close()
}
