package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"AutoTrader/internal/model"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists the trading journal and the candle store to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL so the candle refresh job and the session loop do not block readers.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS candles (
			market    TEXT    NOT NULL,
			timestamp INTEGER NOT NULL,
			open      REAL,
			high      REAL,
			low       REAL,
			close     REAL,
			volume    REAL,
			PRIMARY KEY (market, timestamp)
		)`,

		`CREATE TABLE IF NOT EXISTS orders (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			market     TEXT,
			signal     TEXT,
			side       TEXT,
			ord_type   TEXT,
			price      TEXT,
			volume     TEXT,
			order_id   TEXT,
			state      TEXT,
			error      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_ts ON orders(timestamp)`,

		`CREATE TABLE IF NOT EXISTS sessions (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			kind       TEXT,
			state      TEXT,
			started_at INTEGER,
			reason     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_ts ON sessions(timestamp)`,

		`CREATE TABLE IF NOT EXISTS liquidations (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			currency  TEXT,
			volume    REAL,
			order_id  TEXT,
			result    TEXT,
			note      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_liquidations_ts ON liquidations(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordOrder(evt *OrderEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO orders
		(timestamp, market, signal, side, ord_type, price, volume, order_id, state, error)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), evt.Market, string(evt.Signal), string(evt.Side), string(evt.Type),
		evt.Price, evt.Volume, evt.OrderID, evt.State, evt.Error,
	)
	return err
}

func (r *SQLiteRecorder) RecordSession(evt *model.SessionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO sessions
		(timestamp, kind, state, started_at, reason)
		VALUES (?,?,?,?,?)`,
		evt.At.Unix(), string(evt.Kind), evt.State.String(), evt.StartedAt.Unix(), evt.Reason,
	)
	return err
}

func (r *SQLiteRecorder) RecordLiquidation(evt *LiquidationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO liquidations
		(timestamp, currency, volume, order_id, result, note)
		VALUES (?,?,?,?,?,?)`,
		time.Now().Unix(), evt.Currency, evt.Volume, evt.OrderID, evt.Result, evt.Note,
	)
	return err
}

// SaveCandles upserts bars for market; a re-fetched candle replaces the stored one.
func (r *SQLiteRecorder) SaveCandles(market string, bars []model.OHLCV) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO candles
		(market, timestamp, open, high, low, close, volume)
		VALUES (?,?,?,?,?,?,?)
		ON CONFLICT(market, timestamp) DO UPDATE SET
			open=excluded.open, high=excluded.high, low=excluded.low,
			close=excluded.close, volume=excluded.volume`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.Exec(market, b.Time.Unix(), b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert candle %s@%s: %w", market, b.Time.Format(time.RFC3339), err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) QueryCandles(market string, from, to time.Time) ([]model.OHLCV, error) {
	rows, err := r.db.Query(`SELECT timestamp, open, high, low, close, volume
		FROM candles WHERE market = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC`,
		market, from.Unix(), to.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("query candles: %w", err)
	}
	defer rows.Close()

	var bars []model.OHLCV
	for rows.Next() {
		var ts int64
		var b model.OHLCV
		if err := rows.Scan(&ts, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		b.Time = time.Unix(ts, 0).In(model.KST())
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

func (r *SQLiteRecorder) LatestCandleTime(market string) (time.Time, bool, error) {
	var ts sql.NullInt64
	err := r.db.QueryRow(`SELECT MAX(timestamp) FROM candles WHERE market = ?`, market).Scan(&ts)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("latest candle: %w", err)
	}
	if !ts.Valid {
		return time.Time{}, false, nil
	}
	return time.Unix(ts.Int64, 0).In(model.KST()), true, nil
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
