package markettape

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"lighterdash/internal/market"
)

// Tick 是某个交易对在一次刷新中的行情切片。
type Tick struct {
	Symbol          string    `json:"symbol"`
	TakenAt         time.Time `json:"taken_at"`
	MarkPrice       float64   `json:"mark_price"`
	Change24hPct    float64   `json:"change_24h_pct"`
	Volume24hUSD    float64   `json:"volume_24h_usd"`
	OpenInterestUSD float64   `json:"open_interest_usd"`
	FundingRate8h   float64   `json:"funding_rate_8h"`
}

const maxSeriesLimit = 5000

// Tape appends market rows per refresh into a single SQLite file.
type Tape struct {
	db *sql.DB
}

func Open(path string) (*Tape, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("market tape path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Tape{db: db}, nil
}

func (t *Tape) Close() error {
	if t == nil || t.db == nil {
		return nil
	}
	return t.db.Close()
}

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS market_ticks (
			symbol TEXT NOT NULL,
			taken_at INTEGER NOT NULL,
			mark_price REAL NOT NULL,
			change_24h_pct REAL NOT NULL,
			volume_24h_usd REAL NOT NULL,
			open_interest_usd REAL NOT NULL,
			funding_rate_8h REAL NOT NULL,
			PRIMARY KEY (symbol, taken_at)
		);
		CREATE INDEX IF NOT EXISTS idx_market_ticks_taken_at ON market_ticks(taken_at);
	`)
	return err
}

// Append 批量写入一次刷新的全部行（同一时间戳重复写入将覆盖）。
func (t *Tape) Append(ctx context.Context, takenAt time.Time, rows []market.Row) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO market_ticks (symbol, taken_at, mark_price, change_24h_pct, volume_24h_usd, open_interest_usd, funding_rate_8h)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol, taken_at) DO UPDATE SET
			mark_price=excluded.mark_price,
			change_24h_pct=excluded.change_24h_pct,
			volume_24h_usd=excluded.volume_24h_usd,
			open_interest_usd=excluded.open_interest_usd,
			funding_rate_8h=excluded.funding_rate_8h
	`)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	defer stmt.Close()
	ts := takenAt.UnixMilli()
	n := 0
	for _, r := range rows {
		symbol := strings.ToUpper(strings.TrimSpace(r.Symbol))
		if symbol == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, symbol, ts, r.MarkPrice, r.Change24hPct, r.Volume24hUSD, r.OpenInterestUSD, r.FundingRate8h); err != nil {
			_ = tx.Rollback()
			return 0, err
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

// Series returns the latest limit ticks of symbol in ascending time order.
func (t *Tape) Series(ctx context.Context, symbol string, limit int) ([]Tick, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol cannot be empty")
	}
	if limit <= 0 || limit > maxSeriesLimit {
		limit = maxSeriesLimit
	}
	rows, err := t.db.QueryContext(ctx, `
		SELECT symbol, taken_at, mark_price, change_24h_pct, volume_24h_usd, open_interest_usd, funding_rate_8h
		FROM market_ticks
		WHERE symbol = ?
		ORDER BY taken_at DESC
		LIMIT ?
	`, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Tick
	for rows.Next() {
		var (
			tk Tick
			ts int64
		)
		if err := rows.Scan(&tk.Symbol, &ts, &tk.MarkPrice, &tk.Change24hPct, &tk.Volume24hUSD, &tk.OpenInterestUSD, &tk.FundingRate8h); err != nil {
			return nil, err
		}
		tk.TakenAt = time.UnixMilli(ts).UTC()
		out = append(out, tk)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (t *Tape) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := t.db.ExecContext(ctx, `DELETE FROM market_ticks WHERE taken_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
