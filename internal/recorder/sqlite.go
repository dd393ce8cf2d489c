package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists historical data to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboards can read while training writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id         TEXT PRIMARY KEY,
			timestamp  INTEGER NOT NULL,
			symbol     TEXT,
			mode       TEXT,
			episodes   INTEGER,
			batch_size INTEGER,
			bars       INTEGER
		)`,

		`CREATE TABLE IF NOT EXISTS episodes (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			run_id       TEXT NOT NULL,
			episode      INTEGER,
			steps        INTEGER,
			trades       INTEGER,
			total_profit TEXT,
			mean_loss    REAL,
			epsilon      REAL,
			checkpoint   TEXT,
			duration_ms  INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_episodes_run ON episodes(run_id, episode)`,

		`CREATE TABLE IF NOT EXISTS signals (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			symbol      TEXT,
			model       TEXT,
			action      TEXT,
			confidence  REAL,
			p_hold      REAL,
			p_buy       REAL,
			p_sell      REAL,
			tier_label  TEXT,
			price       REAL,
			rsi         REAL,
			warning     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_ts ON signals(timestamp)`,

		`CREATE TABLE IF NOT EXISTS trades (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			symbol      TEXT,
			side        TEXT,
			price       TEXT,
			profit      TEXT,
			cash_after  TEXT,
			holdings    INTEGER,
			note        TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_ts ON trades(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", strings.TrimSpace(s)[:30], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRun(run *Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO runs
		(id, timestamp, symbol, mode, episodes, batch_size, bars)
		VALUES (?,?,?,?,?,?,?)`,
		run.ID, run.StartedAt.Unix(), run.Symbol, run.Mode,
		run.Episodes, run.BatchSize, run.Bars,
	)
	return err
}

func (r *SQLiteRecorder) RecordEpisode(ep *Episode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO episodes
		(timestamp, run_id, episode, steps, trades, total_profit, mean_loss, epsilon, checkpoint, duration_ms)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), ep.RunID, ep.Episode, ep.Steps, ep.Trades,
		ep.TotalProfit.String(), ep.MeanLoss, ep.Epsilon, ep.Checkpoint,
		ep.Duration.Milliseconds(),
	)
	return err
}

func (r *SQLiteRecorder) RecordSignal(evt *SignalEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sig := evt.Signal
	probs := make([]float64, 3)
	copy(probs, sig.Probabilities)

	_, err := r.db.Exec(`INSERT INTO signals
		(timestamp, symbol, model, action, confidence, p_hold, p_buy, p_sell, tier_label, price, rsi, warning)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), sig.Symbol, evt.Model, sig.Action.String(), sig.Confidence,
		probs[0], probs[1], probs[2], sig.Tier.Label, sig.Price, sig.RSI, sig.WarningMsg,
	)
	return err
}

func (r *SQLiteRecorder) RecordTrade(evt *TradeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO trades
		(timestamp, symbol, side, price, profit, cash_after, holdings, note)
		VALUES (?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), evt.Symbol, evt.Side.String(),
		evt.Price.String(), evt.Profit.String(), evt.CashAfter.String(),
		evt.Holdings, evt.Note,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
