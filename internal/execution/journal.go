package execution

import (
	"database/sql"
	"log"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// MemoryJournal is the DSN of a process-local journal that vanishes on exit.
const MemoryJournal = ":memory:"

// Journal records every trade decision to SQLite for inspection while the
// process runs.
type Journal struct {
	mu sync.Mutex
	db *sql.DB
}

// NewJournal opens (or creates) a SQLite journal. MemoryJournal keeps it in
// memory only.
func NewJournal(dbPath string) (*Journal, error) {
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL"
	if dbPath == "" || dbPath == MemoryJournal {
		dsn = MemoryJournal
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// each connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	schema := `
	CREATE TABLE IF NOT EXISTS decisions (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		strategy        TEXT NOT NULL,
		symbol          TEXT NOT NULL,
		timeframe       TEXT NOT NULL,
		vote            REAL NOT NULL,
		direction       TEXT NOT NULL,
		reasons         TEXT,
		status          TEXT NOT NULL,
		quantity        REAL DEFAULT 0,
		reference_price REAL DEFAULT 0,
		stop_loss       REAL DEFAULT 0,
		take_profit     REAL DEFAULT 0,
		error           TEXT,
		decided_at      DATETIME NOT NULL,
		created_at      DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_decisions_symbol ON decisions(symbol);
	CREATE INDEX IF NOT EXISTS idx_decisions_decided_at ON decisions(decided_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("[journal] opened decision journal at %s", dsn)
	return &Journal{db: db}, nil
}

// DecisionRecord represents a row from the decisions table.
type DecisionRecord struct {
	ID             int64     `json:"id"`
	Strategy       string    `json:"strategy"`
	Symbol         string    `json:"symbol"`
	Timeframe      string    `json:"timeframe"`
	Vote           float64   `json:"vote"`
	Direction      string    `json:"direction"`
	Reasons        []string  `json:"reasons"`
	Status         string    `json:"status"`
	Quantity       float64   `json:"quantity"`
	ReferencePrice float64   `json:"reference_price"`
	StopLoss       float64   `json:"stop_loss"`
	TakeProfit     float64   `json:"take_profit"`
	Error          string    `json:"error,omitempty"`
	DecidedAt      time.Time `json:"decided_at"`
}

// Record persists one decision.
func (j *Journal) Record(r DecisionRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(
		`INSERT INTO decisions (strategy, symbol, timeframe, vote, direction, reasons, status,
		   quantity, reference_price, stop_loss, take_profit, error, decided_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Strategy, r.Symbol, r.Timeframe, r.Vote, r.Direction,
		strings.Join(r.Reasons, "\n"), r.Status,
		r.Quantity, r.ReferencePrice, r.StopLoss, r.TakeProfit, r.Error,
		r.DecidedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

const selectDecisions = `SELECT id, strategy, symbol, timeframe, vote, direction, reasons, status,
	        quantity, reference_price, stop_loss, take_profit, error, decided_at
	 FROM decisions`

// Recent returns the last N decisions, newest first.
func (j *Journal) Recent(limit int) ([]DecisionRecord, error) {
	return j.query(selectDecisions+` ORDER BY id DESC LIMIT ?`, limit)
}

// RecentFor returns the last N decisions on symbol, newest first.
func (j *Journal) RecentFor(symbol string, limit int) ([]DecisionRecord, error) {
	return j.query(selectDecisions+` WHERE symbol = ? ORDER BY id DESC LIMIT ?`, symbol, limit)
}

func (j *Journal) query(q string, args ...interface{}) ([]DecisionRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DecisionRecord
	for rows.Next() {
		var (
			r               DecisionRecord
			reasons, errStr sql.NullString
			decided         string
		)
		if err := rows.Scan(&r.ID, &r.Strategy, &r.Symbol, &r.Timeframe, &r.Vote, &r.Direction,
			&reasons, &r.Status, &r.Quantity, &r.ReferencePrice, &r.StopLoss, &r.TakeProfit,
			&errStr, &decided); err != nil {
			continue
		}
		if reasons.String != "" {
			r.Reasons = strings.Split(reasons.String, "\n")
		}
		r.Error = errStr.String
		r.DecidedAt, _ = time.Parse(time.RFC3339Nano, decided)
		out = append(out, r)
	}
	return out, rows.Err()
}

// DB exposes the handle for health probes.
func (j *Journal) DB() *sql.DB { return j.db }

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}
