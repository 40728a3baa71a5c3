package indexer

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"mailchain/core/events"
	"mailchain/core/types"
	"mailchain/crypto"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
	writeTimeout = 5 * time.Second
)

// ErrClosed is returned when the store is used after Close.
var ErrClosed = errors.New("indexer: store closed")

// Store persists committed events in SQLite so they can be queried after the
// live stream has moved on.
type Store struct {
	db       *sql.DB
	logger   *slog.Logger
	failures atomic.Uint64
	closed   atomic.Bool
}

// Record is a stored event with its insertion sequence.
type Record struct {
	Sequence int64        `json:"sequence"`
	Event    *types.Event `json:"event"`
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Type    string
	Program string
	TxHash  string
	// Account matches events with any attribute equal to the bech32 address.
	Account string
	After   int64
	Limit   int
}

// Open creates or opens the SQLite database at path. Use ":memory:" for tests.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// a single connection keeps ":memory:" databases shared and serialises writers
	db.SetMaxOpenConns(1)
	if logger == nil {
		logger = slog.Default()
	}
	store := &Store{db: db, logger: logger.With("component", "indexer")}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) init() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS events (
            sequence INTEGER PRIMARY KEY AUTOINCREMENT,
            type TEXT NOT NULL,
            program TEXT NOT NULL,
            tx_hash TEXT NOT NULL,
            timestamp INTEGER NOT NULL,
            attributes TEXT NOT NULL,
            created_at TIMESTAMP NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS events_type ON events(type);`,
		`CREATE INDEX IF NOT EXISTS events_tx ON events(tx_hash);`,
		`CREATE TABLE IF NOT EXISTS event_accounts (
            sequence INTEGER NOT NULL,
            account TEXT NOT NULL,
            PRIMARY KEY(account, sequence)
        );`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}

// Failures reports how many events could not be persisted.
func (s *Store) Failures() uint64 { return s.failures.Load() }

// Emit implements events.Emitter. Persist errors are logged and counted; they
// never propagate into transaction processing.
func (s *Store) Emit(evt events.Event) {
	payload := events.Payload(evt)
	if payload == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if _, err := s.Insert(ctx, payload); err != nil {
		s.failures.Add(1)
		s.logger.Warn("index event", "type", payload.Type, "tx_hash", payload.TxHash, "error", err)
	}
}

// Insert stores one event and returns its sequence number.
func (s *Store) Insert(ctx context.Context, evt *types.Event) (int64, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	attrs := evt.Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	encoded, err := json.Marshal(attrs)
	if err != nil {
		return 0, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	const insertEvent = `INSERT INTO events(type, program, tx_hash, timestamp, attributes, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, insertEvent, evt.Type, evt.Program, evt.TxHash, evt.Timestamp, string(encoded), time.Now().UTC())
	if err != nil {
		return 0, err
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	const insertAccount = `INSERT OR IGNORE INTO event_accounts(sequence, account) VALUES (?, ?)`
	for _, account := range accounts(attrs) {
		if _, err := tx.ExecContext(ctx, insertAccount, seq, account); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return seq, nil
}

// List returns stored events in sequence order.
func (s *Store) List(ctx context.Context, filter Filter) ([]Record, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	var (
		clauses []string
		args    []any
	)
	from := "events e"
	if account := strings.TrimSpace(filter.Account); account != "" {
		if _, err := crypto.ParseIdentity(account); err != nil {
			return nil, fmt.Errorf("indexer: account: %w", err)
		}
		from = "events e JOIN event_accounts a ON a.sequence = e.sequence"
		clauses = append(clauses, "a.account = ?")
		args = append(args, account)
	}
	if filter.Type != "" {
		clauses = append(clauses, "e.type = ?")
		args = append(args, filter.Type)
	}
	if filter.Program != "" {
		clauses = append(clauses, "e.program = ?")
		args = append(args, filter.Program)
	}
	if filter.TxHash != "" {
		clauses = append(clauses, "e.tx_hash = ?")
		args = append(args, filter.TxHash)
	}
	if filter.After > 0 {
		clauses = append(clauses, "e.sequence > ?")
		args = append(args, filter.After)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	query := "SELECT e.sequence, e.type, e.program, e.tx_hash, e.timestamp, e.attributes FROM " + from
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY e.sequence ASC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec   Record
			evt   types.Event
			attrs string
		)
		if err := rows.Scan(&rec.Sequence, &evt.Type, &evt.Program, &evt.TxHash, &evt.Timestamp, &attrs); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(attrs), &evt.Attributes); err != nil {
			return nil, fmt.Errorf("indexer: decode attributes for %d: %w", rec.Sequence, err)
		}
		rec.Event = &evt
		out = append(out, rec)
	}
	return out, rows.Err()
}

// accounts collects the distinct attribute values that are mail addresses.
func accounts(attrs map[string]string) []string {
	seen := make(map[string]struct{})
	for _, value := range attrs {
		if _, err := crypto.ParseIdentity(value); err == nil {
			seen[value] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for account := range seen {
		out = append(out, account)
	}
	sort.Strings(out)
	return out
}
