// Package journal records economy runs in a SQLite database: one row per
// decision tick and zstd-compressed snapshots of the density maps.
package journal

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"github.com/napolitain/rts-economy/internal/economy"
	"github.com/napolitain/rts-economy/internal/influence"
	"github.com/napolitain/rts-economy/internal/models"
)

// ErrCorruptSnapshot is returned when a stored map does not match its size
var ErrCorruptSnapshot = errors.New("corrupt density snapshot")

// Run is one recorded match
type Run struct {
	ID        string `db:"id"`
	Label     string `db:"label"`
	Seed      int64  `db:"seed"`
	StartedAt string `db:"started_at"`
}

// Journal wraps a SQLite connection
type Journal struct {
	conn *sqlx.DB
	enc  *zstd.Encoder
	dec  *zstd.Decoder
}

// Open opens or creates a journal at path. Use ":memory:" for a throwaway one.
func Open(path string) (*Journal, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}
	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// a second connection to :memory: would see an empty database
	conn.SetMaxOpenConns(1)

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		conn.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}

	j := &Journal{conn: conn, enc: enc, dec: dec}
	if err := j.migrate(); err != nil {
		j.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return j, nil
}

// Close releases the connection and codecs
func (j *Journal) Close() error {
	j.dec.Close()
	j.enc.Close()
	return j.conn.Close()
}

func (j *Journal) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		label TEXT NOT NULL,
		seed INTEGER NOT NULL,
		started_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS decisions (
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		commands INTEGER NOT NULL,
		plans INTEGER NOT NULL,
		body TEXT NOT NULL,
		PRIMARY KEY (run_id, tick)
	);

	CREATE TABLE IF NOT EXISTS density (
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		resource TEXT NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		cells BLOB NOT NULL,
		PRIMARY KEY (run_id, tick, resource)
	);

	CREATE INDEX IF NOT EXISTS idx_decisions_run ON decisions(run_id);
	`
	_, err := j.conn.Exec(schema)
	return err
}

// StartRun registers a new run and returns its ID
func (j *Journal) StartRun(label string, seed int64) (string, error) {
	id := uuid.NewString()
	_, err := j.conn.Exec(
		"INSERT INTO runs (id, label, seed, started_at) VALUES (?, ?, ?, ?)",
		id, label, seed, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}
	return id, nil
}

// Runs lists every recorded run, oldest first
func (j *Journal) Runs() ([]Run, error) {
	var runs []Run
	err := j.conn.Select(&runs, "SELECT id, label, seed, started_at FROM runs ORDER BY started_at, id")
	return runs, err
}

// RecordDecision stores one tick of a run. Recording the same tick twice
// keeps the latest.
func (j *Journal) RecordDecision(run string, d economy.Decision) error {
	body, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode decision %d: %w", d.Tick, err)
	}
	_, err = j.conn.Exec(
		"INSERT OR REPLACE INTO decisions (run_id, tick, commands, plans, body) VALUES (?, ?, ?, ?, ?)",
		run, d.Tick, len(d.Commands), len(d.Plans), string(body),
	)
	if err != nil {
		return fmt.Errorf("record decision %d: %w", d.Tick, err)
	}
	return nil
}

// Decisions returns every decision of run in tick order
func (j *Journal) Decisions(run string) ([]economy.Decision, error) {
	var bodies []string
	err := j.conn.Select(&bodies, "SELECT body FROM decisions WHERE run_id = ? ORDER BY tick", run)
	if err != nil {
		return nil, fmt.Errorf("select decisions: %w", err)
	}
	out := make([]economy.Decision, 0, len(bodies))
	for _, b := range bodies {
		var d economy.Decision
		if err := json.Unmarshal([]byte(b), &d); err != nil {
			return nil, fmt.Errorf("decode decision: %w", err)
		}
		out = append(out, d)
	}
	return out, nil
}

// CommandTotal returns the number of commands issued over a run
func (j *Journal) CommandTotal(run string) (int, error) {
	var n int
	err := j.conn.Get(&n, "SELECT COALESCE(SUM(commands), 0) FROM decisions WHERE run_id = ?", run)
	return n, err
}

// RecordDensity stores a snapshot of one density map
func (j *Journal) RecordDensity(run string, tick int, rt models.ResourceType, m *influence.Map) error {
	raw := make([]byte, 8*m.Len())
	for i, v := range m.Cells() {
		binary.LittleEndian.PutUint64(raw[i*8:], math.Float64bits(v))
	}
	blob := j.enc.EncodeAll(raw, nil)
	_, err := j.conn.Exec(
		"INSERT OR REPLACE INTO density (run_id, tick, resource, width, height, cells) VALUES (?, ?, ?, ?, ?, ?)",
		run, tick, string(rt), m.Width(), m.Height(), blob,
	)
	if err != nil {
		return fmt.Errorf("record %s density at %d: %w", rt, tick, err)
	}
	return nil
}

// LoadDensity restores a snapshot written by RecordDensity
func (j *Journal) LoadDensity(run string, tick int, rt models.ResourceType) (*influence.Map, error) {
	var row struct {
		Width  int    `db:"width"`
		Height int    `db:"height"`
		Cells  []byte `db:"cells"`
	}
	err := j.conn.Get(&row,
		"SELECT width, height, cells FROM density WHERE run_id = ? AND tick = ? AND resource = ?",
		run, tick, string(rt),
	)
	if err != nil {
		return nil, fmt.Errorf("load %s density at %d: %w", rt, tick, err)
	}

	raw, err := j.dec.DecodeAll(row.Cells, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress %s density: %w", rt, err)
	}
	m := influence.New(row.Width, row.Height)
	if len(raw) != 8*m.Len() {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d", ErrCorruptSnapshot, len(raw), row.Width, row.Height)
	}
	cells := m.Cells()
	for i := range cells {
		cells[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
	}
	return m, nil
}
