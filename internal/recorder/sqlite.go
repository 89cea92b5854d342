package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"PipGauge/internal/model"
)

// SQLiteRecorder persists markers to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so external tooling can read while the gauge writes.
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
		`CREATE TABLE IF NOT EXISTS markers (
			id         TEXT PRIMARY KEY,
			symbol     TEXT NOT NULL,
			display_id TEXT NOT NULL,
			price      REAL NOT NULL,
			type       TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_markers_symbol ON markers(symbol)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveMarker inserts or updates a marker row.
func (r *SQLiteRecorder) SaveMarker(symbol string, m model.PriceMarker) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.db.Exec(
		`INSERT INTO markers (id, symbol, display_id, price, type, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET price = excluded.price, type = excluded.type`,
		m.ID.String(), symbol, m.DisplayID, m.Price, string(m.Type), m.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("save marker: %w", err)
	}
	return nil
}

// DeleteMarker removes a marker row; deleting an unknown id is not an error.
func (r *SQLiteRecorder) DeleteMarker(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.db.Exec(`DELETE FROM markers WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("delete marker: %w", err)
	}
	return nil
}

// LoadMarkers returns all stored markers for a symbol, ascending by price.
func (r *SQLiteRecorder) LoadMarkers(symbol string) ([]model.PriceMarker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows, err := r.db.Query(
		`SELECT id, display_id, price, type, created_at FROM markers WHERE symbol = ? ORDER BY price`,
		symbol,
	)
	if err != nil {
		return nil, fmt.Errorf("load markers: %w", err)
	}
	defer rows.Close()

	var out []model.PriceMarker
	for rows.Next() {
		var (
			idStr     string
			displayID string
			price     float64
			typ       string
			createdAt int64
		)
		if err := rows.Scan(&idStr, &displayID, &price, &typ, &createdAt); err != nil {
			return nil, fmt.Errorf("scan marker: %w", err)
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			log.Printf("[WARN] skipping marker with bad id %q: %v", idStr, err)
			continue
		}
		out = append(out, model.PriceMarker{
			ID:        id,
			Price:     price,
			Type:      model.MarkerType(typ),
			DisplayID: displayID,
			CreatedAt: time.Unix(createdAt, 0),
		})
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
