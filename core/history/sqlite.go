package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists ticks in SQLite. Vehicle membership is indexed in a
// side table so vehicle queries stay in SQL.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS tick_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    ts INTEGER NOT NULL,
    record TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS tick_history_ts ON tick_history(ts);
CREATE TABLE IF NOT EXISTS tick_vehicles (
    tick_id INTEGER NOT NULL REFERENCES tick_history(id),
    vehicle_id TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS tick_vehicles_vehicle ON tick_vehicles(vehicle_id);`

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, fmt.Errorf("history schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Append(ctx context.Context, rec TickRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	res, err := tx.ExecContext(ctx, `INSERT INTO tick_history (ts, record) VALUES (?, ?)`,
		rec.Timestamp.UnixNano(), string(b))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(rec.Updated)+len(rec.Skipped))
	for _, p := range rec.Updated {
		ids = append(ids, p.VehicleID)
	}
	ids = append(ids, rec.Skipped...)
	for _, vid := range ids {
		if _, err := tx.ExecContext(ctx, `INSERT INTO tick_vehicles (tick_id, vehicle_id) VALUES (?, ?)`, id, vid); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Query(ctx context.Context, q Query) ([]TickRecord, error) {
	var args []any
	base := `SELECT h.ts AS ts, h.record AS record FROM tick_history h WHERE 1=1`
	if !q.Start.IsZero() {
		base += ` AND h.ts >= ?`
		args = append(args, q.Start.UnixNano())
	}
	if !q.End.IsZero() {
		base += ` AND h.ts <= ?`
		args = append(args, q.End.UnixNano())
	}
	if q.VehicleID != "" {
		base += ` AND EXISTS (SELECT 1 FROM tick_vehicles v WHERE v.tick_id = h.id AND v.vehicle_id = ?)`
		args = append(args, q.VehicleID)
	}
	// The newest Limit ticks, returned oldest first.
	query := `SELECT record FROM (` + base + `) ORDER BY ts`
	if q.Limit > 0 {
		query = `SELECT record FROM (` + base + ` ORDER BY h.ts DESC LIMIT ?) ORDER BY ts`
		args = append(args, q.Limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []TickRecord
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var r TickRecord
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("unmarshal tick: %w", err)
		}
		res = append(res, r)
	}
	return res, rows.Err()
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
