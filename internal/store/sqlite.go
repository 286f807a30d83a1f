package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lanify/monitor/internal/alert"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(dsn string) (*SQLite, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "file:lanify.db?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// modernc sqlite serialises writers; one connection avoids SQLITE_BUSY
	// and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)
	return &SQLite{db: db}, nil
}

func (s *SQLite) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS dashcam_alerts (
			id TEXT PRIMARY KEY,
			dashcam_id TEXT NOT NULL,
			vehicle_id TEXT NOT NULL,
			ts TEXT NOT NULL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			lane_deviation REAL NOT NULL,
			description TEXT,
			severity TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_dashcam_alerts_vehicle ON dashcam_alerts(vehicle_id)`,
		`CREATE INDEX IF NOT EXISTS idx_dashcam_alerts_ts ON dashcam_alerts(ts)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLite) Save(ctx context.Context, rec *alert.Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dashcam_alerts (id, dashcam_id, vehicle_id, ts, latitude, longitude, lane_deviation, description, severity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			dashcam_id = excluded.dashcam_id,
			vehicle_id = excluded.vehicle_id,
			ts = excluded.ts,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			lane_deviation = excluded.lane_deviation,
			description = excluded.description,
			severity = excluded.severity`,
		rec.ID,
		rec.DashcamID,
		rec.VehicleID,
		rec.Timestamp.UTC().Format(tsLayout),
		rec.Latitude,
		rec.Longitude,
		rec.LaneDeviation,
		rec.Description,
		string(rec.Severity),
	)
	return err
}

// tsLayout is fixed width so ORDER BY ts sorts chronologically.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

// likeEscaper makes a LIKE pattern match its input literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

const selectColumns = `SELECT id, dashcam_id, vehicle_id, ts, latitude, longitude, lane_deviation, description, severity FROM dashcam_alerts`

func (s *SQLite) Get(ctx context.Context, id string) (*alert.Record, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

func (s *SQLite) List(ctx context.Context, f Filter) ([]*alert.Record, error) {
	query := selectColumns
	var args []any
	if f.VehicleID != "" {
		query += ` WHERE lower(vehicle_id) LIKE ? ESCAPE '\'`
		args = append(args, "%"+likeEscaper.Replace(strings.ToLower(f.VehicleID))+"%")
	}
	query += ` ORDER BY ts, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*alert.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLite) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM dashcam_alerts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*alert.Record, error) {
	var (
		rec  alert.Record
		ts   string
		desc sql.NullString
		sev  string
	)
	if err := sc.Scan(&rec.ID, &rec.DashcamID, &rec.VehicleID, &ts,
		&rec.Latitude, &rec.Longitude, &rec.LaneDeviation, &desc, &sev); err != nil {
		return nil, err
	}
	parsed, err := time.Parse(tsLayout, ts)
	if err != nil {
		return nil, err
	}
	rec.Timestamp = parsed
	rec.Description = desc.String
	rec.Severity = alert.Severity(sev)
	return &rec, nil
}
