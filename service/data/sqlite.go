package data

import (
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vs-yolo/model"
)

type sqliteService struct {
	conn *sql.DB
	mu   sync.Mutex
}

// NewSQLite opens (creating if needed) a SQLite database holding runs,
// per-frame results, detections and errors.
func NewSQLite(dbPath string) (IService, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, xerrors.Errorf("open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	svc := &sqliteService{conn: conn}
	if err := svc.migrate(); err != nil {
		conn.Close()
		return nil, xerrors.Errorf("migrate database: %w", err)
	}

	return svc, nil
}

// migrate creates the necessary tables if they don't exist.
func (svc *sqliteService) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		source TEXT NOT NULL,
		kind TEXT NOT NULL,
		source_fps REAL DEFAULT 0,
		stride INTEGER NOT NULL,
		frames INTEGER DEFAULT 0,
		sampled_frames INTEGER DEFAULT 0,
		skipped_frames INTEGER DEFAULT 0,
		detections INTEGER DEFAULT 0,
		stop_reason TEXT,
		uptime REAL DEFAULT 0,
		avg_proc_time REAL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS frames (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		frame INTEGER NOT NULL,
		file TEXT NOT NULL,
		image_width INTEGER DEFAULT 0,
		image_height INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS detections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		frame_id INTEGER NOT NULL,
		class_index INTEGER NOT NULL,
		label TEXT,
		confidence REAL DEFAULT 0,
		x INTEGER DEFAULT 0,
		y INTEGER DEFAULT 0,
		width INTEGER DEFAULT 0,
		height INTEGER DEFAULT 0,
		FOREIGN KEY (frame_id) REFERENCES frames(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS errors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		processor TEXT NOT NULL,
		inner_error TEXT,
		message TEXT,
		stack_trace TEXT,
		misc TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_frames_run_id ON frames(run_id);
	CREATE INDEX IF NOT EXISTS idx_detections_frame_id ON detections(frame_id);
	CREATE INDEX IF NOT EXISTS idx_detections_class_index ON detections(class_index);
	`

	_, err := svc.conn.Exec(schema)
	return err
}

func (svc *sqliteService) NewError(err interface{}) error {
	rec := errorRecord(err)

	misc, merr := json.Marshal(rec.Misc)
	if merr != nil {
		return xerrors.Errorf("marshal error misc: %w", merr)
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	_, execErr := svc.conn.Exec(`
		INSERT INTO errors (processor, inner_error, message, stack_trace, misc, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.Processor, rec.Inner, rec.Message, rec.StackTrace, string(misc), time.Unix(rec.Timestamp, 0).UTC())
	if execErr != nil {
		return xerrors.Errorf("insert error: %w", execErr)
	}
	return nil
}

func (svc *sqliteService) NewRunStats(stats model.RunStats) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	_, err := svc.conn.Exec(`
		INSERT INTO runs (run_id, source, kind, source_fps, stride, frames, sampled_frames, skipped_frames, detections, stop_reason, uptime, avg_proc_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, stats.RunID, stats.Source, stats.Kind, stats.SourceFPS, stats.Stride, stats.Frames, stats.SampledFrames,
		stats.SkippedFrames, stats.Detections, stats.StopReason, stats.Uptime, stats.AvgProcTime)
	if err != nil {
		return xerrors.Errorf("insert run: %w", err)
	}
	return nil
}

// NewDetections stores all frames of a run in a single transaction.
func (svc *sqliteService) NewDetections(runID string, results []model.ImageDetections) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	tx, err := svc.conn.Begin()
	if err != nil {
		return xerrors.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	frameStmt, err := tx.Prepare(`
		INSERT INTO frames (run_id, frame, file, image_width, image_height)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return xerrors.Errorf("prepare frame statement: %w", err)
	}
	defer frameStmt.Close()

	detStmt, err := tx.Prepare(`
		INSERT INTO detections (frame_id, class_index, label, confidence, x, y, width, height)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return xerrors.Errorf("prepare detection statement: %w", err)
	}
	defer detStmt.Close()

	for _, r := range results {
		res, err := frameStmt.Exec(runID, r.Frame, r.File, r.ImageWidth, r.ImageHeight)
		if err != nil {
			return xerrors.Errorf("insert frame %d: %w", r.Frame, err)
		}
		frameID, err := res.LastInsertId()
		if err != nil {
			return xerrors.Errorf("frame id for frame %d: %w", r.Frame, err)
		}

		for _, d := range r.Detections {
			b := d.BoundingBox
			if _, err := detStmt.Exec(frameID, d.ClassIndex, d.Label, d.Confidence, b.X, b.Y, b.Width, b.Height); err != nil {
				return xerrors.Errorf("insert detection on frame %d: %w", r.Frame, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return xerrors.Errorf("commit detections: %w", err)
	}
	return nil
}

func (svc *sqliteService) Close() error {
	return svc.conn.Close()
}
