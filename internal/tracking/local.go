// Package tracking keeps a local sqlite ledger of every skip interval the
// analyzer has discovered, per video. The loops only ever write to it; the
// history command reads it back.
package tracking

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/alvarorichard/ceddoskip/internal/models"
	"github.com/alvarorichard/ceddoskip/internal/util"
	_ "github.com/mattn/go-sqlite3"
)

// IsCgoEnabled indicates whether CGO is enabled for SQLite support
var IsCgoEnabled = true

var (
	ErrCgoDisabled      = errors.New("CGO disabled: sqlite tracking not available")
	ErrTrackerNotInited = errors.New("tracker not initialized")
)

const (
	defaultCacheSize  = -20000 // 20MB
	busyTimeout       = 5000   // ms
	walAutoCheckpoint = 1000   // pages
	maxOpenConns      = 5
	maxIdleConns      = 2
	avgIntervalsHint  = 64
)

// IntervalRecord is one ledger row.
type IntervalRecord struct {
	VideoID    string    `json:"video_id"`
	Start      float64   `json:"start_time"`
	End        float64   `json:"end_time"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Interval returns the record as a closed skip interval.
func (r IntervalRecord) Interval() models.SkipInterval {
	return models.SkipInterval{Start: r.Start, End: r.End}
}

type LocalTracker struct {
	db       *sql.DB
	upsertPS *sql.Stmt
	videoPS  *sql.Stmt
	allPS    *sql.Stmt
	deletePS *sql.Stmt
}

// NewLocalTracker opens (creating if needed) the ledger at dbPath.
var NewLocalTracker func(dbPath string) (*LocalTracker, error)

// DefaultDBPath returns the ledger location under the user config dir.
func DefaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "ceddoskip", "intervals.db")
}

func newLocalTrackerImpl(dbPath string) (*LocalTracker, error) {
	if !IsCgoEnabled {
		return nil, ErrCgoDisabled
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	path := dbPath
	// SQLite wants forward slashes in a file: URI on Windows.
	if runtime.GOOS == "windows" {
		path = strings.ReplaceAll(dbPath, "\\", "/")
	}
	dsn := fmt.Sprintf(
		"file:%s?_journal_mode=WAL&_synchronous=NORMAL&_wal_autocheckpoint=%d&"+
			"_busy_timeout=%d&_cache_size=%d&_mode=rwc",
		path,
		walAutoCheckpoint,
		busyTimeout,
		defaultCacheSize,
	)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)

	if err := initializeDatabase(db); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			util.Debug("error closing database", "error", closeErr)
		}
		return nil, err
	}

	statements, err := prepareStatements(db)
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			util.Debug("error closing database", "error", closeErr)
		}
		return nil, err
	}

	return &LocalTracker{
		db:       db,
		upsertPS: statements.upsert,
		videoPS:  statements.video,
		allPS:    statements.all,
		deletePS: statements.delete,
	}, nil
}

func initializeDatabase(db *sql.DB) error {
	schema := `CREATE TABLE IF NOT EXISTS skip_intervals (
		video_id    TEXT    NOT NULL,
		start_time  REAL    NOT NULL CHECK(start_time >= 0),
		end_time    REAL    NOT NULL,
		recorded_at INTEGER NOT NULL,
		PRIMARY KEY (video_id, start_time),
		CHECK(end_time > start_time)
	);`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("schema creation failed: %w", err)
	}

	if _, err := db.Exec(`PRAGMA optimize`); err != nil {
		return fmt.Errorf("initial optimization failed: %w", err)
	}
	return nil
}

type preparedStatements struct {
	upsert *sql.Stmt
	video  *sql.Stmt
	all    *sql.Stmt
	delete *sql.Stmt
}

func prepareStatements(db *sql.DB) (*preparedStatements, error) {
	upsert, err := db.Prepare(`INSERT INTO skip_intervals (
		video_id,
		start_time,
		end_time,
		recorded_at
	) VALUES (?,?,?,?)
	ON CONFLICT(video_id, start_time) DO UPDATE SET
		end_time = excluded.end_time,
		recorded_at = excluded.recorded_at`)
	if err != nil {
		return nil, fmt.Errorf("upsert preparation failed: %w", err)
	}

	video, err := db.Prepare(`SELECT
		video_id,
		start_time,
		end_time,
		recorded_at
	FROM skip_intervals
	WHERE video_id = ?
	ORDER BY start_time`)
	if err != nil {
		return nil, fmt.Errorf("video preparation failed: %w", err)
	}

	all, err := db.Prepare(`SELECT
		video_id,
		start_time,
		end_time,
		recorded_at
	FROM skip_intervals
	ORDER BY video_id, start_time`)
	if err != nil {
		return nil, fmt.Errorf("all preparation failed: %w", err)
	}

	del, err := db.Prepare(`DELETE FROM skip_intervals WHERE video_id = ?`)
	if err != nil {
		return nil, fmt.Errorf("delete preparation failed: %w", err)
	}

	return &preparedStatements{
		upsert: upsert,
		video:  video,
		all:    all,
		delete: del,
	}, nil
}

// RecordInterval stores a closed interval. Recording the same start again
// replaces its end.
func (t *LocalTracker) RecordInterval(videoID string, iv models.SkipInterval) error {
	if t == nil || t.db == nil || t.upsertPS == nil {
		return ErrTrackerNotInited
	}
	if iv.Open {
		return fmt.Errorf("interval %s is still open", iv)
	}
	if iv.End <= iv.Start {
		return fmt.Errorf("invalid interval %s: end must be after start", iv)
	}
	if iv.Start < 0 {
		iv.Start = 0
	}

	_, err := t.upsertPS.Exec(videoID, iv.Start, iv.End, time.Now().Unix())
	return err
}

// IntervalsFor returns the recorded intervals of one video in start order.
func (t *LocalTracker) IntervalsFor(videoID string) ([]IntervalRecord, error) {
	if t == nil || t.db == nil || t.videoPS == nil {
		return nil, ErrTrackerNotInited
	}
	rows, err := t.videoPS.Query(videoID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return scanRecords(rows)
}

// AllIntervals returns every recorded interval grouped by video.
func (t *LocalTracker) AllIntervals() ([]IntervalRecord, error) {
	if t == nil || t.db == nil || t.allPS == nil {
		return nil, ErrTrackerNotInited
	}
	rows, err := t.allPS.Query()
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]IntervalRecord, error) {
	defer func() {
		if err := rows.Close(); err != nil {
			util.Debug("error closing rows", "error", err)
		}
	}()

	list := make([]IntervalRecord, 0, avgIntervalsHint)
	for rows.Next() {
		var r IntervalRecord
		var ts int64
		if err := rows.Scan(&r.VideoID, &r.Start, &r.End, &ts); err != nil {
			return nil, fmt.Errorf("row scan failed: %w", err)
		}
		r.RecordedAt = time.Unix(ts, 0)
		list = append(list, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return list, nil
}

// DeleteVideo forgets every interval of one video.
func (t *LocalTracker) DeleteVideo(videoID string) error {
	if t == nil || t.db == nil || t.deletePS == nil {
		return ErrTrackerNotInited
	}
	_, err := t.deletePS.Exec(videoID)
	return err
}

func (t *LocalTracker) Close() error {
	if t == nil || t.db == nil {
		return nil
	}
	var finalErr error

	closeStmt := func(stmt *sql.Stmt, name string) {
		if stmt != nil {
			if err := stmt.Close(); err != nil {
				finalErr = fmt.Errorf("%s statement close error: %w", name, err)
			}
		}
	}

	closeStmt(t.upsertPS, "upsert")
	closeStmt(t.videoPS, "video")
	closeStmt(t.allPS, "all")
	closeStmt(t.deletePS, "delete")

	if err := t.db.Close(); err != nil {
		finalErr = fmt.Errorf("database close error: %w", err)
	}
	return finalErr
}

func init() {
	IsCgoEnabled = isCgoEnabled()
	NewLocalTracker = newLocalTrackerImpl
}
