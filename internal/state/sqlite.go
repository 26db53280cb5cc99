package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One writer keeps the completion timer and the UI goroutine from
	// tripping over SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS level_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			pack_id TEXT NOT NULL,
			level_id TEXT NOT NULL,
			level_hash TEXT NOT NULL DEFAULT '',
			start_ts TEXT NOT NULL,
			end_ts TEXT NOT NULL DEFAULT '',
			resets INTEGER NOT NULL DEFAULT 0,
			commands INTEGER NOT NULL DEFAULT 0,
			rejected INTEGER NOT NULL DEFAULT 0,
			help_used INTEGER NOT NULL DEFAULT 0,
			solved INTEGER NOT NULL DEFAULT 0,
			score INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS command_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL,
			ts TEXT NOT NULL,
			input TEXT NOT NULL,
			verb TEXT NOT NULL DEFAULT '',
			accepted INTEGER NOT NULL,
			severity TEXT NOT NULL DEFAULT 'default',
			FOREIGN KEY(run_id) REFERENCES level_runs(id)
		);`,
		`CREATE INDEX IF NOT EXISTS command_log_run ON command_log(run_id);`,
		`CREATE TABLE IF NOT EXISTS level_progress (
			level_id TEXT PRIMARY KEY,
			solved_count INTEGER NOT NULL DEFAULT 0,
			best_score INTEGER NOT NULL DEFAULT 0,
			best_time_ms INTEGER NOT NULL DEFAULT 0,
			last_played_ts TEXT NOT NULL DEFAULT '',
			last_solved_ts TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS app_settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	// Backfill databases created before level_runs.level_hash existed.
	if _, err := s.db.ExecContext(ctx, `ALTER TABLE level_runs ADD COLUMN level_hash TEXT NOT NULL DEFAULT ''`); err != nil {
		msg := strings.ToLower(err.Error())
		if !strings.Contains(msg, "duplicate column name") {
			return fmt.Errorf("ensure schema alter level_runs.level_hash: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) StartLevelRun(ctx context.Context, run LevelRun) (int64, error) {
	start := run.StartTS
	if start.IsZero() {
		start = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO level_runs(session_id, pack_id, level_id, level_hash, start_ts) VALUES(?,?,?,?,?)`,
		run.SessionID,
		run.PackID,
		run.LevelID,
		run.LevelHash,
		start.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) IncrementReset(ctx context.Context, runID int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE level_runs SET resets = resets + 1 WHERE id = ?`, runID)
	return err
}

func (s *SQLiteStore) RecordCommand(ctx context.Context, runID int64, cmd CommandRecord) error {
	ts := cmd.TS
	if ts.IsZero() {
		ts = time.Now()
	}
	severity := strings.TrimSpace(cmd.Severity)
	if severity == "" {
		severity = "default"
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO command_log(run_id, ts, input, verb, accepted, severity) VALUES(?,?,?,?,?,?)`,
		runID, ts.UTC().Format(timeLayout), cmd.Input, strings.ToLower(cmd.Verb), ifThen(cmd.Accepted, 1, 0), severity,
	); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `
		UPDATE level_runs SET
			commands = commands + 1,
			rejected = rejected + ?,
			help_used = help_used + ?
		WHERE id = ?
	`, ifThen(cmd.Accepted, 0, 1), ifThen(cmd.Accepted && strings.EqualFold(cmd.Verb, "help"), 1, 0), runID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) FinishLevelRun(ctx context.Context, runID int64, res RunResult) error {
	end := res.EndTS
	if end.IsZero() {
		end = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE level_runs SET solved = ?, score = ?, duration_ms = ?, end_ts = ?
		WHERE id = ?
	`, ifThen(res.Solved, 1, 0), max(0, res.Score), max(0, res.DurationMS), end.UTC().Format(timeLayout), runID)
	return err
}

func (s *SQLiteStore) UpsertLevelProgress(ctx context.Context, update LevelProgressUpdate) error {
	levelID := strings.TrimSpace(update.LevelID)
	if levelID == "" {
		return nil
	}
	playTS := update.LastPlayedTS
	if playTS.IsZero() {
		playTS = time.Now().UTC()
	}
	solvedTS := ""
	if update.Solved {
		solvedTS = playTS.UTC().Format(timeLayout)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO level_progress(level_id, solved_count, best_score, best_time_ms, last_played_ts, last_solved_ts)
		VALUES(?, ?, ?, ?, ?, ?)
		ON CONFLICT(level_id) DO UPDATE SET
			solved_count = level_progress.solved_count + excluded.solved_count,
			best_score = CASE
				WHEN excluded.best_score > 0 AND excluded.best_score > level_progress.best_score THEN excluded.best_score
				ELSE level_progress.best_score
			END,
			best_time_ms = CASE
				WHEN excluded.best_time_ms > 0 AND (level_progress.best_time_ms = 0 OR excluded.best_time_ms < level_progress.best_time_ms) THEN excluded.best_time_ms
				ELSE level_progress.best_time_ms
			END,
			last_played_ts = excluded.last_played_ts,
			last_solved_ts = CASE
				WHEN excluded.last_solved_ts <> '' THEN excluded.last_solved_ts
				ELSE level_progress.last_solved_ts
			END
	`,
		levelID,
		ifThen(update.Solved, 1, 0),
		ifThen(update.Solved, max(0, update.Score), 0),
		func() int64 {
			if update.Solved {
				return max(0, update.DurationMS)
			}
			return 0
		}(),
		playTS.UTC().Format(timeLayout),
		solvedTS,
	)
	return err
}

func (s *SQLiteStore) GetLevelProgressMap(ctx context.Context) (map[string]LevelProgress, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT level_id, solved_count, best_score, best_time_ms, last_played_ts, last_solved_ts
		FROM level_progress
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]LevelProgress{}
	for rows.Next() {
		var (
			p          LevelProgress
			lastPlayed string
			lastSolved string
		)
		if err := rows.Scan(&p.LevelID, &p.SolvedCount, &p.BestScore, &p.BestTimeMS, &lastPlayed, &lastSolved); err != nil {
			return nil, err
		}
		p.LastPlayedTS = parseTS(lastPlayed)
		p.LastSolvedTS = parseTS(lastSolved)
		out[p.LevelID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLiteStore) SaveSettings(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for key, value := range values {
		k := strings.TrimSpace(key)
		if k == "" {
			continue
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO app_settings(key, value) VALUES(?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, k, value); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) LoadSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM app_settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLiteStore) GetSummary(ctx context.Context) (Summary, error) {
	var out Summary
	row := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) as level_runs,
			COALESCE(SUM(commands),0) as commands,
			COALESCE(SUM(rejected),0) as rejected,
			COALESCE(SUM(solved),0) as solves,
			COALESCE(SUM(resets),0) as resets
		FROM level_runs
	`)
	if err := row.Scan(&out.LevelRuns, &out.Commands, &out.Rejected, &out.Solves, &out.Resets); err != nil {
		return Summary{}, err
	}
	return out, nil
}

func (s *SQLiteStore) GetLastRun(ctx context.Context) (*LastRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT pack_id, level_id, start_ts, solved, commands, resets
		FROM level_runs
		ORDER BY id DESC
		LIMIT 1
	`)
	var (
		out        LastRun
		startTSRaw string
		solved     int
	)
	if err := row.Scan(&out.PackID, &out.LevelID, &startTSRaw, &solved, &out.Commands, &out.Resets); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	out.StartTS = parseTS(startTSRaw)
	out.Solved = solved == 1
	return &out, nil
}

// TopVerbs counts accepted commands by verb, most used first.
func (s *SQLiteStore) TopVerbs(ctx context.Context, limit int) ([]VerbCount, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT verb, COUNT(*) AS n
		FROM command_log
		WHERE accepted = 1 AND verb <> ''
		GROUP BY verb
		ORDER BY n DESC, verb ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []VerbCount
	for rows.Next() {
		var vc VerbCount
		if err := rows.Scan(&vc.Verb, &vc.Count); err != nil {
			return nil, err
		}
		out = append(out, vc)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

func parseTS(raw string) time.Time {
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func ifThen(cond bool, yes, no int) int {
	if cond {
		return yes
	}
	return no
}
