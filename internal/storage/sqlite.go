// Package storage provides the SQLite implementation of the Store interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/marfleetn/chatCAT/internal/models"
)

// SQLiteStore implements Store using SQLite with an FTS5 index over the
// records' text fields. The index is an external-content table mirroring the
// records table; every mutation method updates both inside one transaction.
type SQLiteStore struct {
	db *sql.DB
}

// defaultTags is installed once, only when the tag registry is empty.
var defaultTags = []models.Tag{
	{Name: "important", Color: "#FF6B35"},
	{Name: "work", Color: "#4285F4"},
	{Name: "personal", Color: "#9C27B0"},
	{Name: "reference", Color: "#10A37F"},
	{Name: "tutorial", Color: "#FF8C00"},
	{Name: "code", Color: "#20B2AA"},
	{Name: "idea", Color: "#FFEB3B"},
	{Name: "question", Color: "#FF4081"},
}

// NewSQLiteStore opens or creates a SQLite database at dbPath, initializes
// the schema and full-text index, and seeds the default tags if the registry
// is empty. Parent directories are created if they do not exist.
//
// The index needs the driver's FTS5 support, which is only compiled in when
// the binary is built with the sqlite_fts5 build tag (the Makefile targets
// set it).
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := seedDefaultTags(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to seed default tags: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		platform TEXT NOT NULL,
		conversation_id TEXT NOT NULL DEFAULT '',
		timestamp TIMESTAMP NOT NULL,
		user_text TEXT NOT NULL DEFAULT '',
		response_text TEXT NOT NULL DEFAULT '',
		metadata TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		tags TEXT NOT NULL DEFAULT '',
		UNIQUE(platform, conversation_id, timestamp)
	);

	CREATE INDEX IF NOT EXISTS idx_records_platform ON records(platform);
	CREATE INDEX IF NOT EXISTS idx_records_timestamp ON records(timestamp);
	CREATE INDEX IF NOT EXISTS idx_records_conversation ON records(platform, conversation_id);

	CREATE TABLE IF NOT EXISTS tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT UNIQUE NOT NULL,
		color TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return err
	}
	return initIndex(db)
}

// initIndex creates the FTS5 index table and backfills it from any existing
// rows. Backfill only runs when the index table did not exist, so reopening a
// database does not duplicate index entries.
func initIndex(db *sql.DB) error {
	var name string
	err := db.QueryRow(
		`SELECT name FROM sqlite_master WHERE type='table' AND name='records_fts'`,
	).Scan(&name)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(
		`CREATE VIRTUAL TABLE records_fts USING fts5(
			user_text, response_text, notes, tags,
			content=records, content_rowid=id
		)`,
	); err != nil {
		// The driver only compiles FTS5 in when the build carries the
		// sqlite_fts5 tag; without it the module is missing at runtime.
		if strings.Contains(err.Error(), "no such module: fts5") {
			return fmt.Errorf("sqlite built without FTS5 support, rebuild with -tags sqlite_fts5: %w", err)
		}
		return err
	}
	if _, err := tx.Exec(
		`INSERT INTO records_fts(rowid, user_text, response_text, notes, tags)
		 SELECT id, user_text, response_text, notes, tags FROM records`,
	); err != nil {
		return err
	}
	return tx.Commit()
}

func seedDefaultTags(db *sql.DB) error {
	var count int64
	if err := db.QueryRow(`SELECT COUNT(*) FROM tags`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, t := range defaultTags {
		if _, err := tx.Exec(`INSERT INTO tags (name, color) VALUES (?, ?)`, t.Name, t.Color); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// rowText holds the four text-bearing fields that make up a record's index
// entry, as stored (tags joined to a single string).
type rowText struct {
	userText     string
	responseText string
	notes        string
	tags         string
}

// indexInsert adds the index entry for a record inside tx.
func indexInsert(ctx context.Context, tx *sql.Tx, id int64, t rowText) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO records_fts(rowid, user_text, response_text, notes, tags)
		 VALUES (?, ?, ?, ?, ?)`,
		id, t.userText, t.responseText, t.notes, t.tags,
	)
	return err
}

// indexDelete removes the index entry for a record inside tx. FTS5
// external-content tables require the old column values to locate the entry.
func indexDelete(ctx context.Context, tx *sql.Tx, id int64, t rowText) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO records_fts(records_fts, rowid, user_text, response_text, notes, tags)
		 VALUES ('delete', ?, ?, ?, ?, ?)`,
		id, t.userText, t.responseText, t.notes, t.tags,
	)
	return err
}

// textForUpdate reads a record's current index entry content inside tx,
// returning ErrNotFound when the id does not exist.
func textForUpdate(ctx context.Context, tx *sql.Tx, id int64) (rowText, error) {
	var t rowText
	err := tx.QueryRowContext(ctx,
		`SELECT user_text, response_text, notes, tags FROM records WHERE id = ?`, id,
	).Scan(&t.userText, &t.responseText, &t.notes, &t.tags)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrNotFound
	}
	return t, err
}

// InsertRecord catalogues a record and its index entry in one transaction.
// Duplicate (platform, conversation_id, timestamp) tuples are silently
// ignored: created is false and no index entry is written.
func (s *SQLiteStore) InsertRecord(ctx context.Context, in *models.RecordInput) (int64, bool, error) {
	metadata := ""
	if in.Metadata != nil {
		b, err := json.Marshal(in.Metadata)
		if err != nil {
			return 0, false, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		metadata = string(b)
	}
	ts := in.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	ts = ts.UTC().Truncate(time.Second)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO records
		 (platform, conversation_id, timestamp, user_text, response_text, metadata, notes, tags)
		 VALUES (?, ?, ?, ?, ?, ?, '', '')`,
		in.Platform, in.ConversationID, ts, in.UserText, in.ResponseText, metadata,
	)
	if err != nil {
		return 0, false, fmt.Errorf("failed to insert record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, false, err
	}
	if n == 0 {
		// Duplicate uniqueness tuple: benign no-op, nothing to index.
		return 0, false, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, false, err
	}
	entry := rowText{userText: in.UserText, responseText: in.ResponseText}
	if err := indexInsert(ctx, tx, id, entry); err != nil {
		return 0, false, fmt.Errorf("failed to index record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// GetRecord returns a record by id, or ErrNotFound.
func (s *SQLiteStore) GetRecord(ctx context.Context, id int64) (*models.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, platform, conversation_id, timestamp,
		        user_text, response_text, metadata, notes, tags
		 FROM records WHERE id = ?`, id,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

// UpdateNotes replaces a record's notes. The old index entry is removed and a
// fresh one inserted in the same transaction.
func (s *SQLiteStore) UpdateNotes(ctx context.Context, id int64, notes string) error {
	return s.updateText(ctx, id, func(t rowText) (string, string, rowText) {
		updated := t
		updated.notes = notes
		return "notes", notes, updated
	})
}

// UpdateTags replaces a record's tags with the normalized list (trimmed,
// blanks dropped), keeping the index entry in step.
func (s *SQLiteStore) UpdateTags(ctx context.Context, id int64, tags []string) error {
	joined := strings.Join(NormalizeTags(tags), ",")
	return s.updateText(ctx, id, func(t rowText) (string, string, rowText) {
		updated := t
		updated.tags = joined
		return "tags", joined, updated
	})
}

// updateText is the shared write path for notes and tags updates: read the
// old text, update the column, then replace the index entry (delete old,
// insert new), all in one transaction.
func (s *SQLiteStore) updateText(ctx context.Context, id int64, change func(rowText) (column, value string, updated rowText)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	old, err := textForUpdate(ctx, tx, id)
	if err != nil {
		return err
	}
	column, value, updated := change(old)
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`UPDATE records SET %s = ? WHERE id = ?`, column), value, id,
	); err != nil {
		return fmt.Errorf("failed to update %s: %w", column, err)
	}
	if err := indexDelete(ctx, tx, id, old); err != nil {
		return fmt.Errorf("failed to remove old index entry: %w", err)
	}
	if err := indexInsert(ctx, tx, id, updated); err != nil {
		return fmt.Errorf("failed to index updated record: %w", err)
	}
	return tx.Commit()
}

// DeleteRecord removes a record and its index entry in one transaction.
func (s *SQLiteStore) DeleteRecord(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	old, err := textForUpdate(ctx, tx, id)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	if err := indexDelete(ctx, tx, id, old); err != nil {
		return fmt.Errorf("failed to remove index entry: %w", err)
	}
	return tx.Commit()
}

// FindRecords returns candidate rows matching the filter, newest first.
func (s *SQLiteStore) FindRecords(ctx context.Context, f *Filter) ([]*models.Record, error) {
	where := make([]string, 0, 4)
	args := make([]interface{}, 0, 8)

	if f.Match != "" {
		where = append(where, `id IN (SELECT rowid FROM records_fts WHERE records_fts MATCH ?)`)
		args = append(args, f.Match)
	}
	if len(f.Platforms) > 0 {
		placeholders := strings.Repeat("?,", len(f.Platforms))
		where = append(where, fmt.Sprintf(`platform IN (%s)`, placeholders[:len(placeholders)-1]))
		for _, p := range f.Platforms {
			args = append(args, p)
		}
	}
	if f.Start != nil {
		where = append(where, `timestamp >= ?`)
		args = append(args, f.Start.UTC())
	}
	if f.End != nil {
		where = append(where, `timestamp <= ?`)
		args = append(args, f.End.UTC())
	}
	if len(f.Tags) > 0 {
		// A record matches when any requested tag name appears in its
		// stored tag text (OR across tags, substring semantics).
		conds := make([]string, 0, len(f.Tags))
		for _, tag := range f.Tags {
			conds = append(conds, `tags LIKE ?`)
			args = append(args, "%"+tag+"%")
		}
		where = append(where, "("+strings.Join(conds, " OR ")+")")
	}

	whereSQL := "1=1"
	if len(where) > 0 {
		whereSQL = strings.Join(where, " AND ")
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, platform, conversation_id, timestamp,
		        user_text, response_text, metadata, notes, tags
		 FROM records WHERE %s
		 ORDER BY timestamp DESC, id DESC`, whereSQL), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []*models.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListPlatforms returns the distinct platforms, sorted.
func (s *SQLiteStore) ListPlatforms(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT platform FROM records ORDER BY platform`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var platforms []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		platforms = append(platforms, p)
	}
	return platforms, rows.Err()
}

// CountRecords returns the total number of records.
func (s *SQLiteStore) CountRecords(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&count)
	return count, err
}

// CountsByPlatform returns record counts grouped by platform.
func (s *SQLiteStore) CountsByPlatform(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT platform, COUNT(*) FROM records GROUP BY platform`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var platform string
		var n int64
		if err := rows.Scan(&platform, &n); err != nil {
			return nil, err
		}
		counts[platform] = n
	}
	return counts, rows.Err()
}

// TimeRange returns the earliest and latest record timestamps, nils when the
// store is empty.
func (s *SQLiteStore) TimeRange(ctx context.Context) (*time.Time, *time.Time, error) {
	var min, max time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT timestamp FROM records ORDER BY timestamp ASC, id ASC LIMIT 1`).Scan(&min)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	err = s.db.QueryRowContext(ctx,
		`SELECT timestamp FROM records ORDER BY timestamp DESC, id DESC LIMIT 1`).Scan(&max)
	if err != nil {
		return nil, nil, err
	}
	return &min, &max, nil
}

// ListTags returns all registered tags ordered by name.
func (s *SQLiteStore) ListTags(ctx context.Context) ([]*models.Tag, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, color, created_at FROM tags ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []*models.Tag
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Color, &t.CreatedAt); err != nil {
			return nil, err
		}
		tags = append(tags, &t)
	}
	return tags, rows.Err()
}

// CreateTag registers a new tag, returning ErrTagExists when the name is
// already taken.
func (s *SQLiteStore) CreateTag(ctx context.Context, name, color string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tags (name, color) VALUES (?, ?)`, name, color)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return 0, ErrTagExists
		}
		return 0, fmt.Errorf("failed to create tag: %w", err)
	}
	return res.LastInsertId()
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(sc scanner) (*models.Record, error) {
	var rec models.Record
	var metadata, tags string
	err := sc.Scan(
		&rec.ID, &rec.Platform, &rec.ConversationID, &rec.Timestamp,
		&rec.UserText, &rec.ResponseText, &metadata, &rec.Notes, &tags,
	)
	if err != nil {
		return nil, err
	}
	if metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &rec.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	rec.Tags = SplitTags(tags)
	return &rec, nil
}

// NormalizeTags trims each tag and drops blanks, preserving order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// SplitTags splits the stored comma-joined tag text back into a list.
func SplitTags(joined string) []string {
	if joined == "" {
		return nil
	}
	return NormalizeTags(strings.Split(joined, ","))
}
