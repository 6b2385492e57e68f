// Package storage defines persistence for conversation records and tags.
package storage

import (
	"context"
	"time"

	"github.com/marfleetn/chatCAT/internal/models"
)

// Filter narrows the candidate set fetched by FindRecords. Zero-value fields
// are ignored. Match is a full-text index expression; when set, only records
// whose index entry matches are returned.
type Filter struct {
	Match     string
	Platforms []string
	Tags      []string
	Start     *time.Time
	End       *time.Time
}

// Store defines record and tag persistence operations.
//
// Every record mutation maintains the record's full-text index entry inside
// the same transaction, so a reader never observes a record without its index
// entry or an index entry without its record. There is no mutation path that
// bypasses the index.
type Store interface {
	// InsertRecord catalogues a new record. A duplicate (platform,
	// conversation_id, timestamp) tuple is a silent no-op: created is false
	// and no id is assigned.
	InsertRecord(ctx context.Context, in *models.RecordInput) (id int64, created bool, err error)
	GetRecord(ctx context.Context, id int64) (*models.Record, error)
	UpdateNotes(ctx context.Context, id int64, notes string) error
	// UpdateTags stores the normalized tag list (trimmed, blanks dropped).
	UpdateTags(ctx context.Context, id int64, tags []string) error
	// DeleteRecord removes a record and its index entry. No HTTP route calls
	// this; it exists so the index contract covers the full mutation set.
	DeleteRecord(ctx context.Context, id int64) error

	// FindRecords returns candidate rows for the query engine, ordered by
	// timestamp descending (newest first), ties broken by id descending.
	FindRecords(ctx context.Context, f *Filter) ([]*models.Record, error)

	ListPlatforms(ctx context.Context) ([]string, error)
	CountRecords(ctx context.Context) (int64, error)
	CountsByPlatform(ctx context.Context) (map[string]int64, error)
	// TimeRange returns the earliest and latest record timestamps, or nils
	// when the store is empty.
	TimeRange(ctx context.Context) (min, max *time.Time, err error)

	// Tag registry. Registration is independent of which records use a tag.
	ListTags(ctx context.Context) ([]*models.Tag, error)
	// CreateTag returns ErrTagExists when the name is already registered.
	CreateTag(ctx context.Context, name, color string) (int64, error)

	Close() error
}
