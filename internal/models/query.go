package models

import "time"

// SearchQuery represents a search request with optional filters. All filters
// combine with AND; the Tags filter is an OR across the requested tag names.
type SearchQuery struct {
	Query     string     `json:"query,omitempty"`
	Platforms []string   `json:"platforms,omitempty"`
	Tags      []string   `json:"tags,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Limit     int        `json:"limit,omitempty"`
	Offset    int        `json:"offset,omitempty"`
}
