package models

import "time"

// SearchResult is a single ranked hit. Relevance is the weighted whole-word
// term count; it is zero when the search had no text query.
type SearchResult struct {
	Record
	Relevance int `json:"relevance"`
}

// SearchResponse is the response for a search request. Total is the count of
// matches before pagination; SearchTerms are the tokenized query terms that
// were scored.
type SearchResponse struct {
	Results     []SearchResult `json:"results"`
	Total       int            `json:"total"`
	SearchTerms []string       `json:"search_terms"`
}

// Stats summarizes the catalogue for the dashboard.
type Stats struct {
	TotalChats     int64            `json:"total_chats"`
	ByPlatform     map[string]int64 `json:"by_platform"`
	DateRange      DateRange        `json:"date_range"`
	DiskUsageBytes int64            `json:"disk_usage_bytes,omitempty"`
}

// DateRange is the min/max record timestamp; both are nil for an empty store.
type DateRange struct {
	Min *time.Time `json:"min"`
	Max *time.Time `json:"max"`
}
