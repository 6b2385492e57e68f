// Package search implements the relevance-ranking query engine.
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/marfleetn/chatCAT/internal/config"
	"github.com/marfleetn/chatCAT/internal/models"
	"github.com/marfleetn/chatCAT/internal/storage"
	"go.uber.org/zap"
)

// QueryError reports a malformed search argument. It is a recoverable client
// error, distinct from storage failures.
type QueryError struct {
	Field  string
	Reason string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Engine answers structured search requests with ranked, paginated results.
type Engine struct {
	store  storage.Store
	config *config.SearchConfig
	logger *zap.Logger
}

// NewEngine creates a query engine backed by the given store.
func NewEngine(store storage.Store, cfg *config.SearchConfig, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: store, config: cfg, logger: logger}
}

// Search tokenizes the query, fetches the candidate set through the store's
// index and filters, scores and orders it, and returns one page.
//
// With a text query, ordering is relevance descending with ties broken by
// timestamp ascending (earliest first). Without one, records stay in
// timestamp-descending base order. Total is counted before pagination, so
// fixed filters yield stable pages across calls.
func (e *Engine) Search(ctx context.Context, q *models.SearchQuery) (*models.SearchResponse, error) {
	return e.search(ctx, q, e.config.DefaultLimit, e.config.MaxLimit)
}

// Export answers the same request shape for file downloads. Exports cover the
// whole filtered result set rather than one dashboard page, so the limit is
// defaulted and capped by MaxExportRows instead of MaxLimit.
func (e *Engine) Export(ctx context.Context, q *models.SearchQuery) (*models.SearchResponse, error) {
	return e.search(ctx, q, e.config.MaxExportRows, e.config.MaxExportRows)
}

func (e *Engine) search(ctx context.Context, q *models.SearchQuery, defaultLimit, maxLimit int) (*models.SearchResponse, error) {
	limit, err := e.validate(q, defaultLimit, maxLimit)
	if err != nil {
		return nil, err
	}

	terms := Tokenize(q.Query)
	filter := &storage.Filter{
		Platforms: q.Platforms,
		Tags:      q.Tags,
		Start:     q.StartDate,
		End:       q.EndDate,
	}
	if len(terms) > 0 {
		filter.Match = matchExpr(terms)
	}

	rows, err := e.store.FindRecords(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch candidates: %w", err)
	}

	results := make([]models.SearchResult, 0, len(rows))
	for _, r := range rows {
		results = append(results, models.SearchResult{Record: *r})
	}

	if len(terms) > 0 {
		scorer := NewScorer(terms)
		for i := range results {
			results[i].Relevance = scorer.Score(&results[i].Record)
		}
		sort.SliceStable(results, func(i, j int) bool {
			if results[i].Relevance != results[j].Relevance {
				return results[i].Relevance > results[j].Relevance
			}
			return results[i].Timestamp.Before(results[j].Timestamp)
		})
	}

	total := len(results)
	start := q.Offset
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	e.logger.Debug("search completed",
		zap.Int("candidates", total),
		zap.Int("terms", len(terms)),
		zap.Int("page_size", end-start),
	)

	return &models.SearchResponse{
		Results:     results[start:end],
		Total:       total,
		SearchTerms: terms,
	}, nil
}

// validate checks pagination and date bounds and resolves the effective page
// limit. A zero limit takes defaultLimit; anything above maxLimit is rejected.
func (e *Engine) validate(q *models.SearchQuery, defaultLimit, maxLimit int) (int, error) {
	if q.Offset < 0 {
		return 0, &QueryError{Field: "offset", Reason: "must be non-negative"}
	}
	if q.Limit < 0 {
		return 0, &QueryError{Field: "limit", Reason: "must be non-negative"}
	}
	if q.StartDate != nil && q.EndDate != nil && q.EndDate.Before(*q.StartDate) {
		return 0, &QueryError{Field: "date range", Reason: "end_date precedes start_date"}
	}
	limit := q.Limit
	if limit == 0 {
		limit = defaultLimit
	}
	if maxLimit > 0 && limit > maxLimit {
		return 0, &QueryError{
			Field:  "limit",
			Reason: fmt.Sprintf("exceeds maximum of %d", maxLimit),
		}
	}
	return limit, nil
}

// Tokenize splits a raw query string into search terms: whitespace-separated,
// quote characters stripped, empty tokens dropped.
func Tokenize(query string) []string {
	return strings.Fields(strings.ReplaceAll(query, `"`, ""))
}

// matchExpr builds a full-text MATCH expression from tokenized terms. Each
// term is quoted so user input cannot inject index query operators; adjacent
// quoted terms combine with the index's implicit AND.
func matchExpr(terms []string) string {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + t + `"`
	}
	return strings.Join(quoted, " ")
}
