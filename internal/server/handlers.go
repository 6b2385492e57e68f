package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/marfleetn/chatCAT/internal/export"
	"github.com/marfleetn/chatCAT/internal/models"
	"github.com/marfleetn/chatCAT/internal/search"
	"github.com/marfleetn/chatCAT/internal/storage"
	"github.com/marfleetn/chatCAT/pkg/utils"
	"go.uber.org/zap"
)

type addChatRequest struct {
	Platform       string                 `json:"platform"`
	ConversationID string                 `json:"conversation_id"`
	UserMessage    string                 `json:"user_message"`
	AIResponse     string                 `json:"ai_response"`
	Metadata       map[string]interface{} `json:"metadata"`
	Timestamp      string                 `json:"timestamp"`
}

func (s *Server) handleAddChat(w http.ResponseWriter, r *http.Request) {
	var req addChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Platform == "" || req.UserMessage == "" || req.AIResponse == "" {
		s.respondError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	in := &models.RecordInput{
		Platform:       req.Platform,
		ConversationID: req.ConversationID,
		UserText:       req.UserMessage,
		ResponseText:   req.AIResponse,
		Metadata:       req.Metadata,
	}
	if req.Timestamp != "" {
		ts, err := parseTimestamp(req.Timestamp)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid timestamp")
			return
		}
		in.Timestamp = ts
	}

	id, created, err := s.store.InsertRecord(r.Context(), in)
	if err != nil {
		s.logger.Error("add chat failed", zap.String("platform", req.Platform), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !created {
		s.logger.Debug("duplicate chat ignored", zap.String("platform", req.Platform))
		s.respondJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "duplicate",
			"id":      0,
			"message": "Chat already catalogued",
		})
		return
	}
	s.logger.Debug("chat saved",
		zap.Int64("id", id),
		zap.String("platform", req.Platform),
		zap.String("user_message", utils.Truncate(req.UserMessage, 80)),
	)
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"id":      id,
		"message": "Chat saved",
	})
}

type updateNotesRequest struct {
	ChatID int64  `json:"chat_id"`
	Notes  string `json:"notes"`
}

func (s *Server) handleUpdateNotes(w http.ResponseWriter, r *http.Request) {
	var req updateNotesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ChatID == 0 {
		s.respondError(w, http.StatusBadRequest, "chat_id is required")
		return
	}
	err := s.store.UpdateNotes(r.Context(), req.ChatID, req.Notes)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "chat not found")
		return
	}
	if err != nil {
		s.logger.Error("notes update failed", zap.Int64("id", req.ChatID), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Notes updated",
	})
}

type updateTagsRequest struct {
	ChatID int64    `json:"chat_id"`
	Tags   []string `json:"tags"`
}

func (s *Server) handleUpdateTags(w http.ResponseWriter, r *http.Request) {
	var req updateTagsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ChatID == 0 {
		s.respondError(w, http.StatusBadRequest, "chat_id is required")
		return
	}
	tags := storage.NormalizeTags(req.Tags)
	err := s.store.UpdateTags(r.Context(), req.ChatID, tags)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "chat not found")
		return
	}
	if err != nil {
		s.logger.Error("tags update failed", zap.Int64("id", req.ChatID), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Tags updated",
		"tags":    tags,
	})
}

type addTagRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (s *Server) handleAddTag(w http.ResponseWriter, r *http.Request) {
	var req addTagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	name := strings.ToLower(strings.TrimSpace(req.Name))
	if name == "" {
		s.respondError(w, http.StatusBadRequest, "tag name is required")
		return
	}
	color := req.Color
	if color == "" {
		color = "#00FF00"
	}
	id, err := s.store.CreateTag(r.Context(), name, color)
	if errors.Is(err, storage.ErrTagExists) {
		s.respondJSON(w, http.StatusConflict, map[string]string{
			"error": "Tag already exists",
			"name":  name,
		})
		return
	}
	if err != nil {
		s.logger.Error("tag creation failed", zap.String("name", name), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Tag created",
		"tag":     models.Tag{ID: id, Name: name, Color: color},
	})
}

// searchListResponse echoes the request parameters alongside the page, the
// shape the dashboard consumes.
type searchListResponse struct {
	Query       string                `json:"query"`
	SearchTerms []string              `json:"search_terms"`
	Platforms   []string              `json:"platforms"`
	StartDate   string                `json:"start_date,omitempty"`
	EndDate     string                `json:"end_date,omitempty"`
	Count       int                   `json:"count"`
	Total       int                   `json:"total"`
	Offset      int                   `json:"offset"`
	Limit       int                   `json:"limit"`
	Results     []models.SearchResult `json:"results"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseSearchQuery(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	response, err := s.engine.Search(r.Context(), q)
	if err != nil {
		var qerr *search.QueryError
		if errors.As(err, &qerr) {
			s.respondError(w, http.StatusBadRequest, qerr.Error())
			return
		}
		s.logger.Error("search failed", zap.String("query", q.Query), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	limit := q.Limit
	if limit == 0 {
		limit = s.config.Search.DefaultLimit
	}
	s.respondJSON(w, http.StatusOK, searchListResponse{
		Query:       q.Query,
		SearchTerms: response.SearchTerms,
		Platforms:   q.Platforms,
		StartDate:   r.URL.Query().Get("start_date"),
		EndDate:     r.URL.Query().Get("end_date"),
		Count:       len(response.Results),
		Total:       response.Total,
		Offset:      q.Offset,
		Limit:       limit,
		Results:     response.Results,
	})
}

func (s *Server) handleGetChat(w http.ResponseWriter, r *http.Request) {
	idParam := r.URL.Query().Get("id")
	if idParam == "" {
		s.respondError(w, http.StatusBadRequest, "chat id is required")
		return
	}
	id, err := strconv.ParseInt(idParam, 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid chat id")
		return
	}
	rec, err := s.store.GetRecord(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "chat not found")
		return
	}
	if err != nil {
		s.logger.Error("get chat failed", zap.Int64("id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	q, err := s.parseSearchQuery(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	response, err := s.engine.Export(r.Context(), q)
	if err != nil {
		var qerr *search.QueryError
		if errors.As(err, &qerr) {
			s.respondError(w, http.StatusBadRequest, qerr.Error())
			return
		}
		s.logger.Error("export search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	filename := fmt.Sprintf("chatcat-export-%s.%s",
		time.Now().UTC().Format("20060102-150405"), format.Extension())
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := export.Write(w, format, response.Results); err != nil {
		s.logger.Error("export write failed", zap.String("format", string(format)), zap.Error(err))
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	total, err := s.store.CountRecords(ctx)
	if err != nil {
		s.logger.Error("stats: count records failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	byPlatform, err := s.store.CountsByPlatform(ctx)
	if err != nil {
		s.logger.Error("stats: counts by platform failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	min, max, err := s.store.TimeRange(ctx)
	if err != nil {
		s.logger.Error("stats: time range failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	stats := models.Stats{
		TotalChats: total,
		ByPlatform: byPlatform,
		DateRange:  models.DateRange{Min: min, Max: max},
	}
	if size, err := storage.DatabaseSizeBytes(s.config.Storage.DatabasePath); err == nil {
		stats.DiskUsageBytes = size
	}
	s.respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handlePlatforms(w http.ResponseWriter, r *http.Request) {
	platforms, err := s.store.ListPlatforms(r.Context())
	if err != nil {
		s.logger.Error("list platforms failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if platforms == nil {
		platforms = []string{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"platforms": platforms})
}

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.store.ListTags(r.Context())
	if err != nil {
		s.logger.Error("list tags failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"tags": tags})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parseSearchQuery reads search parameters from the query string. Date-only
// end bounds cover the whole day so both bounds stay inclusive.
func (s *Server) parseSearchQuery(r *http.Request) (*models.SearchQuery, error) {
	params := r.URL.Query()
	q := &models.SearchQuery{
		Query:     params.Get("q"),
		Platforms: multiParam(params, "platforms"),
		Tags:      multiParam(params, "tags"),
	}

	if v := params.Get("start_date"); v != "" {
		t, err := parseDate(v, false)
		if err != nil {
			return nil, fmt.Errorf("invalid start_date: %w", err)
		}
		q.StartDate = &t
	}
	if v := params.Get("end_date"); v != "" {
		t, err := parseDate(v, true)
		if err != nil {
			return nil, fmt.Errorf("invalid end_date: %w", err)
		}
		q.EndDate = &t
	}
	if v := params.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid limit: %w", err)
		}
		q.Limit = n
	}
	if v := params.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid offset: %w", err)
		}
		q.Offset = n
	}
	return q, nil
}

// multiParam accepts both the PHP-style "name[]" convention the dashboard
// uses and plain repeated "name" parameters.
func multiParam(params map[string][]string, name string) []string {
	values := append([]string(nil), params[name+"[]"]...)
	values = append(values, params[name]...)
	out := values[:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

const dateOnly = "2006-01-02"

// parseTimestamp accepts RFC3339, "2006-01-02 15:04:05", or a bare date.
func parseTimestamp(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02 15:04:05", v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateOnly, v)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// parseDate parses a filter bound. A bare date used as an end bound resolves
// to the last second of that day so the bound stays inclusive.
func parseDate(v string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(dateOnly, v); err == nil {
		if endOfDay {
			t = t.Add(24*time.Hour - time.Second)
		}
		return t.UTC(), nil
	}
	return parseTimestamp(v)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
