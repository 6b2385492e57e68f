// Package integration exercises the full ingest, index, and search flow
// against real storage.
package integration

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/marfleetn/chatCAT/internal/config"
	"github.com/marfleetn/chatCAT/internal/models"
	"github.com/marfleetn/chatCAT/internal/search"
	"github.com/marfleetn/chatCAT/internal/storage"
)

func TestIntegration_CatalogueAndSearch(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Storage.DatabasePath = filepath.Join(dir, "chats.db")

	store, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	engine := search.NewEngine(store, &cfg.Search, nil)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	inputs := []*models.RecordInput{
		{
			Platform:     "claude",
			Timestamp:    base,
			UserText:     "how do goroutine leaks happen",
			ResponseText: "A goroutine leaks when it blocks forever on a channel.",
		},
		{
			Platform:     "chatgpt",
			Timestamp:    base.Add(time.Hour),
			UserText:     "python list comprehension examples",
			ResponseText: "Here are some examples.",
		},
		{
			Platform:     "claude",
			Timestamp:    base.Add(2 * time.Hour),
			UserText:     "channel buffering basics",
			ResponseText: "Buffered channels decouple sender and receiver.",
		},
	}
	ids := make([]int64, len(inputs))
	for i, in := range inputs {
		id, created, err := store.InsertRecord(ctx, in)
		if err != nil || !created {
			t.Fatalf("insert %d: id=%d created=%v err=%v", i, id, created, err)
		}
		ids[i] = id
	}

	// Text query hits only the records whose text contains the terms.
	resp, err := engine.Search(ctx, &models.SearchQuery{Query: "goroutine"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || resp.Results[0].ID != ids[0] {
		t.Fatalf("goroutine query: total=%d results=%+v", resp.Total, resp.Results)
	}
	if resp.Results[0].Relevance < 2 {
		t.Errorf("term appears in both texts, relevance=%d", resp.Results[0].Relevance)
	}

	// Annotations join the searchable text as soon as they are written.
	if err := store.UpdateNotes(ctx, ids[1], "good goroutine discussion too"); err != nil {
		t.Fatal(err)
	}
	if err := store.UpdateTags(ctx, ids[2], []string{"golang", "channels"}); err != nil {
		t.Fatal(err)
	}

	resp, err = engine.Search(ctx, &models.SearchQuery{Query: "goroutine"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 2 {
		t.Fatalf("after notes update: total=%d", resp.Total)
	}

	resp, err = engine.Search(ctx, &models.SearchQuery{Query: "golang"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || resp.Results[0].ID != ids[2] {
		t.Fatalf("tag term query: total=%d", resp.Total)
	}
	if resp.Results[0].Relevance != 3 {
		t.Errorf("tag-only hit relevance=%d, want 3", resp.Results[0].Relevance)
	}

	// Deleting a record removes it from the index in the same operation.
	if err := store.DeleteRecord(ctx, ids[0]); err != nil {
		t.Fatal(err)
	}
	resp, err = engine.Search(ctx, &models.SearchQuery{Query: "goroutine"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || resp.Results[0].ID != ids[1] {
		t.Fatalf("after delete: total=%d", resp.Total)
	}

	// Platform filter combines with the text query.
	resp, err = engine.Search(ctx, &models.SearchQuery{Query: "goroutine", Platforms: []string{"claude"}})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 0 {
		t.Fatalf("claude no longer has a goroutine record, total=%d", resp.Total)
	}
}

func TestIntegration_SurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "chats.db")
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		_, _, err := store.InsertRecord(ctx, &models.RecordInput{
			Platform:     "claude",
			Timestamp:    base.Add(time.Duration(i) * time.Minute),
			UserText:     fmt.Sprintf("persistent question %d", i),
			ResponseText: "answer",
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	store.Close()

	store, err = storage.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	engine := search.NewEngine(store, &cfg.Search, nil)
	resp, err := engine.Search(ctx, &models.SearchQuery{Query: "persistent"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 5 {
		t.Fatalf("after reopen: total=%d, want 5", resp.Total)
	}
}
