package benchmark

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

func BenchmarkScorer(b *testing.B) {
	scorer := search.NewScorer([]string{"goroutine", "channel", "select"})
	record := &models.Record{
		UserText:     "how do goroutine leaks happen with an unbuffered channel",
		ResponseText: "A goroutine leaks when it blocks forever on a channel send; select with a timeout avoids it.",
		Notes:        "revisit the select example",
		Tags:         []string{"golang", "channel"},
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = scorer.Score(record)
	}
}

func BenchmarkEngineSearch(b *testing.B) {
	store, err := storage.NewSQLiteStore(filepath.Join(b.TempDir(), "bench.db"))
	if err != nil {
		b.Fatal(err)
	}
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 1000; i++ {
		topic := "goroutine"
		if i%3 == 0 {
			topic = "decorator"
		}
		_, _, err := store.InsertRecord(ctx, &models.RecordInput{
			Platform:     "claude",
			Timestamp:    base.Add(time.Duration(i) * time.Minute),
			UserText:     fmt.Sprintf("question %d about %s usage", i, topic),
			ResponseText: fmt.Sprintf("answer %d covering %s in detail", i, topic),
		})
		if err != nil {
			b.Fatal(err)
		}
	}

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	engine := search.NewEngine(store, &cfg.Search, nil)
	query := &models.SearchQuery{Query: "goroutine", Limit: 50}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.Search(ctx, query); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkInsertRecord(b *testing.B) {
	store, err := storage.NewSQLiteStore(filepath.Join(b.TempDir(), "bench.db"))
	if err != nil {
		b.Fatal(err)
	}
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, err := store.InsertRecord(ctx, &models.RecordInput{
			Platform:     "claude",
			Timestamp:    base.Add(time.Duration(i) * time.Second),
			UserText:     fmt.Sprintf("benchmark question %d", i),
			ResponseText: "benchmark answer",
		})
		if err != nil {
			b.Fatal(err)
		}
	}
}
