// Package main is the chatCAT CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/marfleetn/chatCAT/internal/cli"
	"github.com/marfleetn/chatCAT/internal/config"
	"github.com/marfleetn/chatCAT/internal/models"
	"github.com/marfleetn/chatCAT/internal/search"
	"github.com/marfleetn/chatCAT/internal/server"
	"github.com/marfleetn/chatCAT/internal/storage"
	"github.com/marfleetn/chatCAT/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/chatcat/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used, so that "chatcat server" from the project dir uses the project's
// config. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "stats":
		runStats()
	case "version", "--version", "-v":
		fmt.Printf("chatcat version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (ingest, search timing, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	store, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer store.Close()
	logger.Info("database ready", zap.String("path", cfg.Storage.DatabasePath))

	engine := search.NewEngine(store, &cfg.Search, logger)
	srv := server.NewServer(store, engine, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// buildSearchQuery joins all positional args with spaces so multi-word
// queries work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8765", "server URL")
	limit := fs.Int("limit", 10, "number of results")
	offset := fs.Int("offset", 0, "pagination offset")
	platforms := fs.String("platforms", "", "comma-separated platform filter")
	tags := fs.String("tags", "", "comma-separated tag filter (matches any)")
	startDate := fs.String("start", "", "start date (YYYY-MM-DD, inclusive)")
	endDate := fs.String("end", "", "end date (YYYY-MM-DD, inclusive)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	params := url.Values{}
	if q := buildSearchQuery(fs.Args()); q != "" {
		params.Set("q", q)
	}
	for _, p := range splitList(*platforms) {
		params.Add("platforms[]", p)
	}
	for _, t := range splitList(*tags) {
		params.Add("tags[]", t)
	}
	if *startDate != "" {
		params.Set("start_date", *startDate)
	}
	if *endDate != "" {
		params.Set("end_date", *endDate)
	}
	params.Set("limit", fmt.Sprint(*limit))
	params.Set("offset", fmt.Sprint(*offset))

	var response models.SearchResponse
	if err := getJSON(*serverURL+"/api/search?"+params.Encode(), &response); err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchResults(os.Stdout, &response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runStats() {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8765", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var stats models.Stats
	if err := getJSON(*serverURL+"/api/stats", &stats); err != nil {
		fmt.Fprintf(os.Stderr, "Stats failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteStats(os.Stdout, &stats, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func getJSON(requestURL string, out interface{}) error {
	resp, err := http.Get(requestURL)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func printUsage() {
	fmt.Println(`chatCAT - AI chat cataloguing server

Usage:
  chatcat server [-config path] [-debug]    Start the HTTP server
  chatcat search [flags] <query>            Search the catalogue via a running server
  chatcat stats [flags]                     Show catalogue statistics
  chatcat version                           Print version
  chatcat help                              Show this help

Search flags:
  -server URL        server base URL (default http://localhost:8765)
  -limit N           number of results (default 10)
  -offset N          pagination offset
  -platforms a,b     filter by platforms
  -tags x,y          filter by tags (matches any)
  -start YYYY-MM-DD  inclusive start date
  -end YYYY-MM-DD    inclusive end date
  -output text|json  output format`)
}
