// Package main is the entry point for the knowledge engine's MCP
// server.
//
// The server is spawned as a child process by an MCP client and
// communicates via stdio. It should not be run manually by users.
//
// Environment variables:
//   - DEBUG: set to "true" to enable debug logging
//   - ENGINE_CONFIG: path to a JSON config file (see internal/config)
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"unified-thinking/internal/config"
	"unified-thinking/internal/mcpserver"
	"unified-thinking/internal/persistence"
	"unified-thinking/internal/session"
)

func main() {
	if os.Getenv("DEBUG") == "true" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
		log.Println("Starting knowledge engine server in debug mode...")
	}

	var cfg *config.Config
	var err error
	if path := os.Getenv("ENGINE_CONFIG"); path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	sess, err := session.New(cfg, nil)
	if err != nil {
		log.Fatalf("Failed to initialize session: %v", err)
	}
	log.Println("Initialized reasoning session")

	loadFactLog(sess, cfg.Persistence.FactLogPath)
	defer saveFactLog(sess, cfg.Persistence.FactLogPath)

	eng := mcpserver.New(sess)

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "knowledge-engine-server",
		Version: "1.0.0",
	}, nil)
	log.Println("Created MCP server")

	eng.RegisterTools(mcpServer)
	log.Println("Registered tools: execute, direct-match, assert-fact, push-theory, pop-theory, commit-theory, get-stats")

	transport := &mcp.StdioTransport{}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Println("Starting MCP server...")
	if err := mcpServer.Run(ctx, transport); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("Server error: %v", err)
	}
}

// loadFactLog restores a Session's fact set from an NDJSON log written
// by a prior saveFactLog, re-deriving every fact's vector via
// sess.Symbols rather than trusting any on-disk encoding (Invariant F3).
// A missing path or file is not an error: the engine simply starts
// empty.
func loadFactLog(sess *session.Session, path string) {
	if path == "" {
		return
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("[INFO] no fact log at %s, starting with an empty knowledge base", path)
		return
	}
	if err != nil {
		log.Printf("[WARN] failed to open fact log %s: %v", path, err)
		return
	}
	defer f.Close()

	facts, err := persistence.ReadNDJSON(f, sess.Symbols)
	if err != nil {
		log.Printf("[WARN] failed to read fact log %s: %v", path, err)
		return
	}
	loaded := 0
	for _, fact := range facts {
		if err := sess.Facts.Add(fact); err != nil {
			log.Printf("[WARN] skipping fact %s from %s: %v", fact.Key(), path, err)
			continue
		}
		loaded++
	}
	log.Printf("[INFO] loaded %d facts from %s", loaded, path)
}

// saveFactLog snapshots a Session's current fact set to path in NDJSON
// form. Called on shutdown so the next process start can resume via
// loadFactLog.
func saveFactLog(sess *session.Session, path string) {
	if path == "" {
		return
	}
	f, err := os.Create(path)
	if err != nil {
		log.Printf("[WARN] failed to write fact log %s: %v", path, err)
		return
	}
	defer f.Close()

	if err := persistence.WriteNDJSON(f, sess.Facts.Iter()); err != nil {
		log.Printf("[WARN] failed to serialize fact log %s: %v", path, err)
		return
	}
	log.Printf("[INFO] saved fact log to %s", path)
}
