// Command graphmem ingests messages into the memory graph and answers
// queries against it.
//
// Usage:
//
//	graphmem [flags] save "Alice moved to Paris last spring"
//	graphmem [flags] search "where does Alice live?"
//	graphmem [flags] init
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/scrypster/graphmem/internal/config"
	"github.com/scrypster/graphmem/internal/engine"
	"github.com/scrypster/graphmem/internal/graph"
	"github.com/scrypster/graphmem/internal/graph/dgraph"
	"github.com/scrypster/graphmem/internal/graph/neo4j"
	"github.com/scrypster/graphmem/internal/graph/postgres"
	"github.com/scrypster/graphmem/internal/llm"
)

var (
	configPath = flag.String("config", "", "Path to config file (optional, uses env vars by default)")
	backend    = flag.String("backend", "", "Storage backend: dgraph, neo4j, postgres (overrides config)")
	limit      = flag.Int("limit", 0, "Maximum entities to retrieve for search (default 10)")
	timeout    = flag.Duration("timeout", 2*time.Minute, "Overall operation timeout")
)

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) < 1 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *backend != "" {
		cfg.Graph.Backend = *backend
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := buildStore(cfg)
	if err != nil {
		log.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close(context.Background())

	if err := store.Initialize(ctx); err != nil {
		log.Fatalf("Failed to initialize %s store: %v", cfg.Graph.Backend, err)
	}

	switch args[0] {
	case "init":
		fmt.Printf("Initialized %s backend.\n", cfg.Graph.Backend)
	case "save":
		if len(args) < 2 {
			usage()
			os.Exit(2)
		}
		runSave(ctx, cfg, store, args[1])
	case "search":
		if len(args) < 2 {
			usage()
			os.Exit(2)
		}
		runSearch(ctx, cfg, store, args[1])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: graphmem [flags] <init | save <message> | search <query>>\n\n")
	flag.PrintDefaults()
}

func buildStore(cfg *config.Config) (graph.Store, error) {
	switch cfg.Graph.Backend {
	case "dgraph":
		return dgraph.NewStore(cfg.Graph.DgraphTarget)
	case "neo4j":
		return neo4j.NewStore(neo4j.Config{
			URI:          cfg.Graph.Neo4jURI,
			Username:     cfg.Graph.Neo4jUsername,
			Password:     cfg.Graph.Neo4jPassword,
			EmbeddingDim: cfg.Graph.EmbeddingDim,
		})
	case "postgres":
		return postgres.NewStore(postgres.Config{
			DSN:          cfg.Graph.PostgresDSN,
			EmbeddingDim: cfg.Graph.EmbeddingDim,
		})
	default:
		return nil, fmt.Errorf("unknown backend %q (want dgraph, neo4j, or postgres)", cfg.Graph.Backend)
	}
}

func providerConfig(cfg *config.Config) llm.ProviderConfig {
	return llm.ProviderConfig{
		Provider:          cfg.LLM.Provider,
		APIKey:            cfg.LLM.APIKey,
		Model:             cfg.LLM.Model,
		EmbeddingModel:    cfg.LLM.EmbeddingModel,
		BaseURL:           cfg.LLM.BaseURL,
		MaxCallsPerSecond: cfg.LLM.MaxCallsPerSecond,
	}
}

func runSave(ctx context.Context, cfg *config.Config, store graph.Store, message string) {
	pc := providerConfig(cfg)
	gen, err := llm.NewTextGenerator(pc)
	if err != nil {
		log.Fatalf("Failed to create text generator: %v", err)
	}
	embedder, err := llm.NewEmbeddingGenerator(pc)
	if err != nil {
		log.Fatalf("Failed to create embedding generator: %v", err)
	}
	limiter := llm.NewLimiter(pc)

	pipeline := engine.NewIngestionPipeline(
		store,
		embedder,
		llm.NewEntityExtractor(gen, limiter),
		llm.NewRelationshipExtractor(gen, limiter),
		llm.NewTemporalResolver(gen, limiter),
	)

	result, err := pipeline.SaveMessage(ctx, message, time.Now().UTC())
	if err != nil {
		log.Fatalf("Failed to save message: %v", err)
	}
	if result.MemoryID == "" {
		fmt.Println("No entities recognized; nothing saved.")
		return
	}
	fmt.Printf("Saved memory %s: %d entities (%d new), %d relationships.\n",
		result.MemoryID, result.EntityCount, result.NewEntityCount, result.RelationshipCount)
}

func runSearch(ctx context.Context, cfg *config.Config, store graph.Store, query string) {
	pc := providerConfig(cfg)
	gen, err := llm.NewTextGenerator(pc)
	if err != nil {
		log.Fatalf("Failed to create text generator: %v", err)
	}
	embedder, err := llm.NewEmbeddingGenerator(pc)
	if err != nil {
		log.Fatalf("Failed to create embedding generator: %v", err)
	}
	limiter := llm.NewLimiter(pc)

	pipeline := engine.NewRetrievalPipeline(store, embedder, llm.NewSearchSummarizer(gen, limiter))

	resp, err := pipeline.SearchMemory(ctx, query, *limit)
	if err != nil {
		log.Fatalf("Search failed: %v", err)
	}

	fmt.Println(resp.Answer)
	if len(resp.Results) > 0 {
		fmt.Printf("\n%d entities, %d memories matched.\n", resp.TotalEntities, resp.TotalMemories)
		for _, sr := range resp.Results {
			fmt.Printf("  %-24s %-12s %.0f%%\n", sr.Entity.Name, sr.Entity.Type, sr.Score*100)
		}
	}
}
