package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/patternforge/graphrag-go/internal/metrics"
	"github.com/patternforge/graphrag-go/internal/server"
	"github.com/patternforge/graphrag-go/pkg/graphrag"
)

var (
	dbURL       = flag.String("db-url", "", "libSQL database URL (default: file:./graphrag.db)")
	authToken   = flag.String("auth-token", "", "Authentication token for remote databases")
	cacheSize   = flag.Int("cache-size", 0, "Query cache size (default: 512)")
	transport   = flag.String("transport", "stdio", "Transport to use: stdio or sse")
	addr        = flag.String("addr", ":8080", "Address to listen on when using SSE transport")
	sseEndpoint = flag.String("sse-endpoint", "/sse", "SSE endpoint path when using SSE transport")
)

func main() {
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Received shutdown signal, closing server...")
		cancel()
	}()

	cfg := graphrag.NewConfig()

	// Initialize metrics (noop if disabled)
	metrics.InitFromEnv()

	// Override with command line flags if provided
	if *dbURL != "" {
		cfg.DB.URL = *dbURL
	}
	if *authToken != "" {
		cfg.DB.AuthToken = *authToken
	}
	if *cacheSize > 0 {
		cfg.CacheSize = *cacheSize
	}

	svc, err := graphrag.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open pattern store: %v", err)
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.Printf("Error closing pattern store: %v", err)
		}
	}()

	mcpServer := server.NewMCPServer(svc)

	log.Println("Starting GraphRAG pattern store server...")
	switch *transport {
	case "stdio":
		go func() {
			if err := mcpServer.Run(ctx); err != nil {
				log.Printf("Server error: %v", err)
			}
		}()
	case "sse":
		go func() {
			if err := mcpServer.RunSSE(ctx, *addr, *sseEndpoint); err != nil {
				log.Printf("SSE server error: %v", err)
			}
		}()
	default:
		log.Fatalf("unknown transport: %s (expected: stdio or sse)", *transport)
	}

	<-ctx.Done()

	log.Println("Server stopped")
}
