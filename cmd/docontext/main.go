package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dshills/docontext/internal/config"
	"github.com/dshills/docontext/internal/embedder"
	"github.com/dshills/docontext/internal/mcp"
	"github.com/dshills/docontext/internal/pipeline"
	"github.com/dshills/docontext/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "docontext.yaml", "path to config file")
		inputRoot   = flag.String("input", "", "corpus root to process; omit to run the MCP server")
		force       = flag.Bool("force", false, "reprocess every file ignoring stored fingerprints")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("docontext\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", storage.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", storage.DriverName)
		os.Exit(0)
	}

	// stdout is reserved for the MCP protocol or the run report.
	log.SetOutput(os.Stderr)

	// Optional .env for API keys; absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if *inputRoot != "" {
		runOnce(cfg, *inputRoot, *force)
		return
	}
	serveMCP(cfg)
}

// runOnce processes the corpus and prints the report to stdout as JSON.
func runOnce(cfg *config.Config, root string, force bool) {
	store, err := storage.NewSQLiteStorage(cfg.DBPath)
	if err != nil {
		log.Fatalf("open storage: %v", err)
	}
	defer func() { _ = store.Close() }()

	emb, err := embedder.NewFromEnv()
	if err != nil {
		log.Fatalf("initialize embedder: %v", err)
	}
	defer func() { _ = emb.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	coord := pipeline.New(cfg, store, emb)
	report, err := coord.ProcessCorpus(ctx, root, pipeline.Options{ForceReprocess: force})
	if err != nil {
		log.Fatalf("corpus run: %v", err)
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Fatalf("marshal report: %v", err)
	}
	fmt.Println(string(out))

	if report.Aborted {
		os.Exit(1)
	}
}

// serveMCP runs the stdio MCP server until a shutdown signal.
func serveMCP(cfg *config.Config) {
	log.Printf("docontext MCP server v%s starting (mode %s, driver %s)",
		version, storage.BuildMode, storage.DriverName)

	server, err := mcp.NewServer(cfg)
	if err != nil {
		log.Fatalf("create MCP server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		log.Println("MCP server ready, listening on stdio...")
		errChan <- server.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		log.Printf("received signal %v, shutting down", sig)
		cancel()
	case err := <-errChan:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
	log.Println("server stopped")
}
