package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Divas-Gupta30/hybrid-chat/travel-agent/internal/cli"
	"github.com/Divas-Gupta30/hybrid-chat/travel-agent/internal/config"
	"github.com/Divas-Gupta30/hybrid-chat/travel-agent/internal/graph"
	"github.com/Divas-Gupta30/hybrid-chat/travel-agent/internal/history"
	"github.com/Divas-Gupta30/hybrid-chat/travel-agent/internal/ingestion"
	"github.com/Divas-Gupta30/hybrid-chat/travel-agent/internal/knowledge"
	"github.com/Divas-Gupta30/hybrid-chat/travel-agent/internal/llm"
	"github.com/Divas-Gupta30/hybrid-chat/travel-agent/internal/logging"
	"github.com/Divas-Gupta30/hybrid-chat/travel-agent/internal/mcpserver"
	"github.com/Divas-Gupta30/hybrid-chat/travel-agent/internal/processing"
	"github.com/Divas-Gupta30/hybrid-chat/travel-agent/internal/retrieval"
	"github.com/Divas-Gupta30/hybrid-chat/travel-agent/internal/server"
	"github.com/Divas-Gupta30/hybrid-chat/travel-agent/internal/storage"
)

const version = "0.3.0"

const usage = "Usage: agent <chat|ask|serve|mcp|index> [flags]"

type options struct {
	configPath string
	dev        bool
}

func commonFlags(fs *flag.FlagSet) *options {
	o := &options{}
	fs.StringVar(&o.configPath, "config", "", "path to YAML config file")
	fs.BoolVar(&o.dev, "dev", false, "human-readable development logging")
	return o
}

func main() {
	chatCmd := flag.NewFlagSet("chat", flag.ExitOnError)
	chatOpts := commonFlags(chatCmd)

	askCmd := flag.NewFlagSet("ask", flag.ExitOnError)
	askOpts := commonFlags(askCmd)
	askText := askCmd.String("q", "", "question text")

	serveCmd := flag.NewFlagSet("serve", flag.ExitOnError)
	serveOpts := commonFlags(serveCmd)
	serveAddr := serveCmd.String("addr", "", "listen address (overrides config)")

	mcpCmd := flag.NewFlagSet("mcp", flag.ExitOnError)
	mcpOpts := commonFlags(mcpCmd)

	indexCmd := flag.NewFlagSet("index", flag.ExitOnError)
	indexOpts := commonFlags(indexCmd)
	indexPath := indexCmd.String("data", "./data/vietnam_travel_dataset.json", "dataset file or folder to index")
	indexGraph := indexCmd.Bool("graph", false, "also load nodes and connections into Neo4j")

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch os.Args[1] {
	case "chat":
		chatCmd.Parse(os.Args[2:])
		a := start(ctx, chatOpts)
		term := cli.NewTerminal()
		err := cli.Chat(ctx, term, os.Stdout, a.workflow, a.turns, a.log)
		term.Close()
		a.exit(ctx, "chat", err)

	case "ask":
		askCmd.Parse(os.Args[2:])
		if *askText == "" {
			fmt.Println("Please provide -q \"your question\"")
			os.Exit(1)
		}
		a := start(ctx, askOpts)
		state, err := a.workflow.Run(ctx, *askText)
		if err == nil {
			fmt.Println(state.Answer())
		}
		a.exit(ctx, "workflow", err)

	case "serve":
		serveCmd.Parse(os.Args[2:])
		a := start(ctx, serveOpts)
		addr := a.cfg.Server.Addr
		if *serveAddr != "" {
			addr = *serveAddr
		}
		a.exit(ctx, "server failed", server.New(a.workflow, a.turns, a.log.Named("http")).ListenAndServe(ctx, addr))

	case "mcp":
		mcpCmd.Parse(os.Args[2:])
		a := start(ctx, mcpOpts)
		a.exit(ctx, "mcp server failed", mcpserver.Serve(mcpserver.New(a.workflow, version, a.log.Named("mcp"))))

	case "index":
		indexCmd.Parse(os.Args[2:])
		cfg, logger := loadConfig(indexOpts, func(c *config.Config) error { return c.ValidateIndex(*indexGraph) })
		err := runIndex(ctx, cfg, logger, *indexPath, *indexGraph)
		if err != nil {
			logger.Error("indexing failed", zap.Error(err))
		}
		logger.Sync()
		if err != nil {
			os.Exit(1)
		}

	default:
		fmt.Println("expected 'chat', 'ask', 'serve', 'mcp' or 'index' subcommands")
		os.Exit(1)
	}
}

// loadConfig exits on a config the command cannot run with; nothing is open yet.
func loadConfig(o *options, validate func(*config.Config) error) (*config.Config, *zap.Logger) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		log.Fatal("config: ", err)
	}
	if err := validate(cfg); err != nil {
		log.Fatal("config: ", err)
	}
	logger, err := logging.New(cfg.LogLevel, o.dev)
	if err != nil {
		log.Fatal("logger: ", err)
	}
	return cfg, logger
}

// app holds the process-wide service handles, built once and injected downward.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	store    *storage.Store
	graph    *knowledge.Graph
	turns    *history.Store
	workflow *graph.Workflow
}

// start wires the query path. Failing to reach Neo4j or Postgres aborts startup.
func start(ctx context.Context, o *options) *app {
	cfg, logger := loadConfig(o, (*config.Config).Validate)
	a := &app{cfg: cfg, log: logger}

	g, err := knowledge.Connect(ctx, cfg.Graph, logger.Named("neo4j"))
	a.must(ctx, "failed to initialize neo4j", err)
	a.graph = g
	schema, err := g.Schema(ctx)
	a.must(ctx, "failed to read graph schema", err)

	store, err := storage.Open(ctx, cfg.VectorDB.URL, cfg.VectorDB.Table)
	a.must(ctx, "failed to open vector store", err)
	a.store = store

	completer, err := llm.New(cfg.LLM)
	a.must(ctx, "llm", err)
	embedder, err := processing.NewEmbedder(cfg.Embedding)
	a.must(ctx, "embedder", err)

	qa := &knowledge.CypherQA{
		LLM:    completer,
		Graph:  g,
		Schema: schema,
		TopK:   knowledge.DefaultTopK,
		Log:    logger.Named("cypher"),
	}
	a.workflow = graph.NewWorkflow(
		graph.NewRouter(completer, logger.Named("router")),
		retrieval.NewVector(embedder, store, logger.Named("vector")),
		retrieval.NewGraph(qa, logger.Named("graph")),
		graph.NewSynthesizer(completer, logger.Named("synthesizer")),
		logger.Named("workflow"),
	)
	a.turns = history.Connect(ctx, cfg.Redis, logger.Named("history"))
	logger.Info("travel assistant ready", zap.String("llm", cfg.LLM.Provider+"/"+cfg.LLM.Model))
	return a
}

func (a *app) close(ctx context.Context) {
	a.turns.Close()
	if a.store != nil {
		a.store.Close()
	}
	if a.graph != nil {
		a.graph.Close(ctx)
	}
	a.log.Sync()
}

// exit releases every handle, then ends the process with a status that reflects err.
func (a *app) exit(ctx context.Context, msg string, err error) {
	if err != nil {
		a.log.Error(msg, zap.Error(err))
	}
	a.close(ctx)
	if err != nil {
		os.Exit(1)
	}
}

// must exits through exit when err is set.
func (a *app) must(ctx context.Context, msg string, err error) {
	if err != nil {
		a.exit(ctx, msg, err)
	}
}

func runIndex(ctx context.Context, cfg *config.Config, logger *zap.Logger, path string, withGraph bool) error {
	nodes, err := ingestion.LoadDataset(path)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	logger.Info("starting indexing", zap.String("path", path), zap.Int("nodes", len(nodes)))

	store, err := storage.Open(ctx, cfg.VectorDB.URL, cfg.VectorDB.Table)
	if err != nil {
		return fmt.Errorf("open vector store: %w", err)
	}
	defer store.Close()
	if err := store.EnsureSchema(ctx, processing.EmbeddingDim); err != nil {
		return fmt.Errorf("vector schema: %w", err)
	}
	embedder, err := processing.NewEmbedder(cfg.Embedding)
	if err != nil {
		return err
	}

	up := &ingestion.Uploader{Embedder: embedder, Store: store, Log: logger.Named("ingest")}
	stats, err := up.Upload(ctx, nodes)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}

	if withGraph {
		g, err := knowledge.Connect(ctx, cfg.Graph, logger.Named("neo4j"))
		if err != nil {
			return fmt.Errorf("initialize neo4j: %w", err)
		}
		defer g.Close(ctx)
		if _, err := knowledge.LoadNodes(ctx, g, nodes, logger.Named("graph-load")); err != nil {
			return fmt.Errorf("graph load: %w", err)
		}
	}
	fmt.Printf("Indexing complete: %d uploaded, %d skipped, %d failed batches.\n", stats.Uploaded, stats.Skipped, stats.FailedBatches)
	return nil
}
