package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/labsafe/sdsassist/internal/adapters/driven/config/file"
	openaiembed "github.com/labsafe/sdsassist/internal/adapters/driven/embedding/openai"
	ollamaembed "github.com/labsafe/sdsassist/internal/adapters/driven/embedding/ollama"
	geminigen "github.com/labsafe/sdsassist/internal/adapters/driven/generator/gemini"
	mockgen "github.com/labsafe/sdsassist/internal/adapters/driven/generator/mock"
	openaigen "github.com/labsafe/sdsassist/internal/adapters/driven/generator/openai"
	"github.com/labsafe/sdsassist/internal/adapters/driven/ocr/tesseract"
	"github.com/labsafe/sdsassist/internal/adapters/driven/storage/aliaslog"
	"github.com/labsafe/sdsassist/internal/adapters/driven/storage/sqlite"
	"github.com/labsafe/sdsassist/internal/adapters/driven/vectorstore/chromem"
	"github.com/labsafe/sdsassist/internal/adapters/driving/cli"
	"github.com/labsafe/sdsassist/internal/chunker"
	"github.com/labsafe/sdsassist/internal/core/ports/driven"
	"github.com/labsafe/sdsassist/internal/core/services"
	"github.com/labsafe/sdsassist/internal/extract"
	"github.com/labsafe/sdsassist/internal/logger"
	"github.com/labsafe/sdsassist/internal/rules"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	// Environment overrides from .env, if present. Missing file is fine.
	_ = godotenv.Load()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := file.LoadConfig(os.Getenv("SDSASSIST_CONFIG_DIR"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Driven adapters.

	registry, err := sqlite.NewStore(filepath.Join(cfg.DataDir, "data"))
	if err != nil {
		return fmt.Errorf("opening document registry: %w", err)
	}
	defer registry.Close()

	vectors, err := chromem.NewStore(filepath.Join(cfg.DataDir, "data", "vectors"))
	if err != nil {
		return fmt.Errorf("opening vector store: %w", err)
	}
	defer vectors.Close()

	log, err := aliaslog.Open(filepath.Join(cfg.DataDir, "data", "aliases.jsonl"))
	if err != nil {
		return fmt.Errorf("opening alias log: %w", err)
	}
	defer log.Close()

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return err
	}

	generator, err := buildGenerator(cfg)
	if err != nil {
		return err
	}

	prompts, err := file.NewPromptStore(cfg.Answer.PromptDir)
	if err != nil {
		return fmt.Errorf("creating prompt store: %w", err)
	}

	ruleSet, err := loadRules(cfg)
	if err != nil {
		return err
	}
	engine, err := rules.NewEngine(ruleSet)
	if err != nil {
		return fmt.Errorf("building rule engine: %w", err)
	}

	// Core services.

	aliases, err := services.NewAliasIndex(log)
	if err != nil {
		return fmt.Errorf("building alias index: %w", err)
	}

	runner := &tesseract.ExecRunner{}
	var ocr driven.OCREngine
	if cfg.OCR.Enabled {
		ocr = tesseract.New(tesseract.Config{
			Binary: cfg.OCR.Binary,
			Lang:   cfg.OCR.Lang,
		}, runner)
	}
	extractor := extract.New(extract.Config{
		OCREnabled: cfg.OCR.Enabled,
		MaxPages:   cfg.Ingest.MaxPages,
	}, ocr, runner)

	ingest := services.NewIngestService(
		extractor,
		chunker.New(),
		aliases,
		embedder,
		vectors,
		registry,
		cfg.Ingest.Workers,
	)

	retriever := services.NewRetriever(embedder, vectors, aliases)
	retriever.Tune(cfg.Retrieval.K, cfg.Retrieval.MinScore, cfg.Retrieval.MinHits)

	orchestrator := services.NewAnswerOrchestrator(
		aliases,
		engine,
		retriever,
		generator,
		prompts,
		cfg.Answer.MaxTokens,
		cfg.AnswerTimeout(),
	)

	cli.SetVersion(version)
	cli.SetServices(cli.Deps{
		Ingest:   ingest,
		Answer:   orchestrator,
		Screen:   orchestrator,
		Aliases:  aliases,
		Registry: registry,
	})

	return cli.Execute()
}

func buildEmbedder(cfg *file.Config) (driven.EmbeddingService, error) {
	switch cfg.Embedder.Provider {
	case "openai":
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:            os.Getenv(cfg.Embedder.APIKeyEnv),
			BaseURL:           cfg.Embedder.BaseURL,
			Model:             cfg.Embedder.Model,
			Dimensions:        cfg.Embedder.Dimensions,
			RequestsPerMinute: cfg.Embedder.RequestsPerMinute,
		})
	case "ollama":
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    cfg.Embedder.BaseURL,
			Model:      cfg.Embedder.Model,
			Dimensions: cfg.Embedder.Dimensions,
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedder provider %q", cfg.Embedder.Provider)
	}
}

func buildGenerator(cfg *file.Config) (driven.Generator, error) {
	switch cfg.Generator.Provider {
	case "openai":
		return openaigen.NewGenerator(openaigen.Config{
			APIKey:      os.Getenv(cfg.Generator.APIKeyEnv),
			BaseURL:     cfg.Generator.BaseURL,
			Model:       cfg.Generator.Model,
			Temperature: cfg.Generator.Temperature,
		})
	case "gemini":
		return geminigen.NewGenerator(geminigen.Config{
			APIKey:      os.Getenv(cfg.Generator.APIKeyEnv),
			BaseURL:     cfg.Generator.BaseURL,
			Model:       cfg.Generator.Model,
			Temperature: cfg.Generator.Temperature,
		})
	case "mock":
		// Offline mode: deterministic answers assembled from retrieved
		// passages, useful for demos and air-gapped labs.
		logger.Warn("using mock generator, answers are template assembled")
		return mockgen.New(), nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown generator provider %q", cfg.Generator.Provider)
	}
}

func loadRules(cfg *file.Config) (*rules.Config, error) {
	if cfg.Rules.Path != "" {
		ruleSet, err := rules.LoadFile(cfg.Rules.Path)
		if err != nil {
			return nil, fmt.Errorf("loading rules from %s: %w", cfg.Rules.Path, err)
		}
		return ruleSet, nil
	}
	ruleSet, err := rules.LoadDefault()
	if err != nil {
		return nil, fmt.Errorf("loading built-in rules: %w", err)
	}
	return ruleSet, nil
}
