package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/worksim-assessor/internal/ai"
	"github.com/spigell/worksim-assessor/internal/ai/gemini"
	"github.com/spigell/worksim-assessor/internal/detached"
	"github.com/spigell/worksim-assessor/internal/embedding"
	"github.com/spigell/worksim-assessor/internal/logger"
	"github.com/spigell/worksim-assessor/internal/retry"
	"github.com/spigell/worksim-assessor/internal/rubric"
	"github.com/spigell/worksim-assessor/internal/secrets"
	"github.com/spigell/worksim-assessor/internal/store"
	"github.com/spigell/worksim-assessor/internal/video"
)

// setup creates the logger and reads the config the same way for every command.
func setup(command string) (*zap.Logger, *Config) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the "+app, zap.String("version", version), zap.String("command", command))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	return logger, config
}

func redacted(c *Config) Config {
	out := *c
	if c.Store != nil && c.Store.DSN != "" {
		s := *c.Store
		s.DSN = "***"
		out.Store = &s
	}
	if c.AI != nil && c.AI.Gemini != nil && c.AI.Gemini.APIKey != "" {
		g := *c.AI.Gemini
		g.APIKey = "***"
		out.AI = &AIConfig{Gemini: &g}
	}
	return out
}

func newStore(ctx context.Context, cfg *StoreConfig, logger *zap.Logger) (store.Store, error) {
	switch driver := strings.ToLower(strings.TrimSpace(cfg.Driver)); driver {
	case "memory":
		logger.Warn("using in-memory store, state is lost on exit")
		return store.NewMemory(), nil
	case "", "postgres":
		dsn, err := secrets.Load(secrets.Source{
			Name:  "database dsn",
			Value: cfg.DSN,
			File:  cfg.DSNFile,
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set store.dsn-file or WORKSIM_DSN_FILE)", err)
		}

		db, err := store.OpenPostgres(dsn, logger)
		if err != nil {
			return nil, err
		}
		if cfg.AutoMigrate {
			if err := db.Migrate(ctx); err != nil {
				return nil, err
			}
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}

func newGenerator(ctx context.Context, cfg *GeminiConfig, model string, logger *zap.Logger) (*gemini.Generator, error) {
	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.APIKey,
		File:  cfg.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	return gemini.NewGenerator(ctx, apiKey, model, cfg.MaxLogLength, logger)
}

func newEmbeddings(cfg *EmbeddingConfig, logger *zap.Logger) (video.EmbeddingTrigger, func(), error) {
	if !cfg.Enabled {
		return embedding.Noop{Logger: logger}, func() {}, nil
	}

	publisher, err := embedding.Dial(cfg.AMQPURL, cfg.Queue, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("embedding publisher: %w", err)
	}

	return publisher, func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("closing embedding publisher", zap.Error(err))
		}
	}, nil
}

// newPipeline wires the video evaluation pipeline. The returned func waits for
// detached work and releases connections.
func newPipeline(ctx context.Context, config *Config, logger *zap.Logger) (*video.Pipeline, func(), error) {
	st, err := newStore(ctx, config.Store, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("store: %w", err)
	}

	generator, err := newGenerator(ctx, config.AI.Gemini, config.AI.Gemini.Model, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("video evaluator: %w", err)
	}

	embeddings, closeEmbeddings, err := newEmbeddings(config.Embedding, logger)
	if err != nil {
		return nil, nil, err
	}

	tasks := detached.NewRunner(logger, config.Embedding.Timeout)

	pipeline, err := video.NewPipeline(video.Config{
		Retry: retry.Policy{
			MaxAttempts: config.Retry.MaxAttempts,
			BaseDelay:   config.Retry.BaseDelay,
			MaxDelay:    config.Retry.MaxDelay,
		},
		DefaultRoleFamily: config.Rubrics.DefaultRoleFamily,
		MIMEType:          config.AI.Gemini.VideoMIMEType,
		MaxLogLength:      config.AI.Gemini.MaxLogLength,
	}, video.Deps{
		Store:      st,
		Rubrics:    rubric.NewFileLoader(config.Rubrics.Dir),
		Model:      generator,
		Embeddings: embeddings,
		Tasks:      tasks,
		Logger:     logger,
	})
	if err != nil {
		closeEmbeddings()
		return nil, nil, err
	}

	return pipeline, func() {
		pipeline.Wait()
		closeEmbeddings()
	}, nil
}

// newNarrativeWriter returns nil when Gemini is not configured; reports then use fallback prose.
func newNarrativeWriter(ctx context.Context, cfg *GeminiConfig, logger *zap.Logger) ai.NarrativeWriter {
	model := cfg.NarrativeModel
	if model == "" {
		model = cfg.Model
	}

	generator, err := newGenerator(ctx, cfg, model, logger)
	if err != nil {
		logger.Warn("narrative writer disabled, using fallback report text", zap.Error(err))
		return nil
	}
	return gemini.NewNarrativeWriter(generator, logger)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
