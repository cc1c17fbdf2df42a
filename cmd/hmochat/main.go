package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/hmochat/internal/ai"
	"github.com/xxxsen/hmochat/internal/answer"
	"github.com/xxxsen/hmochat/internal/config"
	"github.com/xxxsen/hmochat/internal/db"
	"github.com/xxxsen/hmochat/internal/embedcache"
	"github.com/xxxsen/hmochat/internal/filestore"
	"github.com/xxxsen/hmochat/internal/handler"
	"github.com/xxxsen/hmochat/internal/job"
	"github.com/xxxsen/hmochat/internal/middleware"
	"github.com/xxxsen/hmochat/internal/monitor"
	"github.com/xxxsen/hmochat/internal/repo"
	"github.com/xxxsen/hmochat/internal/retrieval"
	"github.com/xxxsen/hmochat/internal/schedule"
	"github.com/xxxsen/hmochat/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "hmochat",
		Short: "hmo member assistant",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run chat server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}

	buildCmd := &cobra.Command{
		Use:   "build-index",
		Short: "chunk and embed the corpus, then store the index artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return buildIndex(cmd.Context(), cfg)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd, buildCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", path))
	return cfg, nil
}

func retryConfig(cfg *config.Config) ai.RetryConfig {
	return ai.RetryConfig{
		Timeout:    time.Duration(cfg.AI.Timeout) * time.Second,
		MaxRetries: cfg.AI.MaxRetries,
		BaseDelay:  time.Duration(cfg.AI.RetryBaseMS) * time.Millisecond,
	}
}

func newEmbedder(cfg *config.Config) (ai.IEmbedder, error) {
	entry := cfg.AI.Embed
	provider, err := ai.NewEmbedProvider(entry.Provider, entry.Data)
	if err != nil {
		return nil, fmt.Errorf("init embed provider: %w", err)
	}
	return ai.WithRetryEmbedder(ai.NewEmbedder(provider, entry.Model), retryConfig(cfg)), nil
}

func newGenerator(cfg *config.Config) (ai.IGenerator, error) {
	opts := ai.GenerateOptions{Temperature: cfg.AI.Temperature, MaxTokens: cfg.AI.MaxTokens}
	items := make([]ai.GeneratorEntry, 0, len(cfg.AI.Chat))
	for _, entry := range cfg.AI.Chat {
		provider, err := ai.NewChatProvider(entry.Provider, entry.Data)
		if err != nil {
			return nil, fmt.Errorf("init chat provider %s: %w", entry.Name, err)
		}
		name := entry.Name
		if name == "" {
			name = entry.Provider + "/" + entry.Model
		}
		items = append(items, ai.GeneratorEntry{
			Name:      name,
			Generator: ai.WithRetryGenerator(ai.NewGenerator(provider, entry.Model, opts), retryConfig(cfg)),
		})
	}
	return ai.NewGroupGenerator(items), nil
}

func openCache(cfg *config.Config) (*sql.DB, error) {
	if !db.Enabled(cfg.Database) {
		return nil, nil
	}
	sqlDB, err := db.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return sqlDB, nil
}

func buildIndex(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger := logutil.GetLogger(ctx)

	if cfg.Retrieval.Manifest == "" {
		return fmt.Errorf("retrieval.manifest is required to build the index")
	}
	docs, err := retrieval.LoadCorpus(cfg.Retrieval.Manifest)
	if err != nil {
		return err
	}
	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	sqlDB, err := openCache(cfg)
	if err != nil {
		return err
	}
	if sqlDB != nil {
		defer sqlDB.Close()
		embedder = embedcache.WrapDBCacheToEmbedder(embedder, repo.NewEmbeddingCacheRepo(sqlDB))
	}
	store, err := filestore.New(cfg.IndexStore)
	if err != nil {
		return fmt.Errorf("init index store: %w", err)
	}

	chunker := retrieval.NewChunker(
		retrieval.WithChunkSize(cfg.Retrieval.ChunkSize),
		retrieval.WithOverlap(cfg.Retrieval.ChunkOverlap),
	)
	builder := retrieval.NewBuilder(chunker, embedder, retrieval.WithConcurrency(cfg.Retrieval.BuildConcurrency))
	logger.Info("building index", zap.Int("documents", len(docs)), zap.String("model", embedder.ModelName()))
	index, report, err := builder.Build(ctx, docs)
	if report != nil {
		raw, _ := json.MarshalIndent(report, "", "  ")
		fmt.Fprintln(os.Stdout, string(raw))
	}
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	if err := retrieval.SaveIndex(ctx, store, cfg.Retrieval.IndexKey, index); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	logger.Info("index saved",
		zap.String("key", cfg.Retrieval.IndexKey),
		zap.String("store", store.Type()),
		zap.Int("chunks", index.Len()),
		zap.Int("dimension", index.Identity().Dimension),
	)
	return nil
}

func runServer(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger := logutil.GetLogger(ctx)
	logger.Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("index_store", cfg.IndexStore.Type),
		zap.String("index_key", cfg.Retrieval.IndexKey),
	)

	store, err := filestore.New(cfg.IndexStore)
	if err != nil {
		return fmt.Errorf("init index store: %w", err)
	}
	index, err := retrieval.LoadIndex(ctx, store, cfg.Retrieval.IndexKey)
	if err != nil {
		return fmt.Errorf("load index: %w", err)
	}
	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	embedder = embedcache.WrapLruCacheToEmbedder(
		embedder,
		cfg.Retrieval.QueryCacheSize,
		time.Duration(cfg.Retrieval.QueryCacheTTLSeconds)*time.Second,
	)
	retriever, err := retrieval.NewRetriever(index, embedder,
		retrieval.WithTopK(cfg.Retrieval.TopK),
		retrieval.WithMinScore(cfg.Retrieval.MinScore),
	)
	if err != nil {
		return fmt.Errorf("init retriever: %w", err)
	}
	generator, err := newGenerator(cfg)
	if err != nil {
		return err
	}

	metrics := monitor.New()
	composer := answer.NewComposer(retriever, generator, metrics)
	chatService := service.NewChatService(composer, metrics, service.ChatServiceConfig{
		IdleTimeout:     time.Duration(cfg.Session.IdleTimeoutMinutes) * time.Minute,
		MaxMessageChars: cfg.Session.MaxMessageChars,
		HistoryTurns:    cfg.Session.HistoryTurns,
	})

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewSessionSweepJob(chatService), cfg.Session.SweepSpec); err != nil {
		return fmt.Errorf("schedule session sweep: %w", err)
	}
	sqlDB, err := openCache(cfg)
	if err != nil {
		return err
	}
	if sqlDB != nil {
		defer sqlDB.Close()
		cleanup := job.NewEmbeddingCacheCleanupJob(repo.NewEmbeddingCacheRepo(sqlDB), cfg.Database.CacheMaxAgeDays)
		if err := scheduler.AddJob(cleanup, cfg.Database.CacheCleanupSpec); err != nil {
			return fmt.Errorf("schedule cache cleanup: %w", err)
		}
	}
	scheduler.Start(ctx)

	identity := index.Identity()
	deps := handler.RouterDeps{
		Sessions: handler.NewSessionHandler(chatService, []byte(cfg.JWTSecret), time.Hour*time.Duration(cfg.JWTTTLHours)),
		System: handler.NewSystemHandler(metrics, chatService, handler.IndexInfo{
			Model:     identity.Model,
			Dimension: identity.Dimension,
			Chunks:    index.Len(),
			BuiltAt:   index.Info().BuiltAt,
			TopK:      retriever.TopK(),
			MinScore:  retriever.MinScore(),
		}),
		JWTSecret:      []byte(cfg.JWTSecret),
		RateLimitQPS:   cfg.RateLimitQPS,
		RateLimitBurst: cfg.RateLimitBurst,
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	engine, err := webapi.NewEngine(
		"/api/v1",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logger.Info("http server listening",
		zap.String("addr", addr),
		zap.String("model", identity.Model),
		zap.Int("chunks", index.Len()),
	)

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	scheduler.Stop()
	logger.Info("server stopping...")
	return nil
}
