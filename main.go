package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"mediachat/internal/api"
	"mediachat/internal/config"
	"mediachat/internal/redis"
	"mediachat/internal/service/ai"
	"mediachat/internal/service/assistant"
	"mediachat/internal/service/content"
	"mediachat/internal/storage"
	"mediachat/internal/worker"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env loaded: %v", err)
	}
	cfg, err := config.Load(os.Getenv("MEDIACHAT_CONFIG"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	dbType := os.Getenv("MEDIACHAT_DB")
	if dbType == "" {
		dbType = "sqlite3"
	}
	log.Printf("dbType: %s", dbType)
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	// remote_assets ledger
	if err := storage.Migrate(db, dbType); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var contents assistant.ContentStore
	if cfg.Redis.Enabled {
		rdb, err := redis.NewRedisClient(cfg.Redis)
		if err != nil {
			log.Fatalf("create redis client: %v", err)
		}
		defer rdb.Close()
		contents = assistant.NewRedisContentStore(rdb)
	} else {
		contents = assistant.NewMemoryContentStore()
	}

	gemini, err := ai.NewGeminiClient(ctx, cfg.Providers[ai.ProviderGemini].APIKey, cfg.Providers[ai.ProviderGemini].BaseURL)
	if err != nil {
		log.Fatalf("init gemini client: %v", err)
	}
	generators, err := ai.NewGenerators(ctx, cfg, gemini)
	if err != nil {
		log.Fatalf("init generators: %v", err)
	}

	scraper := content.NewScraper(cfg.Scrape.UserAgent, time.Duration(cfg.Scrape.TimeoutSeconds)*time.Second, cfg.Scrape.MaxBodyMB<<20)
	assistantService := assistant.NewService(db, cfg, assistant.Dependencies{
		Files:      gemini,
		Generators: generators,
		Contents:   contents,
		PDF:        content.PDFReader{},
		Scraper:    scraper,
	})
	if _, err := assistantService.StartAssetSweeper(ctx, cfg.Asset.SweepSchedule); err != nil {
		log.Fatalf("start asset sweeper: %v", err)
	}

	workerCfg := worker.DispatcherConfig{
		MinWorkers:        cfg.BasicConfig.MinWorkers,
		MaxWorkers:        cfg.BasicConfig.MaxWorkers,
		QueueSize:         cfg.BasicConfig.QueueSize,
		WorkerIdleTimeout: cfg.BasicConfig.WorkerIdleTimeout(),
		Debug:             cfg.BasicConfig.WorkerDebug,
	}
	handlers := api.NewHandler(assistantService, workerCfg, cfg.BasicConfig.MaxUploadBytes())
	defer handlers.Close()

	router := gin.Default()
	router.MaxMultipartMemory = 32 << 20
	handlers.RegisterRoutes(router)

	srv := &http.Server{Addr: cfg.BasicConfig.ServerAddress, Handler: router}
	go func() {
		<-ctx.Done()
		log.Printf("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("server shutdown: %v", err)
		}
	}()
	log.Printf("listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server stopped: %v", err)
	}
}
