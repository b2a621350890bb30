package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"

	"FOBI-Map/internal/config"
	"FOBI-Map/internal/domain/repository"
	"FOBI-Map/internal/domain/service"
	"FOBI-Map/internal/handler"
	"FOBI-Map/internal/infrastructure/database"
	"FOBI-Map/internal/infrastructure/firestore"
	"FOBI-Map/internal/infrastructure/logger"
	redisclient "FOBI-Map/internal/infrastructure/redis"
	repoImpl "FOBI-Map/internal/repository"
	"FOBI-Map/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ 設定の読み込みに失敗: %v", err)
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var closers []func() error
	defer func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Warnf("⚠️ 終了処理でエラー: %v", err)
			}
		}
	}()

	// キャッシュ
	var cache repository.CacheRepository
	switch cfg.CacheBackend {
	case "redis":
		rc, err := redisclient.NewRedisClient(ctx, cfg.RedisHost, cfg.RedisPort, cfg.RedisPass, cfg.RedisDB)
		if err != nil {
			log.Fatalf("❌ Redis初期化失敗: %v", err)
		}
		closers = append(closers, rc.Close)
		cache = repoImpl.NewRedisCacheRepository(rc)
	case "firestore":
		fc, err := firestore.NewFirestoreClient(ctx, cfg.FirestoreProjectID, cfg.CredentialsFile)
		if err != nil {
			log.Fatalf("❌ Firestore初期化失敗: %v", err)
		}
		closers = append(closers, fc.Close)
		cache = repoImpl.NewFirestoreCacheRepository(fc.GetClient())
	default:
		cache = repoImpl.NewMemoryCacheRepository()
	}

	// マーカー
	var markersRepo repository.MarkersRepository
	switch cfg.MarkersBackend {
	case "postgres":
		pg, err := database.NewPostgreSQLClient(cfg.DatabaseURL, cfg.SupabaseURL, cfg.SupabaseDBPassword)
		if err != nil {
			log.Fatalf("❌ PostgreSQL初期化失敗: %v", err)
		}
		closers = append(closers, pg.Close)
		markersRepo = repoImpl.NewPostgresMarkersRepository(pg)
	default:
		markersRepo = repoImpl.NewHTTPMarkersRepository(cfg.FobiAPIBaseURL, cfg.FobiAPIToken)
	}

	// 観測詳細
	var recordsRepo repository.RecordsRepository
	switch cfg.RecordsBackend {
	case "supabase":
		sc, err := database.NewSupabaseClient(cfg.SupabaseURL, cfg.SupabaseAnonKey)
		if err != nil {
			log.Fatalf("❌ Supabase初期化失敗: %v", err)
		}
		recordsRepo = repoImpl.NewSupabaseRecordsRepository(sc)
	default:
		recordsRepo = repoImpl.NewHTTPRecordsRepository(cfg.FobiAPIBaseURL, cfg.FobiAPIToken)
	}

	geocodeRepo := repoImpl.NewHTTPGeocodeRepository(cfg.GeocodeBaseURL)
	locationName := service.NewLocationNameService(geocodeRepo, cache)

	drilldown := service.DefaultDrilldownOptions()
	drilldown.PageSize = cfg.DrilldownPageSize

	gridUseCase := usecase.NewGridUseCase(markersRepo, cache, service.NewFilterEngine())
	sessionUseCase := usecase.NewSessionUseCase(gridUseCase, recordsRepo, cache, locationName, usecase.SessionOptions{
		TTL:       cfg.SessionTTL,
		Throttle:  cfg.ViewportThrottle,
		Drilldown: drilldown,
	})
	go sessionUseCase.Run(ctx)

	router := handler.NewRouter(
		handler.NewGridHandler(gridUseCase),
		handler.NewSessionHandler(sessionUseCase),
		handler.NewLocationHandler(locationName),
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("🚀 FOBI-Map server starting on :%s (markers=%s, records=%s, cache=%s)",
			cfg.Port, cfg.MarkersBackend, cfg.RecordsBackend, cfg.CacheBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ サーバー起動失敗: %v", err)
		}
	}()

	<-ctx.Done()
	log.Infof("🛑 シャットダウン開始")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("❌ シャットダウン失敗: %v", err)
	}
	log.Infof("✅ シャットダウン完了")
}
