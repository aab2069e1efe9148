package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/gravpool/internal/api"
	"github.com/playmatatu/gravpool/internal/config"
	"github.com/playmatatu/gravpool/internal/database"
	"github.com/playmatatu/gravpool/internal/game"
	"github.com/playmatatu/gravpool/internal/logger"
	"github.com/playmatatu/gravpool/internal/migrations"
	rediskit "github.com/playmatatu/gravpool/internal/redis"
	"github.com/playmatatu/gravpool/internal/ws"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Environment)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	tuning, err := config.LoadTuning(cfg.TuningFile)
	if err != nil {
		log.Fatal("failed to load tuning", zap.String("file", cfg.TuningFile), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Shot log database
	var db *sqlx.DB
	if cfg.ShotLogEnabled {
		if cfg.MigrateOnStart {
			log.Info("running migrations", zap.String("dir", cfg.MigrationsDir))
			if err := migrations.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir, log.Named("migrate")); err != nil {
				log.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		db, err = database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal("failed to connect to database", zap.Error(err))
		}
		defer db.Close()
	} else {
		log.Info("shot log disabled")
	}

	// Frame fan-out
	var rdb *redis.Client
	if cfg.RedisEnabled {
		rdb, err = rediskit.Connect(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
	} else {
		log.Info("redis disabled, frames are delivered in-process")
	}

	mm := game.NewMatchManager(db, rdb, cfg, tuning, log.Named("matches"))
	hub := ws.NewHub(log.Named("ws"))
	if rdb == nil {
		mm.OnFrame(func(payload []byte) {
			if err := hub.BroadcastFrame(payload); err != nil {
				log.Warn("dropped local frame", zap.Error(err))
			}
		})
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	api.SetupRoutes(router, mm, hub, cfg, tuning, log.Named("api"))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting gravpool server", zap.String("port", cfg.Port), zap.Int("tick_rate", cfg.TickRate))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return mm.RunTickWorker(gctx) })
	if rdb != nil {
		g.Go(func() error {
			return ws.RunFrameSubscriber(gctx, rdb, cfg.FrameChannel, hub, log.Named("frames"))
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", zap.Error(err))
		os.Exit(1)
	}
	log.Info("server stopped")
}
