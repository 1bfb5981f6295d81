package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizrave/config"
	"quizrave/handlers"
	"quizrave/logger"
	"quizrave/middleware"
	"quizrave/routes"
	"quizrave/services"
	"quizrave/store"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", "driver", cfg.DBDriver, "error", err)
	}
	entityStore := store.NewGormStore(db)

	opts := []services.AttemptOption{services.WithLockWait(cfg.LockWait)}
	if redisClient := config.InitRedis(cfg); redisClient != nil {
		defer redisClient.Close()
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatal("Failed to connect to redis", "error", err)
		}
		opts = append(opts, services.WithLocker(services.NewRedisLocker(redisClient, cfg.LockTTL)))
		log.Info("using redis attempt locks", "addr", redisClient.Options().Addr)
	}

	quizService := services.NewQuizService(entityStore, log)
	attemptService := services.NewAttemptService(entityStore, log, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		// a second signal kills the process
		stop()
	}()

	hub := services.NewHub(attemptService, log)
	go hub.Run(ctx)
	attemptService.UseNotifier(hub)

	quizHandler := handlers.NewQuizHandler(quizService, log)
	attemptHandler := handlers.NewAttemptHandler(attemptService, log)
	liveHandler := handlers.NewLiveHandler(attemptService, hub, cfg.CORSOrigins, log)

	if cfg.LogMode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.CORS(cfg.CORSOrigins))

	routes.SetupRoutes(router, quizHandler, attemptHandler, liveHandler, cfg.JWTSecret)

	addr := fmt.Sprintf("%s:%s", cfg.BindAddress, cfg.Port)
	log.Info("Server starting", "addr", addr, "db", cfg.DBDriver)
	srv := &http.Server{Addr: addr, Handler: router}
	if err := serve(ctx, srv, log); err != nil {
		log.Fatal("Server stopped", "error", err)
	}
	log.Info("Server stopped")
}

// serve runs srv until it fails or ctx is done, then drains in-flight
// requests. Hijacked websocket connections are closed by the hub.
func serve(ctx context.Context, srv *http.Server, log *logger.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "listen")
	case <-ctx.Done():
	}

	log.Info("Shutting down", "timeout", shutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Wrap(srv.Shutdown(shutdownCtx), "shutdown")
}
