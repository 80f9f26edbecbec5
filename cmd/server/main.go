package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"weatherfav/internal/auth"
	"weatherfav/internal/config"
	apphttp "weatherfav/internal/http"
	"weatherfav/internal/repository"
	"weatherfav/internal/repository/postgres"
	"weatherfav/internal/repository/sqlite"
	"weatherfav/internal/service"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warnf("unknown log level %q, keeping %s", cfg.Log.Level, logger.GetLevel())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, userRepo, favoriteRepo, err := openStores(ctx, cfg)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	if err := userRepo.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}
	if err := favoriteRepo.Init(ctx); err != nil {
		logger.Fatalf("init favorite repository: %v", err)
	}

	sessionBackend, closeSessions, err := buildSessionBackend(cfg, logger)
	if err != nil {
		logger.Fatalf("setup session store: %v", err)
	}
	defer closeSessions()

	sessions := auth.NewSessionStore(sessionBackend, cfg.Session.Lifetime)
	cookies, err := auth.NewCookieCodec(cfg.Auth.SessionSecret, cfg.Session.Lifetime, cfg.Session.SecureCookie)
	if err != nil {
		logger.Fatalf("setup session cookies: %v", err)
	}
	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret)
	if err != nil {
		logger.Fatalf("setup token manager: %v", err)
	}

	userService, err := service.NewUserService(userRepo, auth.NewBcryptHasher(), tokens, sessions, logger)
	if err != nil {
		logger.Fatalf("setup user service: %v", err)
	}
	favoriteService := service.NewFavoriteService(favoriteRepo)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(apphttp.RequestLogger(logger))
	handler := apphttp.NewHandler(
		userService,
		favoriteService,
		apphttp.Strategies{
			Bearer:  auth.NewBearerStrategy(tokens, userRepo),
			Session: auth.NewSessionStrategy(sessions, cookies, userRepo),
			Cookies: cookies,
		},
		logger,
	)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

func openStores(ctx context.Context, cfg config.Config) (*sql.DB, repository.UserRepository, repository.FavoriteRepository, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		db, err := postgres.Open(ctx, cfg.PostgresDSN(), postgres.PoolConfig{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		return db, postgres.NewUserRepository(db), postgres.NewFavoriteRepository(db), nil
	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		return db, sqlite.NewUserRepository(db), sqlite.NewFavoriteRepository(db), nil
	default:
		return nil, nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

func buildSessionBackend(cfg config.Config, logger *logrus.Logger) (scs.Store, func(), error) {
	if cfg.Session.Store != config.SessionStoreSQLite {
		store := auth.NewMemoryBackend()
		logger.Info("using in-memory session store")
		return store, store.StopCleanup, nil
	}

	db, err := sqlite.Open(cfg.Session.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open session db: %w", err)
	}
	store, err := auth.NewSQLiteBackend(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	logger.Infof("using sqlite session store at %s", cfg.Session.Path)
	return store, func() {
		store.StopCleanup()
		db.Close()
	}, nil
}
