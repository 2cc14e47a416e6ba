package app

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/redis/go-redis/v9"

	"github.com/vibestream/vibestream-server/internal/auth"
	"github.com/vibestream/vibestream-server/internal/handlers"
	"github.com/vibestream/vibestream-server/internal/ingest"
	"github.com/vibestream/vibestream-server/internal/middlewares"
	"github.com/vibestream/vibestream-server/internal/store"
	"github.com/vibestream/vibestream-server/internal/store/analytics"
	"github.com/vibestream/vibestream-server/internal/youtube"
	"github.com/vibestream/vibestream-server/migrations"
)

var (
	adminAuthKey       = securecookie.GenerateRandomKey(64)
	adminEncryptionKey = securecookie.GenerateRandomKey(32)
)

type Application struct {
	Logger            *log.Logger
	AdminLogger       *log.Logger
	db                *sql.DB
	CHConn            driver.Conn
	RedisClient       *redis.Client
	SessionStore      *sessions.CookieStore
	Scheduler         *ingest.Scheduler
	MiddlewareHandler *middlewares.MiddlewareHandler
	AdminAuth         *auth.AdminAuth
	FeedHandler       *handlers.FeedHandler
	IngestHandler     *handlers.IngestHandler
	AdminHandler      *handlers.AdminHandler
}

func NewApplication(ctx context.Context) (*Application, error) {
	logger := log.New(os.Stdout, "LOGGING: ", log.Ldate|log.Ltime)
	adminLogger := log.New(os.Stdout, "ADMIN LOGGING: ", log.Ldate|log.Ltime)

	pgDB, err := store.ConnectPGDB()
	if err != nil {
		logger.Println("Error connecting to db")
		return nil, err
	}

	err = store.MigrateFS(pgDB, migrations.FS, "db")
	if err != nil {
		logger.Println("PANIC: Postgresql migration failed, exiting...")
		return nil, err
	}

	chConn, err := store.ConnectClickhouse()
	if err != nil {
		logger.Println("Error connecting to clickhouse")
		return nil, err
	}

	err = store.MigrateClickhouse()
	if err != nil {
		logger.Println("PANIC: Clickhouse migration failed, exiting...")
		return nil, err
	}

	redisClient, err := store.ConnectRedis()
	if err != nil {
		logger.Println("Error connecting to redis")
		return nil, err
	}

	ytClient, err := youtube.NewClient(ctx, os.Getenv("YOUTUBE_API_KEY"), logger)
	if err != nil {
		logger.Println("Error creating youtube client")
		return nil, err
	}

	env := os.Getenv("ENV")
	adminOptions := &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
	}

	if env == "production" {
		adminOptions.Secure = true
		adminOptions.SameSite = http.SameSiteNoneMode
	} else {
		adminOptions.Secure = false
		adminOptions.SameSite = http.SameSiteLaxMode
	}

	adminSessionStore := sessions.NewCookieStore(adminAuthKey, adminEncryptionKey)
	adminSessionStore.Options = adminOptions

	videoStore := store.NewPostgresVideoStore(pgDB)
	runStore := analytics.NewClickhouseRunStore(chConn)

	pipeline := ingest.NewPipeline(ytClient, ytClient, videoStore, logger)

	interval := ingest.DefaultInterval
	if raw := os.Getenv("FETCH_INTERVAL"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			logger.Printf("Warning: invalid FETCH_INTERVAL '%s', using default", raw)
		} else {
			interval = parsed
		}
	}
	scheduler := ingest.NewScheduler(pipeline, runStore, interval, logger)

	adminAuth := auth.NewAdminAuth(adminLogger, adminSessionStore)
	feedHandler := handlers.NewFeedHandler(videoStore, redisClient, logger)
	ingestHandler := handlers.NewIngestHandler(pipeline, runStore, logger)
	adminHandler := handlers.NewAdminHandler(runStore, pgDB, chConn, redisClient, adminLogger)

	middlewareHandler := middlewares.NewMiddlewareHandler(logger, adminLogger, adminSessionStore)

	app := &Application{
		Logger:            logger,
		AdminLogger:       adminLogger,
		db:                pgDB,
		CHConn:            chConn,
		RedisClient:       redisClient,
		SessionStore:      adminSessionStore,
		Scheduler:         scheduler,
		MiddlewareHandler: middlewareHandler,
		AdminAuth:         adminAuth,
		FeedHandler:       feedHandler,
		IngestHandler:     ingestHandler,
		AdminHandler:      adminHandler,
	}

	return app, nil
}

func (a *Application) Close() {
	if err := a.db.Close(); err != nil {
		a.Logger.Println("Error closing postgres:", err)
	}
	if err := a.CHConn.Close(); err != nil {
		a.Logger.Println("Error closing clickhouse:", err)
	}
	if err := a.RedisClient.Close(); err != nil {
		a.Logger.Println("Error closing redis:", err)
	}
}
