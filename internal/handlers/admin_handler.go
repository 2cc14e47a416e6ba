package handlers

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/redis/go-redis/v9"

	"github.com/vibestream/vibestream-server/internal/store/analytics"
	"github.com/vibestream/vibestream-server/internal/utils"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100
	pingTimeout      = 2 * time.Second
)

// AdminHandler exposes the session-gated diagnostics surface: the
// ingestion run log and store health pings.
type AdminHandler struct {
	RunStore analytics.RunStore
	DB       *sql.DB
	CHConn   driver.Conn
	Cache    *redis.Client
	Logger   *log.Logger
}

func NewAdminHandler(runStore analytics.RunStore, db *sql.DB, chConn driver.Conn, cache *redis.Client, logger *log.Logger) *AdminHandler {
	return &AdminHandler{
		RunStore: runStore,
		DB:       db,
		CHConn:   chConn,
		Cache:    cache,
		Logger:   logger,
	}
}

func (ah *AdminHandler) HandlerGetRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			ah.Logger.Printf("Error: invalid limit parameter '%s'", limitStr)
			utils.WriteJSON(w, http.StatusBadRequest, utils.Envelope{"message": "Bad Request"})
			return
		}
		limit = parsed
		if limit > maxRunsLimit {
			limit = maxRunsLimit
		}
	}

	runs, err := ah.RunStore.RecentRuns(r.Context(), limit)
	if err != nil {
		ah.Logger.Println("Error fetching recent ingest runs:", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.Envelope{"message": "Internal Server Error"})
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.Envelope{"data": runs})
}

func (ah *AdminHandler) HandlerGetHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	status := utils.Envelope{
		"postgres":   pingStatus(ah.DB.PingContext(ctx)),
		"clickhouse": pingStatus(ah.CHConn.Ping(ctx)),
		"redis":      pingStatus(ah.Cache.Ping(ctx).Err()),
	}

	utils.WriteJSON(w, http.StatusOK, status)
}

func pingStatus(err error) string {
	if err != nil {
		return err.Error()
	}
	return "ok"
}
