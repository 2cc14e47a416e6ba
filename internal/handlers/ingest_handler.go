package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vibestream/vibestream-server/internal/ingest"
	"github.com/vibestream/vibestream-server/internal/store/analytics"
	"github.com/vibestream/vibestream-server/internal/utils"
	"github.com/vibestream/vibestream-server/internal/youtube"
)

const (
	defaultRegion        = "IN"
	defaultTrendingLimit = 20
	maxTrendingLimit     = 50
	defaultManualLimit   = 25
)

// ManualKeywords is the default keyword set for POST /fetch/shorts when
// the request body does not provide one.
var ManualKeywords = []string{
	"trending shorts",
	"funny shorts",
	"tech shorts",
	"news shorts",
	"bollywood shorts",
}

type IngestHandler struct {
	Pipeline *ingest.Pipeline
	RunStore analytics.RunStore
	Logger   *log.Logger
}

func NewIngestHandler(pipeline *ingest.Pipeline, runStore analytics.RunStore, logger *log.Logger) *IngestHandler {
	return &IngestHandler{
		Pipeline: pipeline,
		RunStore: runStore,
		Logger:   logger,
	}
}

// HandlerGetTrending ingests the most viewed shorts of the last 48 hours
// for a region and returns them.
func (ih *IngestHandler) HandlerGetTrending(w http.ResponseWriter, r *http.Request) {
	region := strings.ToUpper(r.URL.Query().Get("region"))
	if region == "" {
		region = defaultRegion
	}

	limit := int64(defaultTrendingLimit)
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.ParseInt(limitStr, 10, 64)
		if err != nil || parsed < 1 {
			ih.Logger.Printf("Error: invalid limit parameter '%s'", limitStr)
			utils.WriteJSON(w, http.StatusBadRequest, utils.Envelope{"message": "Bad Request"})
			return
		}
		limit = parsed
		if limit > maxTrendingLimit {
			limit = maxTrendingLimit
		}
	}

	started := time.Now()
	query := ingest.TrendingQuery(region, limit, started)

	result, err := ih.Pipeline.Run(r.Context(), []youtube.SearchParams{query})
	ih.recordRun(r.Context(), "trending", region, nil, started, result, err)
	if err != nil {
		ih.Logger.Println("Trending ingest failed:", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.Envelope{"message": "Internal Server Error"})
		return
	}

	ih.Logger.Printf("Trending ingest region=%s upserted=%d", region, result.Upserted)
	utils.WriteJSON(w, http.StatusOK, utils.Envelope{"items": result.Records})
}

// HandlerFetchShorts runs a manual keyword ingest. Every field of the
// body is optional; an empty body uses the default keyword set.
func (ih *IngestHandler) HandlerFetchShorts(w http.ResponseWriter, r *http.Request) {
	type Request struct {
		Keywords []string `json:"keywords"`
		Region   string   `json:"region"`
		Limit    int64    `json:"limit"`
	}

	var req Request
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		ih.Logger.Println("Error decoding request body:", err)
		utils.WriteJSON(w, http.StatusBadRequest, utils.Envelope{"message": "Bad Request"})
		return
	}

	if len(req.Keywords) == 0 {
		req.Keywords = ManualKeywords
	}
	if req.Region == "" {
		req.Region = defaultRegion
	}
	req.Region = strings.ToUpper(req.Region)
	if req.Limit < 1 {
		req.Limit = defaultManualLimit
	}

	ih.Logger.Println("Manual fetch started with keywords:", req.Keywords)

	started := time.Now()
	queries := ingest.ShortsQueries(req.Keywords, req.Region, req.Limit)

	result, err := ih.Pipeline.Run(r.Context(), queries)
	ih.recordRun(r.Context(), "manual", req.Region, req.Keywords, started, result, err)
	if err != nil {
		ih.Logger.Println("Manual fetch failed:", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.Envelope{"message": "Internal Server Error"})
		return
	}

	ih.Logger.Printf("Manual fetch completed. Added: %d videos", result.Upserted)
	utils.WriteJSON(w, http.StatusOK, utils.Envelope{"added": result.Upserted})
}

func (ih *IngestHandler) recordRun(ctx context.Context, trigger, region string, keywords []string, started time.Time, result ingest.RunResult, runErr error) {
	if ih.RunStore == nil {
		return
	}

	run := analytics.IngestRun{
		ID:          uuid.New(),
		Trigger:     trigger,
		Region:      region,
		Keywords:    keywords,
		Searched:    int32(result.Searched),
		Hydrated:    int32(result.Hydrated),
		Upserted:    int32(result.Upserted),
		Failed:      int32(result.Failed),
		Started_At:  started,
		Duration_MS: time.Since(started).Milliseconds(),
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}

	if err := ih.RunStore.RecordRun(ctx, run); err != nil {
		ih.Logger.Println("Failed to record ingest run:", err)
	}
}
