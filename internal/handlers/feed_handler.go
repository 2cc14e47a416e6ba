package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vibestream/vibestream-server/internal/store"
	"github.com/vibestream/vibestream-server/internal/utils"
)

const (
	defaultFeedLimit = 20
	maxFeedLimit     = 50
	feedCacheTTL     = 60 * time.Second
)

type FeedHandler struct {
	VideoStore store.VideoStore
	Cache      *redis.Client
	Logger     *log.Logger
}

func NewFeedHandler(videoStore store.VideoStore, cache *redis.Client, logger *log.Logger) *FeedHandler {
	return &FeedHandler{
		VideoStore: videoStore,
		Cache:      cache,
		Logger:     logger,
	}
}

// HandlerGetFeed returns the most recently ingested videos, newest first,
// with an opaque cursor for the next page. Pages are cached briefly in
// redis since the feed only changes when an ingestion run lands.
func (fh *FeedHandler) HandlerGetFeed(w http.ResponseWriter, r *http.Request) {
	limit := defaultFeedLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			fh.Logger.Printf("Error: invalid limit parameter '%s'", limitStr)
			utils.WriteJSON(w, http.StatusBadRequest, utils.Envelope{"message": "Bad Request"})
			return
		}
		limit = parsed
		if limit > maxFeedLimit {
			limit = maxFeedLimit
		}
	}

	cursor := r.URL.Query().Get("cursor")
	cacheKey := fmt.Sprintf("feed:%d:%s", limit, cursor)

	if cached, err := fh.Cache.Get(r.Context(), cacheKey).Bytes(); err == nil {
		writeRawJSON(w, http.StatusOK, cached)
		return
	} else if err != redis.Nil {
		fh.Logger.Println("Feed cache read failed:", err)
	}

	items, nextCursor, err := fh.VideoStore.ListRecent(r.Context(), limit, cursor)
	if err != nil {
		if errors.Is(err, store.ErrBadCursor) {
			fh.Logger.Println("Error: invalid cursor parameter:", err)
			utils.WriteJSON(w, http.StatusBadRequest, utils.Envelope{"message": "Bad Request"})
			return
		}
		fh.Logger.Println("Error getting recent videos from store:", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.Envelope{"message": "Internal Server Error"})
		return
	}

	response := store.FeedResponse{Items: items}
	if nextCursor != "" {
		response.NextCursor = &nextCursor
	}

	payload, err := json.Marshal(utils.Envelope{"data": response})
	if err != nil {
		fh.Logger.Println("Error marshaling feed response:", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.Envelope{"message": "Internal Server Error"})
		return
	}

	if err := fh.Cache.Set(r.Context(), cacheKey, payload, feedCacheTTL).Err(); err != nil {
		fh.Logger.Println("Feed cache write failed:", err)
	}

	writeRawJSON(w, http.StatusOK, payload)
}

func writeRawJSON(w http.ResponseWriter, status int, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(payload)
}
