package ingest

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vibestream/vibestream-server/internal/models"
	"github.com/vibestream/vibestream-server/internal/youtube"
)

const (
	// The Data API rejects more than 50 ids per videos.list call.
	detailChunkSize  = 50
	writeConcurrency = 8

	trendingWindow = 48 * time.Hour
	maxQueryLimit  = 25
)

type SearchSource interface {
	Search(ctx context.Context, params youtube.SearchParams) ([]string, error)
}

type DetailSource interface {
	Details(ctx context.Context, ids []string) ([]youtube.Item, error)
}

type VideoUpserter interface {
	Upsert(ctx context.Context, video models.Video) error
}

// RunResult reports what one pipeline run did. Upserted is the number the
// on-demand endpoints return to the caller.
type RunResult struct {
	Searched int
	Hydrated int
	Skipped  int
	Upserted int
	Failed   int
	Records  []models.Video
}

type Pipeline struct {
	search   SearchSource
	details  DetailSource
	store    VideoUpserter
	logger   *log.Logger
	batchCap int
	now      func() time.Time
}

func NewPipeline(search SearchSource, details DetailSource, store VideoUpserter, logger *log.Logger) *Pipeline {
	return &Pipeline{
		search:   search,
		details:  details,
		store:    store,
		logger:   logger,
		batchCap: DefaultBatchCap,
		now:      time.Now,
	}
}

// Run executes one ingestion pass: search every query, hydrate the
// collected ids in chunks, normalize, dedupe, then upsert with bounded
// concurrency. Single-query and single-item failures are logged and
// contained; the run only errors when every search failed.
func (p *Pipeline) Run(ctx context.Context, queries []youtube.SearchParams) (RunResult, error) {
	var result RunResult

	ids := make([]string, 0, len(queries)*maxQueryLimit)
	failedQueries := 0
	var lastSearchErr error

	for _, query := range queries {
		found, err := p.search.Search(ctx, query)
		if err != nil {
			p.logger.Printf("Search failed for query %q region %s: %v", query.Query, query.Region, err)
			failedQueries++
			lastSearchErr = err
			continue
		}
		ids = append(ids, found...)
	}
	result.Searched = len(ids)

	if len(queries) > 0 && failedQueries == len(queries) {
		return result, fmt.Errorf("all %d searches failed: %w", failedQueries, lastSearchErr)
	}

	records := p.hydrate(ctx, ids, &result)
	result.Records = Dedupe(records, p.batchCap)

	p.upsertAll(ctx, result.Records, &result)
	return result, nil
}

// hydrate fetches full details for the candidate ids. Ids YouTube no longer
// knows are simply absent from the response and get dropped here.
func (p *Pipeline) hydrate(ctx context.Context, ids []string, result *RunResult) []models.Video {
	records := make([]models.Video, 0, len(ids))

	for start := 0; start < len(ids); start += detailChunkSize {
		end := start + detailChunkSize
		if end > len(ids) {
			end = len(ids)
		}

		items, err := p.details.Details(ctx, ids[start:end])
		if err != nil {
			p.logger.Printf("Detail fetch failed for %d ids: %v", end-start, err)
			continue
		}
		result.Hydrated += len(items)

		now := p.now()
		for _, item := range items {
			record, err := Normalize(item, now)
			if err != nil {
				p.logger.Printf("Skipping item %q: %v", item.ID, err)
				result.Skipped++
				continue
			}
			records = append(records, record)
		}
	}

	return records
}

// upsertAll writes the batch best-effort: a failed write is logged with its
// id and does not stop the rest. All writes have settled when it returns.
func (p *Pipeline) upsertAll(ctx context.Context, records []models.Video, result *RunResult) {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(writeConcurrency)

	for _, record := range records {
		record := record
		g.Go(func() error {
			err := p.store.Upsert(gctx, record)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				p.logger.Printf("Upsert failed for video %s: %v", record.Youtube_ID, err)
				result.Failed++
				return nil
			}
			result.Upserted++
			return nil
		})
	}

	g.Wait()
}

// ShortsQueries builds one search per keyword, newest first, the shape the
// manual /fetch/shorts trigger uses.
func ShortsQueries(keywords []string, region string, limit int64) []youtube.SearchParams {
	if limit < 1 || limit > maxQueryLimit {
		limit = maxQueryLimit
	}

	queries := make([]youtube.SearchParams, 0, len(keywords))
	for _, keyword := range keywords {
		queries = append(queries, youtube.SearchParams{
			Query:      keyword,
			Region:     region,
			Order:      "date",
			MaxResults: limit,
		})
	}
	return queries
}

// TrendingQuery builds the single most-viewed-in-48h search behind /trending.
func TrendingQuery(region string, limit int64, now time.Time) youtube.SearchParams {
	return youtube.SearchParams{
		Region:         region,
		Order:          "viewCount",
		MaxResults:     limit,
		PublishedAfter: now.Add(-trendingWindow),
	}
}
