package ingest

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vibestream/vibestream-server/internal/store/analytics"
)

// DefaultInterval is how often the scheduled fetch runs.
const DefaultInterval = 6 * time.Hour

// AutoKeywords is the fixed keyword set for scheduled runs. The keywords
// are joined into a single OR-style query per region, as the manual
// service always did.
var AutoKeywords = []string{
	"trending shorts",
	"viral shorts",
	"music shorts",
	"funny shorts",
	"sports shorts",
	"gaming shorts",
	"tech shorts",
	"education shorts",
	"news shorts",
}

// AutoRegions is the ordered region list for scheduled runs.
var AutoRegions = []string{"IN", "US", "GB"}

type RunRecorder interface {
	RecordRun(ctx context.Context, run analytics.IngestRun) error
}

// Scheduler triggers the pipeline on a fixed interval, one region at a
// time so a quota failure in one region cannot starve the others.
type Scheduler struct {
	pipeline *Pipeline
	runs     RunRecorder
	logger   *log.Logger
	interval time.Duration
	regions  []string
	keywords []string

	running sync.Mutex
	stop    chan struct{}
	done    chan struct{}
}

func NewScheduler(pipeline *Pipeline, runs RunRecorder, interval time.Duration, logger *log.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		pipeline: pipeline,
		runs:     runs,
		logger:   logger,
		interval: interval,
		regions:  AutoRegions,
		keywords: AutoKeywords,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *Scheduler) Start() {
	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Println("Scheduler started, interval", s.interval)
		for {
			select {
			case <-ticker.C:
				s.RunOnce(context.Background())
			case <-s.stop:
				return
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
	s.logger.Println("Scheduler stopped")
}

// RunOnce walks the region list sequentially. It reports false without
// doing anything when a previous scheduled run is still going: overlapping
// runs would double quota use for nothing, a single run is already
// idempotent after deduplication.
func (s *Scheduler) RunOnce(ctx context.Context) bool {
	if !s.running.TryLock() {
		s.logger.Println("Previous scheduled run still in progress, skipping trigger")
		return false
	}
	defer s.running.Unlock()

	query := strings.Join(s.keywords, " | ")

	for _, region := range s.regions {
		started := time.Now()
		queries := ShortsQueries([]string{query}, region, maxQueryLimit)

		result, err := s.pipeline.Run(ctx, queries)
		if err != nil {
			s.logger.Printf("Scheduled run failed for region %s: %v", region, err)
		} else {
			s.logger.Printf("Scheduled run region=%s upserted=%d failed=%d", region, result.Upserted, result.Failed)
		}

		s.record(ctx, region, started, result, err)
	}

	return true
}

func (s *Scheduler) record(ctx context.Context, region string, started time.Time, result RunResult, runErr error) {
	if s.runs == nil {
		return
	}

	run := analytics.IngestRun{
		ID:          uuid.New(),
		Trigger:     "scheduled",
		Region:      region,
		Keywords:    s.keywords,
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

	if err := s.runs.RecordRun(ctx, run); err != nil {
		s.logger.Println("Failed to record scheduled run:", err)
	}
}
