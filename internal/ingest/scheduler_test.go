package ingest

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibestream/vibestream-server/internal/store/analytics"
	"github.com/vibestream/vibestream-server/internal/youtube"
)

type fakeRecorder struct {
	mu   sync.Mutex
	runs []analytics.IngestRun
}

func (f *fakeRecorder) RecordRun(ctx context.Context, run analytics.IngestRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, run)
	return nil
}

type regionSearch struct {
	ids    map[string][]string // keyed by region
	errFor map[string]error
}

func (r *regionSearch) Search(ctx context.Context, params youtube.SearchParams) ([]string, error) {
	if err := r.errFor[params.Region]; err != nil {
		return nil, err
	}
	return r.ids[params.Region], nil
}

func TestSchedulerRecordsEveryRegion(t *testing.T) {
	search := &regionSearch{ids: map[string][]string{
		"IN": {"a"},
		"US": {"b"},
		"GB": {"c"},
	}}
	details := &fakeDetails{items: map[string]youtube.Item{
		"a": detailItem("a"),
		"b": detailItem("b"),
		"c": detailItem("c"),
	}}
	store := newFakeStore()
	recorder := &fakeRecorder{}

	p := newTestPipeline(search, details, store)
	s := NewScheduler(p, recorder, time.Hour, log.New(io.Discard, "", 0))

	ran := s.RunOnce(context.Background())

	require.True(t, ran)
	require.Len(t, recorder.runs, 3)

	regions := make([]string, 0, 3)
	for _, run := range recorder.runs {
		regions = append(regions, run.Region)
		assert.Equal(t, "scheduled", run.Trigger)
		assert.Empty(t, run.Error)
		assert.Equal(t, int32(1), run.Upserted)
	}
	assert.Equal(t, AutoRegions, regions)
	assert.Len(t, store.videos, 3)
}

func TestSchedulerRegionFailureDoesNotBlockOthers(t *testing.T) {
	search := &regionSearch{
		ids:    map[string][]string{"IN": {"a"}, "GB": {"c"}},
		errFor: map[string]error{"US": errors.New("quota exceeded")},
	}
	details := &fakeDetails{items: map[string]youtube.Item{
		"a": detailItem("a"),
		"c": detailItem("c"),
	}}
	store := newFakeStore()
	recorder := &fakeRecorder{}

	p := newTestPipeline(search, details, store)
	s := NewScheduler(p, recorder, time.Hour, log.New(io.Discard, "", 0))

	require.True(t, s.RunOnce(context.Background()))
	require.Len(t, recorder.runs, 3)

	assert.Empty(t, recorder.runs[0].Error)
	assert.NotEmpty(t, recorder.runs[1].Error) // US
	assert.Empty(t, recorder.runs[2].Error)
	assert.Len(t, store.videos, 2)
}

func TestSchedulerSkipsOverlappingRun(t *testing.T) {
	block := make(chan struct{})
	search := &fakeSearch{
		ids:   map[string][]string{},
		block: block,
	}
	store := newFakeStore()
	recorder := &fakeRecorder{}

	p := newTestPipeline(search, &fakeDetails{}, store)
	s := NewScheduler(p, recorder, time.Hour, log.New(io.Discard, "", 0))

	firstDone := make(chan bool)
	go func() {
		firstDone <- s.RunOnce(context.Background())
	}()

	// Wait until the first run is inside its search call.
	require.Eventually(t, func() bool {
		search.mu.Lock()
		defer search.mu.Unlock()
		return search.calls > 0
	}, time.Second, 5*time.Millisecond)

	assert.False(t, s.RunOnce(context.Background()), "overlapping trigger must be skipped")

	close(block)
	assert.True(t, <-firstDone)
}
