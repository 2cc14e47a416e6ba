package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibestream/vibestream-server/internal/models"
	"github.com/vibestream/vibestream-server/internal/youtube"
)

type fakeSearch struct {
	ids    map[string][]string // keyed by query string
	errFor map[string]error
	block  chan struct{} // when set, Search waits until closed
	mu     sync.Mutex
	calls  int
}

func (f *fakeSearch) Search(ctx context.Context, params youtube.SearchParams) ([]string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.block != nil {
		<-f.block
	}
	if err := f.errFor[params.Query]; err != nil {
		return nil, err
	}
	return f.ids[params.Query], nil
}

type fakeDetails struct {
	items  map[string]youtube.Item // keyed by id, missing ids are dropped
	err    error
	mu     sync.Mutex
	chunks [][]string
}

func (f *fakeDetails) Details(ctx context.Context, ids []string) ([]youtube.Item, error) {
	f.mu.Lock()
	f.chunks = append(f.chunks, append([]string(nil), ids...))
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	var items []youtube.Item
	for _, id := range ids {
		if item, ok := f.items[id]; ok {
			items = append(items, item)
		}
	}
	return items, nil
}

type fakeStore struct {
	mu      sync.Mutex
	videos  map[string]models.Video
	failIDs map[string]bool
	writes  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{videos: make(map[string]models.Video), failIDs: make(map[string]bool)}
}

func (f *fakeStore) Upsert(ctx context.Context, video models.Video) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.writes++
	if f.failIDs[video.Youtube_ID] {
		return errors.New("write refused")
	}
	f.videos[video.Youtube_ID] = video
	return nil
}

func detailItem(id string) youtube.Item {
	return youtube.Item{ID: id, Title: "title " + id, Duration: "PT45S"}
}

func newTestPipeline(search SearchSource, details DetailSource, store VideoUpserter) *Pipeline {
	p := NewPipeline(search, details, store, log.New(io.Discard, "", 0))
	p.now = func() time.Time { return testNow }
	return p
}

func TestPipelineEndToEnd(t *testing.T) {
	// Search yields a duplicate id; only two distinct records may come out.
	search := &fakeSearch{ids: map[string][]string{"cats": {"a", "b", "a"}}}
	details := &fakeDetails{items: map[string]youtube.Item{
		"a": detailItem("a"),
		"b": detailItem("b"),
	}}
	store := newFakeStore()

	p := newTestPipeline(search, details, store)
	result, err := p.Run(context.Background(), ShortsQueries([]string{"cats"}, "IN", 25))

	require.NoError(t, err)
	assert.Equal(t, 2, result.Upserted)
	assert.Equal(t, 0, result.Failed)
	require.Len(t, result.Records, 2)
	assert.Equal(t, "a", result.Records[0].Youtube_ID)
	assert.Equal(t, "b", result.Records[1].Youtube_ID)
	assert.Len(t, store.videos, 2)
}

func TestPipelinePartialHydration(t *testing.T) {
	// Details knows only 3 of the 5 searched ids; the rest vanish quietly.
	search := &fakeSearch{ids: map[string][]string{"q": {"a", "b", "c", "d", "e"}}}
	details := &fakeDetails{items: map[string]youtube.Item{
		"a": detailItem("a"),
		"c": detailItem("c"),
		"e": detailItem("e"),
	}}
	store := newFakeStore()

	p := newTestPipeline(search, details, store)
	result, err := p.Run(context.Background(), ShortsQueries([]string{"q"}, "IN", 25))

	require.NoError(t, err)
	assert.Equal(t, 5, result.Searched)
	assert.Equal(t, 3, result.Hydrated)
	assert.Equal(t, 3, result.Upserted)
	assert.Len(t, store.videos, 3)
}

func TestPipelineSearchFailureIsContained(t *testing.T) {
	search := &fakeSearch{
		ids:    map[string][]string{"good": {"a"}},
		errFor: map[string]error{"bad": errors.New("quota exceeded")},
	}
	details := &fakeDetails{items: map[string]youtube.Item{"a": detailItem("a")}}
	store := newFakeStore()

	p := newTestPipeline(search, details, store)
	result, err := p.Run(context.Background(), ShortsQueries([]string{"bad", "good"}, "IN", 25))

	require.NoError(t, err)
	assert.Equal(t, 1, result.Upserted)
}

func TestPipelineAllSearchesFailed(t *testing.T) {
	search := &fakeSearch{errFor: map[string]error{
		"one": errors.New("quota exceeded"),
		"two": errors.New("quota exceeded"),
	}}
	store := newFakeStore()

	p := newTestPipeline(search, &fakeDetails{}, store)
	_, err := p.Run(context.Background(), ShortsQueries([]string{"one", "two"}, "IN", 25))

	require.Error(t, err)
	assert.Equal(t, 0, store.writes)
}

func TestPipelineNormalizationFailureIsContained(t *testing.T) {
	search := &fakeSearch{ids: map[string][]string{"q": {"a", "b"}}}
	details := &fakeDetails{items: map[string]youtube.Item{
		"a": {Title: "detail payload without any id"},
		"b": detailItem("b"),
	}}
	store := newFakeStore()

	p := newTestPipeline(search, details, store)
	result, err := p.Run(context.Background(), ShortsQueries([]string{"q"}, "IN", 25))

	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Upserted)
}

func TestPipelineStoreFailureIsContained(t *testing.T) {
	search := &fakeSearch{ids: map[string][]string{"q": {"a", "b", "c"}}}
	details := &fakeDetails{items: map[string]youtube.Item{
		"a": detailItem("a"),
		"b": detailItem("b"),
		"c": detailItem("c"),
	}}
	store := newFakeStore()
	store.failIDs["b"] = true

	p := newTestPipeline(search, details, store)
	result, err := p.Run(context.Background(), ShortsQueries([]string{"q"}, "IN", 25))

	require.NoError(t, err)
	assert.Equal(t, 2, result.Upserted)
	assert.Equal(t, 1, result.Failed)
	assert.Len(t, store.videos, 2)
}

func TestPipelineIdempotent(t *testing.T) {
	search := &fakeSearch{ids: map[string][]string{"q": {"a", "b"}}}
	details := &fakeDetails{items: map[string]youtube.Item{
		"a": detailItem("a"),
		"b": detailItem("b"),
	}}
	store := newFakeStore()

	p := newTestPipeline(search, details, store)
	queries := ShortsQueries([]string{"q"}, "IN", 25)

	_, err := p.Run(context.Background(), queries)
	require.NoError(t, err)
	first := make(map[string]models.Video, len(store.videos))
	for id, v := range store.videos {
		first[id] = v
	}

	_, err = p.Run(context.Background(), queries)
	require.NoError(t, err)

	assert.Equal(t, first, store.videos)
}

func TestPipelineChunksDetailRequests(t *testing.T) {
	var ids []string
	items := make(map[string]youtube.Item)
	for i := 0; i < 120; i++ {
		id := fmt.Sprintf("v%d", i)
		ids = append(ids, id)
		items[id] = detailItem(id)
	}

	search := &fakeSearch{ids: map[string][]string{"q": ids}}
	details := &fakeDetails{items: items}
	store := newFakeStore()

	p := newTestPipeline(search, details, store)
	p.batchCap = 0 // no cap, every hydrated record should land

	result, err := p.Run(context.Background(), ShortsQueries([]string{"q"}, "IN", 25))

	require.NoError(t, err)
	require.Len(t, details.chunks, 3)
	assert.Len(t, details.chunks[0], 50)
	assert.Len(t, details.chunks[1], 50)
	assert.Len(t, details.chunks[2], 20)
	assert.Equal(t, 120, result.Upserted)
}

func TestPipelineDetailFailureIsContained(t *testing.T) {
	search := &fakeSearch{ids: map[string][]string{"q": {"a", "b"}}}
	details := &fakeDetails{err: errors.New("backend error")}
	store := newFakeStore()

	p := newTestPipeline(search, details, store)
	result, err := p.Run(context.Background(), ShortsQueries([]string{"q"}, "IN", 25))

	require.NoError(t, err)
	assert.Equal(t, 0, result.Upserted)
	assert.Equal(t, 0, store.writes)
}

func TestPipelineBatchCap(t *testing.T) {
	var ids []string
	items := make(map[string]youtube.Item)
	for i := 0; i < 40; i++ {
		id := fmt.Sprintf("v%d", i)
		ids = append(ids, id)
		items[id] = detailItem(id)
	}

	search := &fakeSearch{ids: map[string][]string{"q": ids}}
	details := &fakeDetails{items: items}
	store := newFakeStore()

	p := newTestPipeline(search, details, store)
	result, err := p.Run(context.Background(), ShortsQueries([]string{"q"}, "IN", 25))

	require.NoError(t, err)
	assert.Equal(t, DefaultBatchCap, result.Upserted)
	assert.Len(t, store.videos, DefaultBatchCap)
}
