package youtube

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"
)

const callTimeout = 30 * time.Second

// Item is the loose shape of one hydrated video from the Data API. All
// fields are optional; counts stay raw strings so "" (not reported) is
// distinguishable from "0". The Normalizer converts this into the strict
// models.Video shape, nothing downstream of it should see an Item.
type Item struct {
	ID           string
	SearchID     string
	Title        string
	Description  string
	ChannelTitle string
	PublishedAt  string
	Thumbnails   map[string]string
	ViewCount    string
	LikeCount    string
	Duration     string
}

type SearchParams struct {
	Query          string
	Region         string
	Order          string
	Duration       string // videoDuration filter, defaults to "short"
	MaxResults     int64
	PublishedAfter time.Time
}

type Client struct {
	service *ytapi.Service
	Logger  *log.Logger
}

// NewClient builds a Data API client from an API key. A missing key is a
// configuration error, not something a later retry can fix.
func NewClient(ctx context.Context, apiKey string, logger *log.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("youtube api key is required")
	}

	httpClient := &http.Client{Timeout: callTimeout}
	service, err := ytapi.NewService(ctx, option.WithAPIKey(apiKey), option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube service: %w", err)
	}

	return &Client{service: service, Logger: logger}, nil
}

// Search returns candidate short-form video ids for one query. Items
// without a video id (channels, playlists) are skipped.
func (c *Client) Search(ctx context.Context, params SearchParams) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	duration := params.Duration
	if duration == "" {
		duration = "short"
	}

	call := c.service.Search.List([]string{"snippet"}).
		Type("video").
		VideoDuration(duration).
		RegionCode(params.Region).
		MaxResults(params.MaxResults).
		Context(ctx)

	if params.Query != "" {
		call = call.Q(params.Query)
	}
	if params.Order != "" {
		call = call.Order(params.Order)
	}
	if !params.PublishedAfter.IsZero() {
		call = call.PublishedAfter(params.PublishedAfter.UTC().Format(time.RFC3339))
	}

	response, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("youtube search failed: %w", err)
	}

	ids := make([]string, 0, len(response.Items))
	for _, item := range response.Items {
		if item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		ids = append(ids, item.Id.VideoId)
	}

	c.Logger.Printf("Youtube search region=%s order=%s found %d ids", params.Region, params.Order, len(ids))
	return ids, nil
}

// Details hydrates up to 50 ids in one call. Ids unknown to YouTube are
// silently absent from the response, callers must not assume a 1:1 match.
func (c *Client) Details(ctx context.Context, ids []string) ([]Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	response, err := c.service.Videos.
		List([]string{"snippet", "contentDetails", "statistics"}).
		Id(strings.Join(ids, ",")).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("youtube details failed: %w", err)
	}

	items := make([]Item, 0, len(response.Items))
	for _, v := range response.Items {
		items = append(items, itemFromVideo(v))
	}

	return items, nil
}

func itemFromVideo(v *ytapi.Video) Item {
	item := Item{ID: v.Id}

	if sn := v.Snippet; sn != nil {
		item.Title = sn.Title
		item.Description = sn.Description
		item.ChannelTitle = sn.ChannelTitle
		item.PublishedAt = sn.PublishedAt
		item.Thumbnails = thumbnailURLs(sn.Thumbnails)
	}

	if cd := v.ContentDetails; cd != nil {
		item.Duration = cd.Duration
	}

	if st := v.Statistics; st != nil {
		item.ViewCount = strconv.FormatUint(st.ViewCount, 10)
		// The wire format omits likeCount when a channel hides likes and
		// the typed SDK collapses that to zero, so zero stays unreported.
		if st.LikeCount > 0 {
			item.LikeCount = strconv.FormatUint(st.LikeCount, 10)
		}
	}

	return item
}

func thumbnailURLs(details *ytapi.ThumbnailDetails) map[string]string {
	if details == nil {
		return nil
	}

	urls := make(map[string]string)
	if details.Maxres != nil {
		urls["maxres"] = details.Maxres.Url
	}
	if details.Standard != nil {
		urls["standard"] = details.Standard.Url
	}
	if details.High != nil {
		urls["high"] = details.High.Url
	}
	if details.Medium != nil {
		urls["medium"] = details.Medium.Url
	}
	if details.Default != nil {
		urls["default"] = details.Default.Url
	}
	return urls
}
