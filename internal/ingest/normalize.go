package ingest

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/vibestream/vibestream-server/internal/models"
	"github.com/vibestream/vibestream-server/internal/youtube"
)

// ErrMissingID marks an item that carries neither a search-result video id
// nor a top-level id. Such items cannot be stored and are skipped.
var ErrMissingID = errors.New("item has no video id")

// Videos under this length count as short-form, matching the Data API's
// videoDuration=short search filter.
const shortFormMax = 4 * time.Minute

var thumbnailOrder = []string{"maxres", "standard", "high", "medium", "default"}

// Normalize maps one loose Data API item into a Video. It is pure: every
// field except the id has a defined fallback, so malformed input yields a
// record, not an error. now becomes the ingestion timestamp and the
// published_at fallback.
func Normalize(item youtube.Item, now time.Time) (models.Video, error) {
	id := item.SearchID
	if id == "" {
		id = item.ID
	}
	if id == "" {
		return models.Video{}, ErrMissingID
	}

	publishedAt := now
	if item.PublishedAt != "" {
		if ts, err := time.Parse(time.RFC3339, item.PublishedAt); err == nil {
			publishedAt = ts
		}
	}

	return models.Video{
		Youtube_ID:    id,
		Title:         item.Title,
		Description:   item.Description,
		Channel_Title: item.ChannelTitle,
		Published_At:  publishedAt,
		Thumbnail:     pickThumbnail(item.Thumbnails),
		View_Count:    parseCount(item.ViewCount),
		Like_Count:    parseCount(item.LikeCount),
		Is_Short:      isShortForm(item.Duration),
		Created_At:    now,
		Updated_At:    now,
	}, nil
}

// pickThumbnail returns the highest-resolution variant present, or "".
func pickThumbnail(thumbnails map[string]string) string {
	for _, key := range thumbnailOrder {
		if url := thumbnails[key]; url != "" {
			return url
		}
	}
	return ""
}

// parseCount turns a raw statistics value into a nullable count. "" and
// garbage both mean "not reported", which callers must keep distinct from
// an explicit zero.
func parseCount(raw string) *int64 {
	if raw == "" {
		return nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

func isShortForm(duration string) bool {
	d, ok := parseISODuration(duration)
	if !ok {
		return false
	}
	return d > 0 && d < shortFormMax
}

// parseISODuration reads the ISO-8601 duration notation the Data API uses
// for contentDetails.duration, e.g. "PT59S", "PT1M30S", "P1DT2H".
func parseISODuration(s string) (time.Duration, bool) {
	if len(s) < 2 || s[0] != 'P' {
		return 0, false
	}
	s = s[1:]

	var total time.Duration
	inTime := false
	num := strings.Builder{}

	for _, r := range s {
		switch {
		case r == 'T':
			inTime = true
		case r >= '0' && r <= '9':
			num.WriteRune(r)
		default:
			if num.Len() == 0 {
				return 0, false
			}
			n, err := strconv.Atoi(num.String())
			if err != nil {
				return 0, false
			}
			num.Reset()

			var unit time.Duration
			switch {
			case r == 'D' && !inTime:
				unit = 24 * time.Hour
			case r == 'H' && inTime:
				unit = time.Hour
			case r == 'M' && inTime:
				unit = time.Minute
			case r == 'S' && inTime:
				unit = time.Second
			default:
				return 0, false
			}
			total += time.Duration(n) * unit
		}
	}

	if num.Len() > 0 {
		return 0, false
	}
	return total, true
}
