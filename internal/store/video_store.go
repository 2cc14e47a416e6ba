package store

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vibestream/vibestream-server/internal/models"
)

// ErrBadCursor marks a cursor the client sent that cannot be decoded.
var ErrBadCursor = errors.New("invalid cursor")

type PostgresVideoStore struct {
	db *sql.DB
}

func NewPostgresVideoStore(db *sql.DB) *PostgresVideoStore {
	if db == nil {
		panic("db cannot be nil for PostgresVideoStore")
	}
	return &PostgresVideoStore{db: db}
}

type VideoStore interface {
	Upsert(ctx context.Context, video models.Video) error
	ListRecent(ctx context.Context, limit int, cursor string) ([]models.Video, string, error)
}

type FeedResponse struct {
	Items      []models.Video `json:"items"`
	NextCursor *string        `json:"next_cursor"`
}

// Upsert inserts the record or merges it into the existing row for the
// same youtube id. Merge rules: empty strings and NULL counts never
// overwrite stored values, created_at is written once and never updated.
func (pg *PostgresVideoStore) Upsert(ctx context.Context, video models.Video) error {

	query := `
		INSERT INTO videos (
			youtube_id, title, description, channel_title, published_at,
			thumbnail, view_count, like_count, is_short, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		ON CONFLICT (youtube_id) DO UPDATE SET
			title         = COALESCE(NULLIF(EXCLUDED.title, ''), videos.title),
			description   = COALESCE(NULLIF(EXCLUDED.description, ''), videos.description),
			channel_title = COALESCE(NULLIF(EXCLUDED.channel_title, ''), videos.channel_title),
			published_at  = EXCLUDED.published_at,
			thumbnail     = COALESCE(NULLIF(EXCLUDED.thumbnail, ''), videos.thumbnail),
			view_count    = COALESCE(EXCLUDED.view_count, videos.view_count),
			like_count    = COALESCE(EXCLUDED.like_count, videos.like_count),
			is_short      = EXCLUDED.is_short,
			updated_at    = EXCLUDED.updated_at
	`

	_, err := pg.db.ExecContext(ctx, query,
		video.Youtube_ID,
		video.Title,
		video.Description,
		video.Channel_Title,
		video.Published_At,
		video.Thumbnail,
		video.View_Count,
		video.Like_Count,
		video.Is_Short,
		video.Created_At,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert video %s: %w", video.Youtube_ID, err)
	}

	return nil
}

// ListRecent pages through videos newest-ingested first using an opaque
// keyset cursor. An empty next cursor means the feed is exhausted.
func (pg *PostgresVideoStore) ListRecent(ctx context.Context, limit int, cursor string) ([]models.Video, string, error) {

	query := `
		SELECT
			v.youtube_id,
			v.title,
			v.description,
			v.channel_title,
			v.published_at,
			v.thumbnail,
			v.view_count,
			v.like_count,
			v.is_short,
			v.created_at,
			v.updated_at
		FROM videos v
	`
	args := []interface{}{}

	if cursor != "" {
		createdAt, youtubeID, err := decodeCursor(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrBadCursor, err)
		}
		query += ` WHERE (v.created_at, v.youtube_id) < ($1, $2)`
		args = append(args, createdAt, youtubeID)
	}

	query += fmt.Sprintf(` ORDER BY v.created_at DESC, v.youtube_id DESC LIMIT %d`, limit)

	rows, err := pg.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get recent videos: %w", err)
	}
	defer rows.Close()

	var videos []models.Video
	for rows.Next() {
		var v models.Video

		if err := rows.Scan(
			&v.Youtube_ID,
			&v.Title,
			&v.Description,
			&v.Channel_Title,
			&v.Published_At,
			&v.Thumbnail,
			&v.View_Count,
			&v.Like_Count,
			&v.Is_Short,
			&v.Created_At,
			&v.Updated_At,
		); err != nil {
			return nil, "", fmt.Errorf("failed to scan video row: %w", err)
		}

		videos = append(videos, v)
	}

	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("error iterating over video rows: %w", err)
	}

	nextCursor := ""
	if len(videos) == limit {
		last := videos[len(videos)-1]
		nextCursor = encodeCursor(last.Created_At, last.Youtube_ID)
	}

	return videos, nextCursor, nil
}

func encodeCursor(createdAt time.Time, youtubeID string) string {
	raw := createdAt.UTC().Format(time.RFC3339Nano) + "|" + youtubeID
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(cursor string) (time.Time, string, error) {
	raw, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("cursor is not base64: %w", err)
	}

	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 || parts[1] == "" {
		return time.Time{}, "", fmt.Errorf("cursor is malformed")
	}

	createdAt, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Time{}, "", fmt.Errorf("cursor timestamp is malformed: %w", err)
	}

	return createdAt, parts[1], nil
}
