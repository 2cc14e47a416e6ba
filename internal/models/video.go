package models

import (
	"time"
)

// Video is one row in the videos table, keyed by the YouTube video id.
// View_Count and Like_Count are nil when YouTube did not report the
// statistic, which is different from a reported count of zero.
type Video struct {
	Youtube_ID    string    `json:"youtube_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Channel_Title string    `json:"channel_title"`
	Published_At  time.Time `json:"published_at"`
	Thumbnail     string    `json:"thumbnail"`
	View_Count    *int64    `json:"view_count"`
	Like_Count    *int64    `json:"like_count"`
	Is_Short      bool      `json:"is_short"`
	Created_At    time.Time `json:"created_at"`
	Updated_At    time.Time `json:"updated_at"`
}
