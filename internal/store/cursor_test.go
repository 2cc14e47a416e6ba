package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	createdAt := time.Date(2024, 6, 1, 12, 0, 0, 123456789, time.UTC)

	cursor := encodeCursor(createdAt, "dQw4w9WgXcQ")
	gotTime, gotID, err := decodeCursor(cursor)

	require.NoError(t, err)
	assert.True(t, createdAt.Equal(gotTime))
	assert.Equal(t, "dQw4w9WgXcQ", gotID)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	tests := []struct {
		name   string
		cursor string
	}{
		{"not base64", "!!!not-base64!!!"},
		{"no separator", "bm9zZXBhcmF0b3Jz"},
		{"bad timestamp", "bm90LWEtdGltZXxhYmM="},
		{"empty id", "MjAyNC0wNi0wMVQxMjowMDowMFp8"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := decodeCursor(tc.cursor)
			assert.Error(t, err)
		})
	}
}
