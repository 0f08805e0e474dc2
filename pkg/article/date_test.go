package article

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	ref := time.Date(2024, 1, 10, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		raw  string
		want time.Time
	}{
		{"3 days ago", time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)},
		{"1 week ago", time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)},
		{"2 hours ago", time.Date(2024, 1, 10, 13, 30, 0, 0, time.UTC)},
		{"an hour ago", time.Date(2024, 1, 10, 14, 30, 0, 0, time.UTC)},
		{"Yesterday", time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC)},
		{"2024-01-02", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"Jan 2, 2024", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"5 January 2024 ·", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseDate(tt.raw, ref)
			require.True(t, ok)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestParseDateRejectsGarbage(t *testing.T) {
	_, ok := ParseDate("", time.Now())
	assert.False(t, ok)

	_, ok = ParseDate("sometime soon", time.Now())
	assert.False(t, ok)
}

func TestRecordContentStates(t *testing.T) {
	var r Record
	assert.False(t, r.ContentAttempted())
	assert.False(t, r.HasContent())

	r.Content = ContentUnavailable
	assert.True(t, r.ContentAttempted())
	assert.False(t, r.HasContent())

	r.Content = "full text"
	assert.True(t, r.HasContent())
}

func TestSourceFromURL(t *testing.T) {
	assert.Equal(t, "bloomberg.com", SourceFromURL("https://www.Bloomberg.com/news/a"))
	assert.Equal(t, "iaea.org", SourceFromURL("https://iaea.org/x"))
	assert.Equal(t, "", SourceFromURL("::bad"))
}
