package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devraulu/newsreap/pkg/article"
)

func TestNormalizeTrackingAndFragment(t *testing.T) {
	want, err := Normalize("https://x.com/a")
	require.NoError(t, err)

	for _, raw := range []string{
		"https://x.com/a?utm=1#frag",
		"https://x.com/a?utm=2",
		"HTTPS://X.COM/a?utm_source=news&gclid=abc",
	} {
		got, err := Normalize(raw)
		require.NoError(t, err)
		assert.Equal(t, want, got, raw)
	}
}

func TestNormalizeKeepsMeaningfulQuery(t *testing.T) {
	a, err := Normalize("https://x.com/a?id=2&page=1&utm_medium=x")
	require.NoError(t, err)
	b, err := Normalize("https://x.com/a?page=1&id=2")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Contains(t, a, "id=2")
	assert.NotEqual(t, a, Key("https://x.com/a"))
}

func TestDedupeWithinRun(t *testing.T) {
	s := NewSet()
	records := []article.Record{
		{Title: "one", URL: "https://x.com/a?utm=1#frag"},
		{Title: "two", URL: "https://x.com/a?utm=2"},
		{Title: "three", URL: "https://x.com/a"},
		{Title: "other", URL: "https://x.com/b"},
	}

	out := s.Dedupe(records)
	require.Len(t, out, 2)
	assert.Equal(t, "one", out[0].Title)
	assert.Equal(t, "other", out[1].Title)
	assert.Equal(t, 2, s.Len())

	// a second batch in the same run sees the earlier URLs
	out = s.Dedupe([]article.Record{{URL: "https://x.com/b#top"}, {URL: "https://x.com/c"}})
	require.Len(t, out, 1)
	assert.Equal(t, "https://x.com/c", out[0].URL)
}

func TestSetsAreIndependent(t *testing.T) {
	a, b := NewSet(), NewSet()
	assert.True(t, a.Add("https://x.com/a", "q"))
	assert.True(t, b.Add("https://x.com/a", "q"))
	assert.False(t, a.Add("https://x.com/a#x", "q"))
	assert.True(t, a.Seen("https://X.com/a"))
}
