package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("IMAGE_PROVIDER", "cloudinary")
	t.Setenv("FEED_GENRES", " romance, horror ,,fantasy")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"romance", "horror", "fantasy"}, cfg.FeedGenres)
	assert.Equal(t, 18, cfg.FeedSectionSize)
	assert.Equal(t, 6, cfg.FeedQuickReadMax)
	assert.Equal(t, 60*time.Second, cfg.FeedCacheTTL)
	assert.Equal(t, 72*time.Hour, cfg.JWTTTL)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("FEED_CACHE_TTL", "soon")

	_, err := Load()
	assert.ErrorContains(t, err, "FEED_CACHE_TTL")
}

func TestLoadImgBBNeedsKeys(t *testing.T) {
	t.Setenv("IMAGE_PROVIDER", "imgbb")
	t.Setenv("IMGBB_API_KEYS", "")

	_, err := Load()
	assert.ErrorContains(t, err, "IMGBB_API_KEYS")

	t.Setenv("IMGBB_API_KEYS", "k1,k2")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"k1", "k2"}, cfg.ImgBBAPIKeys)
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("IMAGE_PROVIDER", "ftp")

	_, err := Load()
	assert.ErrorContains(t, err, "IMAGE_PROVIDER")
}

func TestLoadRejectsReservedGenres(t *testing.T) {
	t.Setenv("IMAGE_PROVIDER", "cloudinary")
	for _, g := range []string{"latest", "Trending", "quickreads", "editorPicks"} {
		t.Setenv("FEED_GENRES", "horror,"+g)
		_, err := Load()
		assert.ErrorContains(t, err, "FEED_GENRES", g)
	}

	t.Setenv("FEED_GENRES", "horror,latest-news")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"horror", "latest-news"}, cfg.FeedGenres)
}
