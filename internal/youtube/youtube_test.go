package youtube

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVideoID(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/watch?feature=share&v=dQw4w9WgXcQ&t=42", "dQw4w9WgXcQ", false},
		{"https://youtu.be/dQw4w9WgXcQ?si=abc", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ?autoplay=1", "dQw4w9WgXcQ", false},
		{"https://www.youtube-nocookie.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/shorts/a1_b2-C3d4E", "a1_b2-C3d4E", false},
		{"https://www.youtube.com/live/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/v/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/@dailyceddo", "", true},
		{"https://www.youtube.com/watch?v=short", "", true},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQextra", "", true},
		{"https://example.com/watch?v=dQw4w9WgXcQ", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := VideoID(tt.url)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoVideoID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestURLs(t *testing.T) {
	assert.Equal(t, "https://www.youtube.com/embed/dQw4w9WgXcQ?autoplay=1&mute=1", EmbedURL("dQw4w9WgXcQ"))
	assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", WatchURL("dQw4w9WgXcQ"))
}

func TestMatchesChannel(t *testing.T) {
	assert.True(t, MatchesChannel("@dailyceddo", DefaultChannel))
	assert.True(t, MatchesChannel("DailyCeddo", DefaultChannel))
	assert.True(t, MatchesChannel("/@dailyceddo", DefaultChannel))
	assert.True(t, MatchesChannel("https://www.youtube.com/@DailyCeddo/", DefaultChannel))
	assert.True(t, MatchesChannel("/@dailyceddo/videos", DefaultChannel))
	assert.False(t, MatchesChannel("@someoneelse", DefaultChannel))
	assert.False(t, MatchesChannel("", DefaultChannel))
}

const watchPage = `<!DOCTYPE html>
<html><head><title>video</title></head>
<body>
  <span itemprop="author" itemscope itemtype="http://schema.org/Person">
    <link itemprop="url" href="http://www.youtube.com/@DailyCeddo">
    <link itemprop="name" content="Daily Ceddo">
  </span>
</body></html>`

func TestChannelFromHTML(t *testing.T) {
	got, err := ChannelFromHTML(strings.NewReader(watchPage))
	require.NoError(t, err)
	assert.Equal(t, "@dailyceddo", got)
}

func TestChannelFromHTMLAnchorFallback(t *testing.T) {
	page := `<html><body><a href="/feed">feed</a><a href="/@dailyceddo">Daily Ceddo</a></body></html>`
	got, err := ChannelFromHTML(strings.NewReader(page))
	require.NoError(t, err)
	assert.Equal(t, "@dailyceddo", got)
}

func TestChannelFromHTMLMissing(t *testing.T) {
	_, err := ChannelFromHTML(strings.NewReader(`<html><body><p>nothing</p></body></html>`))
	assert.ErrorIs(t, err, ErrNoChannel)
}

func TestFetchChannel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(watchPage))
	}))
	defer srv.Close()

	got, err := FetchChannel(context.Background(), srv.Client(), srv.URL+"/watch?v=dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "@dailyceddo", got)
}

func TestFetchChannelBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := FetchChannel(context.Background(), srv.Client(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
