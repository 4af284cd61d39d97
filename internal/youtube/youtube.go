// Package youtube knows the handful of YouTube details the skipper needs:
// how to pull a video id out of a URL, which channel a watch page belongs
// to, and how to turn a watch URL into a stream ffmpeg can decode.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/alvarorichard/ceddoskip/internal/util"
	"github.com/lrstanley/go-ytdlp"
	pkgerrors "github.com/pkg/errors"
)

// DefaultChannel is the only channel the skipper activates on.
const DefaultChannel = "@dailyceddo"

var (
	// ErrNoVideoID is returned when a URL does not carry an 11-character id.
	ErrNoVideoID = errors.New("no video id in url")
	// ErrNoChannel is returned when a watch page names no channel handle.
	ErrNoChannel = errors.New("no channel handle on page")
)

var videoIDPattern = regexp.MustCompile(
	`(?:youtube(?:-nocookie)?\.com/(?:watch\?(?:.*&)?v=|embed/|shorts/|live/|v/)|youtu\.be/)([A-Za-z0-9_-]{11})(?:[?&#/]|$)`,
)

// VideoID extracts the 11-character content id from a YouTube URL.
func VideoID(rawURL string) (string, error) {
	m := videoIDPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrNoVideoID, rawURL)
	}
	return m[1], nil
}

// WatchURL returns the canonical watch page for id.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

// EmbedURL returns an autoplaying, muted embed URL for id.
func EmbedURL(id string) string {
	return "https://www.youtube.com/embed/" + id + "?autoplay=1&mute=1"
}

// NormalizeHandle lower-cases a channel handle and strips the leading @
// and any path prefix, so "/@DailyCeddo" and "dailyceddo" compare equal.
func NormalizeHandle(handle string) string {
	h := strings.TrimSpace(handle)
	if i := strings.LastIndex(h, "/@"); i >= 0 {
		h = h[i+1:]
	}
	h = strings.TrimPrefix(h, "@")
	if i := strings.IndexAny(h, "/?#"); i >= 0 {
		h = h[:i]
	}
	return strings.ToLower(h)
}

// MatchesChannel reports whether got names the configured channel.
func MatchesChannel(got, want string) bool {
	g := NormalizeHandle(got)
	return g != "" && g == NormalizeHandle(want)
}

// ChannelFromHTML finds the uploader handle on a watch page.
func ChannelFromHTML(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse watch page: %w", err)
	}

	var handle string
	selectors := []string{
		`span[itemprop="author"] link[itemprop="url"]`,
		`link[itemprop="url"]`,
		`ytd-video-owner-renderer a`,
		`a[href^="/@"]`,
	}
	for _, sel := range selectors {
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			href, ok := s.Attr("href")
			if !ok || !strings.Contains(href, "/@") {
				return true
			}
			handle = "@" + NormalizeHandle(href)
			return false
		})
		if handle != "" {
			return handle, nil
		}
	}
	return "", ErrNoChannel
}

// FetchChannel downloads the watch page for pageURL and returns its handle.
func FetchChannel(ctx context.Context, client *http.Client, pageURL string) (string, error) {
	if client == nil {
		client = util.GetSharedClient()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := client.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(err, "fetch watch page")
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			util.Debug("closing watch page body", "error", cerr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return "", pkgerrors.Errorf("fetch watch page: status %d", resp.StatusCode)
	}
	return ChannelFromHTML(resp.Body)
}

// ResolveStream asks yt-dlp for a direct video-only stream URL no taller
// than maxHeight, or the best stream when maxHeight is 0. yt-dlp is
// installed on first use.
func ResolveStream(ctx context.Context, pageURL string, maxHeight int) (string, error) {
	if _, err := ytdlp.Install(ctx, nil); err != nil {
		return "", pkgerrors.Wrap(err, "install yt-dlp")
	}

	format := "bestvideo/best"
	if maxHeight > 0 {
		format = fmt.Sprintf("bestvideo[height<=%d]/best[height<=%d]/best", maxHeight, maxHeight)
	}
	res, err := ytdlp.New().
		Format(format).
		NoPlaylist().
		GetURL().
		Run(ctx, pageURL)
	if err != nil {
		return "", pkgerrors.Wrapf(err, "resolve stream for %s", pageURL)
	}

	for _, line := range strings.Split(res.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "http") {
			util.Debug("resolved stream", "page", pageURL)
			return line, nil
		}
	}
	return "", pkgerrors.Errorf("yt-dlp returned no stream url for %s", pageURL)
}
