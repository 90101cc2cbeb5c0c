package reddit

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluffyriot/rtsync/internal/config"
	"github.com/fluffyriot/rtsync/internal/fetcher"
)

func testClient(serverURL string) *Client {
	cfg := &config.AppConfig{
		RedditUserAgent: "rtsync-test",
		RedditUsername:  "tester",
	}
	c := NewClient(cfg, fetcher.NewClient(5*time.Second, 1, 1, 0, 0))
	c.baseURL = serverURL
	c.oauthURL = serverURL
	c.authed = http.DefaultClient
	return c
}

const solvablePost = `[
  {"data": {"children": [{"data": {
    "title": "Cats &amp; dogs",
    "author": "someone",
    "subreddit_name_prefixed": "r/pics",
    "url_overridden_by_dest": "https://i.redd.it/abc.jpg?a=1&amp;b=2"
  }}]}},
  {"data": {"children": []}}
]`

func TestResolveSolvablePost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/comments/abc123.json", r.URL.Path)
		w.Write([]byte(solvablePost))
	}))
	defer server.Close()

	details, ok := testClient(server.URL).Resolve("abc123")
	require.True(t, ok)
	assert.Equal(t, "abc123", details.ID)
	assert.Equal(t, "Cats & dogs", details.Title)
	assert.Equal(t, "u/someone", details.Author)
	assert.Equal(t, "r/pics", details.Subreddit)
	assert.Equal(t, "https://i.redd.it/abc.jpg?a=1&b=2", details.URL)
}

func TestResolveMissingPrimaryLink(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"data": {"children": [{"data": {"title": "text post", "author": "a", "subreddit_name_prefixed": "r/x"}}]}}]`))
	}))
	defer server.Close()

	_, ok := testClient(server.URL).Resolve("abc123")
	assert.False(t, ok)
}

func TestResolveErrorDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message": "Not Found", "error": 404}`))
	}))
	defer server.Close()

	_, ok := testClient(server.URL).Resolve("missing")
	assert.False(t, ok)
}

func TestResolveFetchFault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, ok := testClient(server.URL).Resolve("abc123")
	assert.False(t, ok)
}

func TestResolveMediaGalleryOrdering(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"data": {"children": [{"data": {
			"is_gallery": true,
			"media_metadata": {
				"zzz": {"s": {"u": "https://i.redd.it/third.jpg"}},
				"aaa": {"s": {"u": "https://i.redd.it/first.jpg"}},
				"mmm": {"s": {"u": "https://i.redd.it/second.jpg"}}
			}
		}}]}}]`))
	}))
	defer server.Close()

	info, ok := testClient(server.URL).ResolveMedia("gal1")
	require.True(t, ok)
	assert.True(t, info.IsGallery)
	assert.True(t, info.HasMediaMetadata)
	assert.Equal(t, []string{
		"https://i.redd.it/first.jpg",
		"https://i.redd.it/second.jpg",
		"https://i.redd.it/third.jpg",
	}, info.GalleryURLs)
}

func TestResolveMediaVideoFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"data": {"children": [{"data": {
			"media": {"reddit_video": {"fallback_url": "https://v.redd.it/x/DASH_720.mp4?source=fallback"}}
		}}]}}]`))
	}))
	defer server.Close()

	info, ok := testClient(server.URL).ResolveMedia("vid1")
	require.True(t, ok)
	assert.Equal(t, "https://v.redd.it/x/DASH_720.mp4?source=fallback", info.FallbackVideoURL)
	assert.False(t, info.IsGallery)
	assert.False(t, info.HasMediaMetadata)
}

func TestSavedPostIDsPaginatesAndExcludes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/user/tester/saved", r.URL.Path)
		assert.Equal(t, "rtsync-test", r.Header.Get("User-Agent"))

		if r.URL.Query().Get("after") == "" {
			fmt.Fprint(w, `{"data": {"after": "t3_page2", "children": [
				{"data": {"id": "aaa"}},
				{"data": {"id": "bbb"}}
			]}}`)
			return
		}
		fmt.Fprint(w, `{"data": {"after": "", "children": [
			{"data": {"id": "ccc"}},
			{"data": {"id": "ddd"}}
		]}}`)
	}))
	defer server.Close()

	known := map[string]struct{}{"bbb": {}, "ddd": {}}
	ids, ok := testClient(server.URL).SavedPostIDs(known)
	require.True(t, ok)
	assert.Equal(t, []string{"aaa", "ccc"}, ids)
}

func TestSavedPostIDsListingFault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, ok := testClient(server.URL).SavedPostIDs(nil)
	assert.False(t, ok)
}
