// SPDX-License-Identifier: AGPL-3.0-only
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"
	"golang.org/x/oauth2"

	"github.com/fluffyriot/rtsync/internal/config"
	"github.com/fluffyriot/rtsync/internal/fetcher"
	"github.com/fluffyriot/rtsync/internal/logging"
)

// PostDetails is the canonical, immutable description of a resolved post.
type PostDetails struct {
	ID        string
	Title     string
	Author    string
	Subreddit string
	URL       string
}

// MediaInfo carries the secondary media fields some strategies re-read from
// the post document.
type MediaInfo struct {
	FallbackVideoURL string
	IsGallery        bool
	HasMediaMetadata bool
	GalleryURLs      []string
}

type Client struct {
	cfg     *config.AppConfig
	fetcher *fetcher.Client
	log     zerolog.Logger

	// Anonymous endpoint for the public comments documents and the
	// authenticated endpoint for account listings.
	baseURL  string
	oauthURL string

	authed *http.Client
}

func NewClient(cfg *config.AppConfig, f *fetcher.Client) *Client {
	return &Client{
		cfg:      cfg,
		fetcher:  f,
		log:      logging.Component("reddit"),
		baseURL:  "https://www.reddit.com",
		oauthURL: "https://oauth.reddit.com",
	}
}

type listing struct {
	Data struct {
		Children []struct {
			Data postData `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type postData struct {
	Title                 string `json:"title"`
	Author                string `json:"author"`
	SubredditNamePrefixed string `json:"subreddit_name_prefixed"`
	URLOverriddenByDest   string `json:"url_overridden_by_dest"`
	IsGallery             bool   `json:"is_gallery"`
	Media                 struct {
		RedditVideo struct {
			FallbackURL string `json:"fallback_url"`
		} `json:"reddit_video"`
	} `json:"media"`
	MediaMetadata map[string]struct {
		S struct {
			U string `json:"u"`
		} `json:"s"`
	} `json:"media_metadata"`
}

// cleanText undoes the HTML entity escaping the API applies to text fields
// and drops any invalid byte sequences left over.
func cleanText(s string) string {
	return strings.ToValidUTF8(html.UnescapeString(s), "�")
}

func (c *Client) postDocument(postID string) (*postData, bool) {
	data, ok := c.fetcher.LoadJSON(fmt.Sprintf("%s/comments/%s.json", c.baseURL, postID))
	if !ok {
		return nil, false
	}

	// Errors come back as an object ({"error": 404}) where a solvable post is
	// a two-element listing array.
	var doc []listing
	if err := json.Unmarshal(data, &doc); err != nil {
		c.log.Debug().Str("postID", postID).Msg("Post document is not a listing")
		return nil, false
	}
	if len(doc) == 0 || len(doc[0].Data.Children) == 0 {
		return nil, false
	}
	return &doc[0].Data.Children[0].Data, true
}

// Resolve fetches the post document and returns its details, or absence when
// the post has no primary link to work with.
func (c *Client) Resolve(postID string) (*PostDetails, bool) {
	post, ok := c.postDocument(postID)
	if !ok || post.URLOverriddenByDest == "" {
		c.log.Info().Str("postID", postID).Msg("Post cannot be solved")
		return nil, false
	}

	details := &PostDetails{
		ID:        postID,
		Title:     cleanText(post.Title),
		Author:    "u/" + post.Author,
		Subreddit: post.SubredditNamePrefixed,
		URL:       cleanText(post.URLOverriddenByDest),
	}
	c.log.Info().Str("postID", postID).Msg("Post details obtained successfully")
	return details, true
}

// ResolveMedia re-reads the post document for the video and gallery fields.
// Gallery entries are keyed by opaque media IDs; sorting the keys keeps batch
// composition stable across runs.
func (c *Client) ResolveMedia(postID string) (*MediaInfo, bool) {
	post, ok := c.postDocument(postID)
	if !ok {
		return nil, false
	}

	info := &MediaInfo{
		FallbackVideoURL: cleanText(post.Media.RedditVideo.FallbackURL),
		IsGallery:        post.IsGallery,
		HasMediaMetadata: post.MediaMetadata != nil,
	}

	if post.MediaMetadata != nil {
		keys := make([]string, 0, len(post.MediaMetadata))
		for key := range post.MediaMetadata {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if link := cleanText(post.MediaMetadata[key].S.U); link != "" {
				info.GalleryURLs = append(info.GalleryURLs, link)
			}
		}
	}

	return info, true
}

type savedListing struct {
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Data struct {
				ID string `json:"id"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// SavedPostIDs enumerates every saved post on the account and filters out the
// already-known identifiers.
func (c *Client) SavedPostIDs(known map[string]struct{}) ([]string, bool) {
	c.log.Debug().Msg("Checking for saved posts")

	client, err := c.authedClient()
	if err != nil {
		c.log.Error().Err(err).Msg("Failed to authenticate")
		return nil, false
	}

	var ids []string
	after := ""
	for {
		url := fmt.Sprintf("%s/user/%s/saved?limit=100&raw_json=1", c.oauthURL, c.cfg.RedditUsername)
		if after != "" {
			url += "&after=" + after
		}

		req, err := http.NewRequest("GET", url, nil)
		if err != nil {
			c.log.Error().Err(err).Msg("Failed to build request")
			return nil, false
		}
		req.Header.Set("User-Agent", c.cfg.RedditUserAgent)

		resp, err := client.Do(req)
		if err != nil {
			c.log.Error().Err(err).Msg("Saved posts request failed")
			return nil, false
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			c.log.Error().Int("status", resp.StatusCode).Msg("Failed to list saved posts")
			return nil, false
		}

		var page savedListing
		err = json.NewDecoder(resp.Body).Decode(&page)
		resp.Body.Close()
		if err != nil {
			c.log.Error().Err(err).Msg("Failed to decode saved listing")
			return nil, false
		}

		for _, child := range page.Data.Children {
			if child.Data.ID == "" {
				continue
			}
			if _, excluded := known[child.Data.ID]; excluded {
				continue
			}
			ids = append(ids, child.Data.ID)
		}

		if page.Data.After == "" {
			break
		}
		after = page.Data.After
	}

	c.log.Info().Int("count", len(ids)).Msg("Obtained new posts from Reddit")
	return ids, true
}

// userAgentTransport sets the account's User-Agent on every authenticated
// request; the API rejects the default Go one.
type userAgentTransport struct {
	agent string
	base  http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", t.agent)
	return t.base.RoundTrip(req)
}

func (c *Client) authedClient() (*http.Client, error) {
	if c.authed != nil {
		return c.authed, nil
	}

	conf := &oauth2.Config{
		ClientID:     c.cfg.RedditClientID,
		ClientSecret: c.cfg.RedditClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.baseURL + "/api/v1/access_token",
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{
		Transport: &userAgentTransport{agent: c.cfg.RedditUserAgent, base: http.DefaultTransport},
	})

	token, err := conf.PasswordCredentialsToken(ctx, c.cfg.RedditUsername, c.cfg.RedditPassword)
	if err != nil {
		return nil, fmt.Errorf("requesting access token: %w", err)
	}

	c.authed = conf.Client(ctx, token)
	return c.authed, nil
}
