// SPDX-License-Identifier: AGPL-3.0-only
package fetcher

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/fluffyriot/rtsync/internal/logging"
)

// Some hosts redirect dead links to a placeholder instead of returning 404.
// Landing on one of these means the resource is gone, no point retrying.
var deadEndURLs = []string{
	"https://i.imgur.com/removed.png",
}

type Client struct {
	httpClient        http.Client
	getAttempts       int
	postAttempts      int
	sleepOnFailedGet  time.Duration
	sleepOnFailedPost time.Duration
	log               zerolog.Logger
}

func NewClient(timeout time.Duration, getAttempts, postAttempts int, sleepOnFailedGet, sleepOnFailedPost time.Duration) *Client {
	return &Client{
		httpClient: http.Client{
			Timeout: timeout,
		},
		getAttempts:       getAttempts,
		postAttempts:      postAttempts,
		sleepOnFailedGet:  sleepOnFailedGet,
		sleepOnFailedPost: sleepOnFailedPost,
		log:               logging.Component("fetcher"),
	}
}

func setBrowserHeaders(req *http.Request) {
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set(
		"User-Agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/102.0.5005.63 Safari/537.36",
	)
}

// Get retrieves a URL with bounded retries and a fixed delay between
// attempts. Transport faults and exhausted retries collapse to absence; the
// caller never sees an error value.
func (c *Client) Get(resourceURL string) ([]byte, bool) {
	c.log.Debug().Str("url", resourceURL).Msg("Sending GET request")

	for attempt := 1; attempt <= c.getAttempts; attempt++ {
		c.log.Debug().Int("attempt", attempt).Int("of", c.getAttempts).Msg("GET attempt")

		req, err := http.NewRequest("GET", resourceURL, nil)
		if err != nil {
			c.log.Error().Err(err).Str("url", resourceURL).Msg("Failed to build request")
			return nil, false
		}
		setBrowserHeaders(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.log.Error().Err(err).Str("url", resourceURL).Msg("GET request failed")
			return nil, false
		}

		finalURL := resp.Request.URL.String()
		for _, dead := range deadEndURLs {
			if finalURL == dead {
				resp.Body.Close()
				c.log.Debug().Str("url", resourceURL).Msg("Redirected to a known dead end")
				return nil, false
			}
		}

		if resp.StatusCode == http.StatusOK {
			data, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				c.log.Error().Err(err).Str("url", resourceURL).Msg("Failed to read response body")
				return nil, false
			}
			c.log.Info().Str("url", resourceURL).Msg("Resource obtained successfully")
			return data, true
		}

		resp.Body.Close()
		c.log.Debug().
			Int("status", resp.StatusCode).
			Dur("retryIn", c.sleepOnFailedGet).
			Msg("Attempt unsuccessful, retrying")
		if attempt < c.getAttempts {
			time.Sleep(c.sleepOnFailedGet)
		}
	}

	c.log.Error().Str("url", resourceURL).Msg("Failure obtaining resource")
	return nil, false
}

// PostForm sends a pre-encoded request body with bounded retries. The body is
// held as bytes so it can be replayed on each attempt.
func (c *Client) PostForm(apiURL, contentType string, body []byte) ([]byte, bool) {
	c.log.Debug().Str("url", apiURL).Msg("Sending POST request")

	for attempt := 1; attempt <= c.postAttempts; attempt++ {
		c.log.Debug().Int("attempt", attempt).Int("of", c.postAttempts).Msg("POST attempt")

		req, err := http.NewRequest("POST", apiURL, bytes.NewReader(body))
		if err != nil {
			c.log.Error().Err(err).Msg("Failed to build request")
			return nil, false
		}
		req.Header.Set("Content-Type", contentType)
		req.Header.Set(
			"User-Agent",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/102.0.5005.63 Safari/537.36",
		)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.log.Error().Err(err).Msg("POST request failed")
			return nil, false
		}

		if resp.StatusCode == http.StatusOK {
			data, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				c.log.Error().Err(err).Msg("Failed to read response body")
				return nil, false
			}
			c.log.Info().Msg("Resource sent successfully")
			return data, true
		}

		resp.Body.Close()
		c.log.Debug().
			Int("status", resp.StatusCode).
			Dur("retryIn", c.sleepOnFailedPost).
			Msg("Attempt unsuccessful, retrying")
		if attempt < c.postAttempts {
			time.Sleep(c.sleepOnFailedPost)
		}
	}

	c.log.Error().Msg("Failure sending resource")
	return nil, false
}

// PageText loads a page and returns its contents as text.
func (c *Client) PageText(pageURL string) (string, bool) {
	data, ok := c.Get(pageURL)
	if !ok {
		return "", false
	}
	return string(data), true
}

// LoadJSON fetches a URL that must carry a .json suffix and returns the raw
// document for the caller to decode.
func (c *Client) LoadJSON(jsonURL string) ([]byte, bool) {
	if !strings.HasSuffix(strings.SplitN(jsonURL, "?", 2)[0], ".json") {
		return nil, false
	}
	return c.Get(jsonURL)
}
