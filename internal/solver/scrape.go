// SPDX-License-Identifier: AGPL-3.0-only
package solver

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/fluffyriot/rtsync/internal/media"
	"github.com/fluffyriot/rtsync/internal/reddit"
)

var embeddedMediaPattern = regexp.MustCompile(`https://[a-z0-9]+\.(redgifs|gfycat)\.com/[a-zA-Z-]*\.mp4`)

// solveScraped handles hosts that only expose the media URL inside the post's
// landing page. The og:video meta tag is checked first, then the raw page is
// regex-scanned for an embedded mp4 link on the provider's domain.
func (s *Solver) solveScraped(post *reddit.PostDetails) (bool, string) {
	pageText, ok := s.fetcher.PageText(post.URL)
	if !ok {
		return false, "failed"
	}

	mediaLink := ""
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageText)); err == nil {
		if content, found := doc.Find(`meta[property="og:video"]`).Attr("content"); found && embeddedMediaPattern.MatchString(content) {
			mediaLink = embeddedMediaPattern.FindString(content)
		}
	}
	if mediaLink == "" {
		mediaLink = embeddedMediaPattern.FindString(pageText)
	}
	if mediaLink == "" {
		s.log.Info().Str("postID", post.ID).Msg("No embedded media link found")
		return false, "failed"
	}

	file := media.New(mediaLink, s.fetcher)
	caption := strings.Join(append(baseCaption(post), fmt.Sprintf("Media URL: %s", mediaLink)), "\n")
	return s.delivery.SendBatch([]*media.File{file}, []string{caption})
}
