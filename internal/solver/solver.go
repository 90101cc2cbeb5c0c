// SPDX-License-Identifier: AGPL-3.0-only
package solver

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/fluffyriot/rtsync/internal/fetcher"
	"github.com/fluffyriot/rtsync/internal/logging"
	"github.com/fluffyriot/rtsync/internal/media"
	"github.com/fluffyriot/rtsync/internal/reddit"
)

// Deliverer sends one batch of files with their captions and reports the
// delivery kind that actually went out.
type Deliverer interface {
	SendBatch(files []*media.File, captions []string) (bool, string)
}

// mediaResolver re-reads a post's secondary media fields.
type mediaResolver interface {
	ResolveMedia(postID string) (*reddit.MediaInfo, bool)
}

// Solver routes a resolved post to the extraction strategy matching its
// primary link's hosting provider.
type Solver struct {
	fetcher  *fetcher.Client
	reddit   mediaResolver
	delivery Deliverer
	log      zerolog.Logger
}

func New(f *fetcher.Client, r mediaResolver, d Deliverer) *Solver {
	return &Solver{
		fetcher:  f,
		reddit:   r,
		delivery: d,
		log:      logging.Component("solver"),
	}
}

// SolvePost extracts and delivers the post's media. The returned kind is one
// of photo, animation, video, audio, document, message, group or failed.
func (s *Solver) SolvePost(details *reddit.PostDetails) (bool, string) {
	provider, normalized := fetcher.Classify(details.URL)

	post := *details
	post.URL = normalized

	switch provider {
	case fetcher.ProviderRedditImage:
		s.log.Info().Str("postID", post.ID).Msg("Post falls under Reddit-hosted images")
		return s.solveDirect(&post)
	case fetcher.ProviderRedditVideo:
		s.log.Info().Str("postID", post.ID).Msg("Post falls under Reddit-hosted videos")
		return s.solveVideo(&post)
	case fetcher.ProviderRedditGallery:
		s.log.Info().Str("postID", post.ID).Msg("Post falls under Reddit-hosted galleries")
		return s.solveGallery(&post)
	case fetcher.ProviderImgur:
		s.log.Info().Str("postID", post.ID).Msg("Post falls under Imgur-hosted media")
		return s.solveDirect(&post)
	case fetcher.ProviderRedgifs, fetcher.ProviderGfycat:
		s.log.Info().Str("postID", post.ID).Msg("Post falls under Redgifs/Gfycat-hosted media")
		return s.solveScraped(&post)
	default:
		s.log.Info().Str("postID", post.ID).Msg("Post doesn't fall under any known category")
		return s.solveDirect(&post)
	}
}

// baseCaption builds the caption lines shared by every strategy.
func baseCaption(post *reddit.PostDetails) []string {
	var lines []string
	if post.ID != "" {
		lines = append(lines, fmt.Sprintf("Post ID: %s", post.ID))
	}
	if post.Title != "" {
		lines = append(lines, post.Title)
	}
	if post.Author != "" {
		lines = append(lines, fmt.Sprintf("by %s", post.Author))
	}
	if post.Subreddit != "" {
		lines = append(lines, fmt.Sprintf("via %s", post.Subreddit))
	}
	if post.URL != "" {
		lines = append(lines, fmt.Sprintf("Primary URL: %s", post.URL))
	}
	return lines
}

// solveDirect wraps the primary link itself as the one file to deliver. Used
// for direct image hosts, rewritten Imgur links and anything unrecognized.
func (s *Solver) solveDirect(post *reddit.PostDetails) (bool, string) {
	file := media.New(post.URL, s.fetcher)
	caption := strings.Join(baseCaption(post), "\n")
	return s.delivery.SendBatch([]*media.File{file}, []string{caption})
}
