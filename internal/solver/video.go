// SPDX-License-Identifier: AGPL-3.0-only
package solver

import (
	"fmt"
	"strings"

	"github.com/fluffyriot/rtsync/internal/media"
	"github.com/fluffyriot/rtsync/internal/reddit"
)

// solveVideo extracts the fallback video rendition and probes for the
// companion DASH audio track. Only the video file is delivered; the audio
// track, when it exists, is referenced as a caption line so it stays
// reachable without a second upload.
func (s *Solver) solveVideo(post *reddit.PostDetails) (bool, string) {
	info, ok := s.reddit.ResolveMedia(post.ID)
	if !ok {
		return false, "failed"
	}

	videoURL := info.FallbackVideoURL
	audioURL := strings.SplitN(videoURL, "DASH_", 2)[0] + "DASH_audio.mp4"

	videoFile := media.New(videoURL, s.fetcher)
	audioFile := media.New(audioURL, s.fetcher)

	lines := baseCaption(post)
	if videoFile.Exists {
		lines = append(lines, fmt.Sprintf("Video URL: %s", videoURL))
	}
	if audioFile.Exists {
		lines = append(lines, fmt.Sprintf("Audio URL: %s", audioURL))
	}

	caption := strings.Join(lines, "\n")
	return s.delivery.SendBatch([]*media.File{videoFile}, []string{caption})
}
