// SPDX-License-Identifier: AGPL-3.0-only
package fetcher

import "strings"

type Provider string

const (
	ProviderRedditImage   Provider = "RedditImage"
	ProviderRedditVideo   Provider = "RedditVideo"
	ProviderRedditGallery Provider = "RedditGallery"
	ProviderImgur         Provider = "Imgur"
	ProviderRedgifs       Provider = "Redgifs"
	ProviderGfycat        Provider = "Gfycat"
	ProviderOther         Provider = "Other"
)

// Classify matches a URL against the known hosting providers, first match
// wins. Imgur links get their .gifv/.gif suffix rewritten to .mp4, the only
// rendition Telegram previews reliably.
func Classify(resourceURL string) (Provider, string) {
	switch {
	case strings.Contains(resourceURL, "i.redd.it"):
		return ProviderRedditImage, resourceURL
	case strings.Contains(resourceURL, "v.redd.it"):
		return ProviderRedditVideo, resourceURL
	case strings.Contains(resourceURL, "reddit.com/gallery"):
		return ProviderRedditGallery, resourceURL
	case strings.Contains(resourceURL, "imgur.com"):
		rewritten := strings.ReplaceAll(resourceURL, ".gifv", ".mp4")
		rewritten = strings.ReplaceAll(rewritten, ".gif", ".mp4")
		return ProviderImgur, rewritten
	case strings.Contains(resourceURL, "redgifs.com"):
		return ProviderRedgifs, resourceURL
	case strings.Contains(resourceURL, "gfycat.com"):
		return ProviderGfycat, resourceURL
	default:
		return ProviderOther, resourceURL
	}
}
