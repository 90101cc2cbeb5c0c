// SPDX-License-Identifier: AGPL-3.0-only
package media

import (
	"bytes"
	"crypto/sha512"
	"encoding/hex"
	"image"
	"net/url"
	"path"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"
	_ "github.com/gen2brain/webp"

	"github.com/fluffyriot/rtsync/internal/logging"
)

const (
	// Images above this size render poorly as inline previews.
	tenMB = 10 * 1024 * 1024
	// Hard ceiling for bot file uploads.
	MaxUploadSize = 50 * 1024 * 1024
)

type Group string

const (
	GroupPhoto     Group = "photo"
	GroupAnimation Group = "animation"
	GroupVideo     Group = "video"
	GroupAudio     Group = "audio"
	GroupDocument  Group = "document"
)

// Getter is the single retrieval capability a File needs.
type Getter interface {
	Get(resourceURL string) ([]byte, bool)
}

// File is an immutable media artifact. The fetch happens exactly once at
// construction and every derived property is computed eagerly from the
// resulting bytes; a file that failed to fetch carries zero values throughout.
type File struct {
	URL    string
	Exists bool
	Name   string
	Bytes  []byte
	Hash   string
	MIME   string
	Size   int

	group Group
}

// Payload is what actually goes over the wire for one file.
type Payload struct {
	Group Group
	Name  string
	Bytes []byte
	MIME  string
}

func New(resourceURL string, getter Getter) *File {
	data, ok := getter.Get(resourceURL)
	if !ok {
		return &File{URL: resourceURL}
	}
	return fromBytes(resourceURL, data)
}

func fromBytes(resourceURL string, data []byte) *File {
	f := &File{
		URL:    resourceURL,
		Exists: true,
		Bytes:  data,
		Size:   len(data),
	}

	if parsed, err := url.Parse(resourceURL); err == nil {
		unescaped, err := url.PathUnescape(parsed.Path)
		if err != nil {
			unescaped = parsed.Path
		}
		f.Name = path.Base(unescaped)
	}

	sum := sha512.Sum512(data)
	f.Hash = hex.EncodeToString(sum[:])
	f.MIME = mimetype.Detect(data).String()
	f.group = classifyGroup(f.MIME, data, f.Size)

	return f
}

// Group reports the delivery bucket the file belongs to. Non-existent files
// fall through to document, but they never reach a send call anyway.
func (f *File) Group() Group {
	if !f.Exists {
		return GroupDocument
	}
	return f.group
}

// Payload returns the deliverable form of the file, absent when the file is
// missing or exceeds the upload ceiling.
func (f *File) Payload() (Payload, bool) {
	if !f.Exists || f.Size > MaxUploadSize {
		return Payload{}, false
	}
	return Payload{
		Group: f.group,
		Name:  f.Name,
		Bytes: f.Bytes,
		MIME:  f.MIME,
	}, true
}

func classifyGroup(mime string, data []byte, size int) Group {
	switch mime {
	case "image/jpeg", "image/png", "image/webp":
		if isSendablePhoto(data, size) {
			return GroupPhoto
		}
		return GroupDocument
	case "image/gif":
		return GroupAnimation
	case "video/mp4", "video/x-m4v":
		return GroupVideo
	case "audio/mpeg":
		return GroupAudio
	default:
		return GroupDocument
	}
}

// isSendablePhoto rejects images the messaging platform cannot render as an
// inline photo: extreme aspect ratios, oversized dimensions, or files past the
// large-image ceiling all get document treatment instead.
func isSendablePhoto(data []byte, size int) bool {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		logger := logging.Component("media")
		logger.Error().Err(err).Msg("Failed to decode image dimensions")
		return false
	}

	if cfg.Width == 0 || cfg.Height == 0 {
		return false
	}

	ratioWH := float64(cfg.Width) / float64(cfg.Height)
	ratioHW := float64(cfg.Height) / float64(cfg.Width)
	if ratioWH > 20 || ratioHW > 20 {
		return false
	}
	if cfg.Width+cfg.Height > 10000 {
		return false
	}
	if size > tenMB {
		return false
	}
	return true
}
