// SPDX-License-Identifier: AGPL-3.0-only
package telegram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/fluffyriot/rtsync/internal/logging"
	"github.com/fluffyriot/rtsync/internal/media"
)

// poster is the retrying POST capability the client sends through.
type poster interface {
	PostForm(apiURL, contentType string, body []byte) ([]byte, bool)
}

// Client delivers files and messages to one chat through the Bot API.
type Client struct {
	token   string
	chatID  int64
	poster  poster
	apiBase string
	log     zerolog.Logger
}

func NewClient(token string, chatID int64, p poster) *Client {
	return &Client{
		token:   token,
		chatID:  chatID,
		poster:  p,
		apiBase: "https://api.telegram.org",
		log:     logging.Component("telegram"),
	}
}

func (c *Client) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.apiBase, c.token, method)
}

func methodForGroup(g media.Group) string {
	switch g {
	case media.GroupPhoto:
		return "sendPhoto"
	case media.GroupAnimation:
		return "sendAnimation"
	case media.GroupVideo:
		return "sendVideo"
	case media.GroupAudio:
		return "sendAudio"
	default:
		return "sendDocument"
	}
}

// SendBatch delivers one logical post: multiple pairs go out as a single
// combined media group, a lone pair delegates to the single-file path.
func (c *Client) SendBatch(files []*media.File, captions []string) (bool, string) {
	if len(captions) > 1 {
		return c.sendGroup(files, captions)
	}
	return c.SendSingle(files[0], captions[0])
}

// SendSingle picks the endpoint matching the file's delivery group. A file
// past the upload ceiling degrades to a caption-only message, which still
// counts as success; a file that never fetched fails without a network call.
func (c *Client) SendSingle(file *media.File, caption string) (bool, string) {
	payload, ok := file.Payload()
	if ok {
		body, contentType, err := encodeFilePart(payload, map[string]string{
			"chat_id": strconv.FormatInt(c.chatID, 10),
			"caption": caption,
		})
		if err != nil {
			c.log.Error().Err(err).Msg("Failed to encode upload")
			return false, "failed"
		}

		c.log.Info().Str("group", string(payload.Group)).Msg("Sending file")
		if _, sent := c.poster.PostForm(c.endpoint(methodForGroup(payload.Group)), contentType, body); !sent {
			return false, "failed"
		}
		return true, string(payload.Group)
	}

	if file.Exists {
		c.log.Info().Int("size", file.Size).Msg("File exceeds upload ceiling, sent as message")
		form := url.Values{
			"chat_id": {strconv.FormatInt(c.chatID, 10)},
			"text":    {caption},
		}
		if _, sent := c.poster.PostForm(c.endpoint("sendMessage"), "application/x-www-form-urlencoded", []byte(form.Encode())); !sent {
			return false, "failed"
		}
		return true, "message"
	}

	c.log.Info().Str("url", file.URL).Msg("File does not exist")
	return false, "failed"
}

type groupItem struct {
	Type    string `json:"type"`
	Media   string `json:"media"`
	Caption string `json:"caption"`
}

// sendGroup sends a combined delivery. Mixed batches are not accepted by the
// API, so one document-class member degrades every member to document.
func (c *Client) sendGroup(files []*media.File, captions []string) (bool, string) {
	groups := make([]media.Group, len(files))
	mixed := false
	for i, file := range files {
		groups[i] = file.Group()
		if groups[i] == media.GroupDocument {
			mixed = true
		}
	}
	if mixed {
		for i := range groups {
			groups[i] = media.GroupDocument
		}
	}

	items := make([]groupItem, len(files))
	for i, file := range files {
		items[i] = groupItem{
			Type:    string(groups[i]),
			Media:   "attach://" + file.Name,
			Caption: captions[i],
		}
	}

	mediaJSON, err := json.Marshal(items)
	if err != nil {
		c.log.Error().Err(err).Msg("Failed to encode media group")
		return false, "failed"
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	_ = writer.WriteField("chat_id", strconv.FormatInt(c.chatID, 10))
	_ = writer.WriteField("media", string(mediaJSON))
	for _, file := range files {
		part, err := writer.CreateFormFile(file.Name, file.Name)
		if err != nil {
			c.log.Error().Err(err).Msg("Failed to encode attachment")
			return false, "failed"
		}
		_, _ = part.Write(file.Bytes)
	}
	if err := writer.Close(); err != nil {
		c.log.Error().Err(err).Msg("Failed to finalize upload")
		return false, "failed"
	}

	c.log.Info().Int("files", len(files)).Msg("Sending files as media group")
	if _, sent := c.poster.PostForm(c.endpoint("sendMediaGroup"), writer.FormDataContentType(), buf.Bytes()); !sent {
		return false, "failed"
	}
	return true, "group"
}

// encodeFilePart builds a multipart body with the given form fields and one
// file part whose field name matches the delivery group.
func encodeFilePart(payload media.Payload, fields map[string]string) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", err
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, payload.Group, payload.Name))
	header.Set("Content-Type", payload.MIME)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(payload.Bytes); err != nil {
		return nil, "", err
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}
