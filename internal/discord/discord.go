// SPDX-License-Identifier: AGPL-3.0-only
package discord

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/fluffyriot/rtsync/internal/logging"
)

// Notifier mirrors status messages to Discord webhooks. Sends are
// fire-and-forget: a failed webhook never affects the pipeline outcome.
type Notifier struct {
	session *discordgo.Session
	log     zerolog.Logger
}

func NewNotifier() (*Notifier, error) {
	// Webhook execution needs no bot identity, only the session's HTTP layer.
	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("creating Discord session: %w", err)
	}
	return &Notifier{
		session: session,
		log:     logging.Component("discord"),
	}, nil
}

// Send posts a message on the given webhook. Unconfigured webhooks are
// silently skipped so single-channel setups keep working.
func (n *Notifier) Send(webhookURL, message string) {
	if webhookURL == "" {
		return
	}

	id, token, err := parseWebhookURL(webhookURL)
	if err != nil {
		n.log.Error().Err(err).Msg("Invalid webhook URL")
		return
	}

	if _, err := n.session.WebhookExecute(id, token, false, &discordgo.WebhookParams{Content: message}); err != nil {
		n.log.Error().Err(err).Msg("Failed to post webhook message")
		return
	}
	n.log.Info().Msg("Message posted")
}

func parseWebhookURL(webhookURL string) (id, token string, err error) {
	const marker = "/webhooks/"
	idx := strings.Index(webhookURL, marker)
	if idx == -1 {
		return "", "", fmt.Errorf("missing webhook path in %s", webhookURL)
	}

	parts := strings.Split(strings.Trim(webhookURL[idx+len(marker):], "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed webhook path in %s", webhookURL)
	}
	return parts[0], parts[1], nil
}
