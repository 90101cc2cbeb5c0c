// SPDX-License-Identifier: AGPL-3.0-only
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// MinRefreshInterval is the floor for the periodic saved-posts refresh.
// Reddit rate-limits aggressively, so anything shorter just burns quota.
const MinRefreshInterval = 5 * time.Minute

type AppConfig struct {
	RedditUserAgent    string `env:"REDDIT_USER_AGENT,required"`
	RedditClientID     string `env:"REDDIT_CLIENT_ID,required"`
	RedditClientSecret string `env:"REDDIT_CLIENT_SECRET,required"`
	RedditUsername     string `env:"REDDIT_USERNAME,required"`
	RedditPassword     string `env:"REDDIT_PASSWORD,required"`

	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN,required"`
	TelegramChatID   int64  `env:"TELEGRAM_CHAT_ID,required"`

	PhotosWebhook     string `env:"PHOTOS_WEBHOOK"`
	AnimationsWebhook string `env:"ANIMATIONS_WEBHOOK"`
	VideosWebhook     string `env:"VIDEOS_WEBHOOK"`
	AudioWebhook      string `env:"AUDIO_WEBHOOK"`
	DocumentsWebhook  string `env:"DOCUMENTS_WEBHOOK"`
	MessagesWebhook   string `env:"MESSAGES_WEBHOOK"`
	GroupWebhook      string `env:"GROUP_WEBHOOK"`
	FailedWebhook     string `env:"FAILED_WEBHOOK"`

	FilebaseKey      string `env:"FILEBASE_KEY"`
	FilebaseSecret   string `env:"FILEBASE_SECRET"`
	FilebaseBucket   string `env:"FILEBASE_BUCKET_NAME"`
	FilebaseEndpoint string `env:"FILEBASE_ENDPOINT,default=https://s3.filebase.com"`

	SleepBetweenPosts time.Duration `env:"SLEEP_BETWEEN_POSTS,default=30s"`
	IdleSleep         time.Duration `env:"IDLE_SLEEP,default=10m"`
	SleepOnFailedGet  time.Duration `env:"SLEEP_ON_FAILED_GET,default=5s"`
	GetAttempts       int           `env:"GET_ATTEMPTS,default=3"`
	SleepOnFailedPost time.Duration `env:"SLEEP_ON_FAILED_POST,default=5s"`
	PostAttempts      int           `env:"POST_ATTEMPTS,default=3"`
	RefreshInterval   time.Duration `env:"REFRESH_INTERVAL,default=30m"`

	StateDir string `env:"STATE_DIR,default=."`
}

func Load(ctx context.Context) (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := envconfig.Process(ctx, cfg); err != nil {
		return nil, fmt.Errorf("parsing env vars: %w", err)
	}

	if cfg.RefreshInterval < MinRefreshInterval {
		cfg.RefreshInterval = MinRefreshInterval
	}
	if cfg.GetAttempts < 1 {
		cfg.GetAttempts = 1
	}
	if cfg.PostAttempts < 1 {
		cfg.PostAttempts = 1
	}

	return cfg, nil
}
