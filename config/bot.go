package config

import "time"

// BotConfig contains chat transport configuration.
type BotConfig struct {
	// Token authenticates the bot against the chat platform.
	Token string `env:"TELEGRAM_BOT_TOKEN"`

	// PollTimeout is the long-poll timeout for fetching updates.
	PollTimeout time.Duration `env:"BOT_POLL_TIMEOUT" envDefault:"30s"`

	// HistoryLimit caps how many past jobs the history command shows.
	HistoryLimit int `env:"BOT_HISTORY_LIMIT" envDefault:"10"`

	// PromptMinLength is the minimum accepted prompt length in characters.
	PromptMinLength int `env:"BOT_PROMPT_MIN_LENGTH" envDefault:"10"`

	// PromptMaxLength is the maximum accepted prompt length in characters.
	PromptMaxLength int `env:"BOT_PROMPT_MAX_LENGTH" envDefault:"500"`
}

// Sanitize applies guardrails to bot configuration values.
func (b *BotConfig) Sanitize() {
	if b.PollTimeout <= 0 {
		b.PollTimeout = 30 * time.Second
	}
	if b.HistoryLimit < 1 {
		b.HistoryLimit = 1
	}
	if b.PromptMinLength < 1 {
		b.PromptMinLength = 1
	}
	if b.PromptMaxLength < b.PromptMinLength {
		b.PromptMaxLength = b.PromptMinLength
	}
}
