package models

import "time"

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	BotToken string
	ChatID   string
}

// TelegramMessage holds the data for a provisioning notification.
type TelegramMessage struct {
	Summary   ProvisionSummary
	StartTime time.Time
	Duration  time.Duration
	Error     error // fatal error that ended the run, if any
}

// TelegramResult holds the result of a Telegram notification.
type TelegramResult struct {
	MessageSent bool
	Error       error
}
