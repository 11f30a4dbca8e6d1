// Package telegram sends the provisioning report to a Telegram chat.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fgeck/remote-install/internal/models"
	"github.com/rs/zerolog"
)

// Service defines the interface for Telegram notification operations.
type Service interface {
	SendNotification(ctx context.Context, cfg models.TelegramConfig, msg models.TelegramMessage) (*models.TelegramResult, error)
}

// HTTPClient allows mocking HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Impl implements the Telegram Service interface.
type Impl struct {
	httpClient HTTPClient
	logger     zerolog.Logger
	baseURL    string
}

// New creates a new Telegram service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:  logger,
		baseURL: "https://api.telegram.org",
	}
}

// NewWithClient creates a new Telegram service with a custom HTTP client (for testing).
func NewWithClient(logger zerolog.Logger, httpClient HTTPClient, baseURL string) *Impl {
	return &Impl{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    baseURL,
	}
}

// sendMessageRequest is the request body for Telegram sendMessage API.
type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendNotification sends a provisioning report via Telegram.
func (s *Impl) SendNotification(ctx context.Context, cfg models.TelegramConfig, msg models.TelegramMessage) (*models.TelegramResult, error) {
	result := &models.TelegramResult{}

	s.logger.Info().
		Str("chat_id", cfg.ChatID).
		Bool("completed", msg.Summary.Completed()).
		Msg("sending Telegram notification")

	reqBody := sendMessageRequest{
		ChatID:    cfg.ChatID,
		Text:      s.formatMessage(msg),
		ParseMode: "HTML",
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		result.Error = fmt.Errorf("failed to marshal request: %w", err)
		return result, nil
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, cfg.BotToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		result.Error = fmt.Errorf("failed to create request: %w", err)
		return result, nil
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		result.Error = fmt.Errorf("failed to send request: %w", err)
		return result, nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		result.Error = fmt.Errorf("telegram API returned status %d", resp.StatusCode)
		return result, nil
	}

	result.MessageSent = true
	s.logger.Info().Msg("Telegram notification sent successfully")

	return result, nil
}

// formatMessage renders the summary. The database password is never included.
func (s *Impl) formatMessage(msg models.TelegramMessage) string {
	var b bytes.Buffer
	sum := msg.Summary

	switch {
	case msg.Error != nil:
		b.WriteString("❌ <b>Remote Server did not complete</b>\n\n")
	case sum.Cancelled:
		b.WriteString("⏹ <b>Remote Server Install Cancelled</b>\n\n")
	case sum.Completed():
		b.WriteString("✅ <b>Remote Server Setup Complete</b>\n\n")
	default:
		b.WriteString("❌ <b>Remote Server did not complete</b>\n\n")
	}

	b.WriteString(fmt.Sprintf("🖥 <b>Host:</b> %s\n", escapeHTML(sum.Target.Hostname)))
	if sum.Target.ResolvedIP != "" {
		b.WriteString(fmt.Sprintf("🌐 <b>IP:</b> %s\n", escapeHTML(sum.Target.ResolvedIP)))
	}
	if sum.Admin.Username != "" {
		b.WriteString(fmt.Sprintf("👤 <b>Admin:</b> %s\n", escapeHTML(sum.Admin.Username)))
	}
	b.WriteString(fmt.Sprintf("⏰ <b>Started:</b> %s\n", msg.StartTime.Format("2006-01-02 15:04:05")))
	b.WriteString(fmt.Sprintf("⏱ <b>Duration:</b> %s\n", msg.Duration.Round(time.Second)))

	if sum.Report != nil && len(sum.Report.Outcomes) > 0 {
		b.WriteString("\n<b>🔎 Verification:</b>\n")
		for _, o := range sum.Report.Outcomes {
			status := "ok"
			switch {
			case o.Skipped:
				status = "skipped"
			case !o.Succeeded:
				status = "failed"
			}
			b.WriteString(fmt.Sprintf("  • %s: %s\n", escapeHTML(o.ServiceName), status))
			for _, line := range o.ErrorLines {
				b.WriteString(fmt.Sprintf("    <code>%s</code>\n", escapeHTML(redact(line, sum.Credentials.MySQLPassword))))
			}
		}
	}

	if msg.Error != nil {
		b.WriteString(fmt.Sprintf("\n<b>Error:</b>\n<code>%s</code>\n", escapeHTML(redact(msg.Error.Error(), sum.Credentials.MySQLPassword))))
	}

	if sum.RestartCommand != "" {
		b.WriteString(fmt.Sprintf("\n🔁 <b>Apache Restart Command:</b> <code>%s</code>\n", escapeHTML(sum.RestartCommand)))
	}

	return b.String()
}

func redact(s, secret string) string {
	if secret == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, "****")
}

// escapeHTML escapes HTML special characters.
func escapeHTML(s string) string {
	var b bytes.Buffer
	for _, r := range s {
		switch r {
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '&':
			b.WriteString("&amp;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
