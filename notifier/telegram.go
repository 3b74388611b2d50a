// Package notifier tells someone how a run went.
package notifier

import (
	"context"
	"fmt"
	"html"
	"strings"

	"mars-scraper/models"

	"github.com/charmbracelet/log"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier reports the outcome of a run
type Notifier interface {
	Notify(ctx context.Context, results *models.Results, report *models.Report) error
}

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram sends run summaries to one chat
type Telegram struct {
	bot    sender
	chatID int64
}

// NewTelegram connects to the Telegram bot API
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	log.Debug("telegram bot authorized", "account", bot.Self.UserName)
	return &Telegram{bot: bot, chatID: chatID}, nil
}

// Notify implements the Notifier interface
func (t *Telegram) Notify(ctx context.Context, results *models.Results, report *models.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, FormatSummary(results, report))
	msg.ParseMode = "HTML"
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

// FormatSummary renders a run as a Telegram HTML message
func FormatSummary(results *models.Results, report *models.Report) string {
	var b strings.Builder

	failed := report.Failed()
	switch {
	case report.AllFailed():
		b.WriteString("❌ Mars scrape failed\n")
	case len(failed) > 0:
		fmt.Fprintf(&b, "⚠️ Mars scrape finished with %d failed section(s)\n", len(failed))
	default:
		b.WriteString("✅ Mars scrape finished\n")
	}

	if results.News.Title != "" {
		fmt.Fprintf(&b, "\n<b>%s</b>\n%s\n", html.EscapeString(results.News.Title), html.EscapeString(results.News.Summary))
	}
	if results.Image.URL != "" {
		fmt.Fprintf(&b, "\nFeatured image: %s\n", html.EscapeString(results.Image.URL))
	}
	if n := len(results.Facts.Rows); n > 0 {
		fmt.Fprintf(&b, "Facts: %d rows\n", n)
	}
	if n := len(results.Hemispheres); n > 0 {
		fmt.Fprintf(&b, "Hemispheres: %d\n", n)
		for _, h := range results.Hemispheres {
			fmt.Fprintf(&b, "• <a href=\"%s\">%s</a>\n", html.EscapeString(h.ImageURL), html.EscapeString(h.Title))
		}
	}

	if len(failed) > 0 {
		b.WriteString("\n<b>Failed</b>\n")
		for _, s := range failed {
			fmt.Fprintf(&b, "• %s (%s): %s\n", s.Section, s.Kind, html.EscapeString(s.Message))
		}
	}
	return b.String()
}
