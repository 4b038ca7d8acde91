// Package publish delivers finished reports to chat destinations.
package publish

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/stellarlinkco/chatstats/internal/config"
	"github.com/stellarlinkco/chatstats/internal/report"
)

// Telegram has a 4096 char limit per message
const maxMessageLen = 4000

// TelegramBot interface for mocking telegram bot API
type TelegramBot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetSelf() tgbotapi.User
}

// tgBotWrapper wraps tgbotapi.BotAPI to implement TelegramBot interface
type tgBotWrapper struct {
	bot *tgbotapi.BotAPI
}

func (w *tgBotWrapper) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	return w.bot.Send(c)
}

func (w *tgBotWrapper) GetSelf() tgbotapi.User {
	return w.bot.Self
}

// BotFactory creates TelegramBot instances (allows mocking)
type BotFactory func(token, apiEndpoint string, client *http.Client) (TelegramBot, error)

var defaultBotFactory BotFactory = func(token, apiEndpoint string, client *http.Client) (TelegramBot, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, apiEndpoint, client)
	if err != nil {
		return nil, err
	}
	return &tgBotWrapper{bot: bot}, nil
}

// TelegramPublisher posts the ranking and the word cloud to one chat.
type TelegramPublisher struct {
	token      string
	chatID     int64
	proxy      string
	bot        TelegramBot
	botFactory BotFactory
}

func NewTelegramPublisher(cfg config.TelegramConfig) (*TelegramPublisher, error) {
	return NewTelegramPublisherWithFactory(cfg, defaultBotFactory)
}

// NewTelegramPublisherWithFactory creates a TelegramPublisher with custom bot factory (for testing)
func NewTelegramPublisherWithFactory(cfg config.TelegramConfig, factory BotFactory) (*TelegramPublisher, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}
	if cfg.ChatID == 0 {
		return nil, fmt.Errorf("telegram chat id is required")
	}
	return &TelegramPublisher{
		token:      cfg.Token,
		chatID:     cfg.ChatID,
		proxy:      cfg.Proxy,
		botFactory: factory,
	}, nil
}

func (p *TelegramPublisher) initBot() error {
	if p.bot != nil {
		return nil
	}

	client := http.DefaultClient
	if p.proxy != "" {
		proxyURL, err := url.Parse(p.proxy)
		if err != nil {
			return fmt.Errorf("parse proxy url: %w", err)
		}
		client = &http.Client{
			Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
		}
	}

	bot, err := p.botFactory(p.token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return fmt.Errorf("create telegram bot: %w", err)
	}
	p.bot = bot
	log.Printf("[telegram] authorized as @%s", bot.GetSelf().UserName)
	return nil
}

// Publish sends the ranking as a text message, followed by the word cloud
// image when the report has one.
func (p *TelegramPublisher) Publish(ctx context.Context, rep *report.Report) error {
	if err := p.initBot(); err != nil {
		return err
	}

	if err := p.sendText(rep.TelegramHTML()); err != nil {
		return err
	}

	if rep.WordCloud == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	photo := tgbotapi.NewPhoto(p.chatID, tgbotapi.FilePath(rep.WordCloud))
	photo.Caption = rep.Chat
	if _, err := p.bot.Send(photo); err != nil {
		return fmt.Errorf("send telegram photo: %w", err)
	}
	log.Printf("[telegram] published report for %s to chat %d", rep.Transcript, p.chatID)
	return nil
}

func (p *TelegramPublisher) sendText(content string) error {
	for _, chunk := range splitMessage(content, maxMessageLen) {
		msg := tgbotapi.NewMessage(p.chatID, chunk)
		msg.ParseMode = tgbotapi.ModeHTML
		if _, err := p.bot.Send(msg); err != nil {
			// Retry without HTML parse mode
			msg.ParseMode = ""
			msg.Text = stripTags(chunk)
			if _, err2 := p.bot.Send(msg); err2 != nil {
				return fmt.Errorf("send telegram message: %w", err2)
			}
		}
	}
	return nil
}

// splitMessage cuts content into chunks of at most maxLen bytes, preferring
// to break at the last newline. Hard cuts never split a rune.
func splitMessage(content string, maxLen int) []string {
	var chunks []string
	for len(content) > 0 {
		chunk := content
		if len(chunk) > maxLen {
			idx := strings.LastIndex(chunk[:maxLen], "\n")
			if idx > 0 {
				chunk = chunk[:idx]
			} else {
				chunk = chunk[:runeBoundary(chunk, maxLen)]
			}
		}
		content = strings.TrimPrefix(content[len(chunk):], "\n")
		chunks = append(chunks, chunk)
	}
	return chunks
}

func runeBoundary(s string, n int) int {
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if cut == 0 {
		return n
	}
	return cut
}

var tagReplacer = strings.NewReplacer(
	"<b>", "", "</b>", "",
	"<code>", "", "</code>", "",
	"&lt;", "<", "&gt;", ">", "&amp;", "&", "&#34;", "\"", "&#39;", "'",
)

func stripTags(s string) string {
	return tagReplacer.Replace(s)
}
