// Package bot hosts list sessions in Telegram chats: commands and inline
// buttons drive a session, and session updates are rendered as messages.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"findit/internal/config"
	"findit/internal/model"
	"findit/internal/report"
	"findit/internal/session"
)

const maxMessageLen = 4000

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Fetcher lists lost and found reports.
type Fetcher interface {
	session.PageFetcher
	FetchFound(ctx context.Context) ([]model.FoundReport, error)
}

// Submitter stores new reports.
type Submitter interface {
	Submit(ctx context.Context, in report.Input) (*report.Result, error)
}

// Bot is the Telegram bot. Every chat owns one list session.
type Bot struct {
	api     telegramAPI
	fetcher Fetcher
	store   session.Store
	reports Submitter
	cfg     *config.Config
	log     *slog.Logger

	mu       sync.Mutex
	sessions map[int64]*session.Controller
}

// New creates a Bot with the given Telegram token and collaborators.
func New(token string, f Fetcher, store session.Store, reports Submitter, cfg *config.Config, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Bot{
		api:      api,
		fetcher:  f,
		store:    store,
		reports:  reports,
		cfg:      cfg,
		log:      log,
		sessions: make(map[int64]*session.Controller),
	}, nil
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.closeSessions()
			return
		case update := <-updates:
			if update.CallbackQuery != nil {
				if !b.cfg.IsUserAllowed(update.CallbackQuery.From.ID) {
					continue
				}
				b.handleCallback(ctx, update.CallbackQuery)
				continue
			}
			if update.Message == nil || update.Message.From == nil {
				continue
			}
			if !b.cfg.IsUserAllowed(update.Message.From.ID) {
				b.reply(update.Message.Chat.ID, "Access denied.")
				continue
			}
			if update.Message.IsCommand() {
				b.handleCommand(ctx, update.Message)
				continue
			}
			if text := strings.TrimSpace(update.Message.Text); text != "" {
				b.handleSearch(ctx, update.Message.Chat.ID, update.Message.Text)
			}
		}
	}
}

// SendMessage sends a text message to the given chat.
func (b *Bot) SendMessage(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, truncate(text)))
}

func (b *Bot) reply(chatID int64, text string) {
	b.SendMessage(chatID, text)
}

func (b *Bot) replyWithKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, truncate(text))
	msg.ReplyMarkup = kb
	b.send(msg)
}

func (b *Bot) send(msg tgbotapi.MessageConfig) {
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", msg.ChatID, "error", err)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(chatID)
	case "help":
		b.handleHelp(chatID)
	case "lost":
		b.handleLost(ctx, chatID)
	case actionMore:
		b.handleMore(ctx, chatID)
	case "status":
		b.handleFilter(ctx, chatID, session.DimStatus, args)
	case "time":
		b.handleFilter(ctx, chatID, session.DimTime, args)
	case "sort":
		b.handleFilter(ctx, chatID, session.DimSort, args)
	case "search":
		b.handleSearch(ctx, chatID, args)
	case "clear":
		b.handleSearch(ctx, chatID, "")
	case "found":
		b.handleFound(ctx, chatID, args)
	case "report":
		b.handleReport(ctx, chatID, msg.From, args)
	case "founditems":
		b.handleFoundItems(ctx, chatID)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}

// controller returns the chat's session, creating it when missing. The
// second result reports whether it was created.
func (b *Bot) controller(chatID int64) (*session.Controller, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.sessions[chatID]; ok {
		return c, false
	}
	c := b.newController(chatID)
	b.sessions[chatID] = c
	return c, true
}

// resetController replaces the chat's session with a fresh one.
func (b *Bot) resetController(chatID int64) *session.Controller {
	b.mu.Lock()
	defer b.mu.Unlock()
	if old, ok := b.sessions[chatID]; ok {
		old.Close()
	}
	c := b.newController(chatID)
	b.sessions[chatID] = c
	return c
}

func (b *Bot) newController(chatID int64) *session.Controller {
	cfg := session.Config{
		PageSize:     b.cfg.PageSize,
		SearchDelay:  b.cfg.SearchDebounce,
		StoreTimeout: b.cfg.StoreTimeout,
	}
	log := b.log.With("chat_id", chatID)
	return session.New(b.fetcher, b.store, cfg, log, func(u session.Update) {
		b.render(chatID, u)
	})
}

func (b *Bot) closeSessions() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, c := range b.sessions {
		c.Close()
		delete(b.sessions, id)
	}
}

func (b *Bot) render(chatID int64, u session.Update) {
	switch u.Kind {
	case session.UpdateLoaded:
		b.replyWithKeyboard(chatID, FormatLoaded(u.View), listKeyboard(u.View))
	case session.UpdateAppended:
		text := FormatAppended(u.New)
		if len(u.New) == 0 && u.View.State.HasMore {
			text = "No items on this page match the current filters."
		}
		b.replyWithKeyboard(chatID, text, listKeyboard(u.View))
	case session.UpdateFailed:
		b.replyWithKeyboard(chatID, fmt.Sprintf("Could not load items: %v", u.View.Err), retryKeyboard(u.View))
	}
}

func truncate(text string) string {
	if len(text) <= maxMessageLen {
		return text
	}
	cut := text[:maxMessageLen]
	if i := strings.LastIndex(cut, "\n\n"); i > 0 {
		cut = cut[:i]
	}
	return cut + "\n\n(truncated)"
}
