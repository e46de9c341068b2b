package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"findit/internal/session"
)

const actionMore = "more"

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	callback := tgbotapi.NewCallback(cb.ID, "")
	if _, err := b.api.Send(callback); err != nil {
		b.log.Error("send callback ack", "error", err)
	}
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	action, value, ok := strings.Cut(cb.Data, ":")
	if !ok {
		return
	}

	var userID int64
	var username string
	if cb.From != nil {
		userID, username = cb.From.ID, cb.From.UserName
	}
	b.log.Info("callback",
		"action", action,
		"value", value,
		"chat_id", chatID,
		"user_id", userID,
		"username", username,
	)

	switch action {
	case actionMore:
		b.handleMore(ctx, chatID)
	case string(session.DimStatus), string(session.DimTime), string(session.DimSort):
		b.handleFilter(ctx, chatID, session.Dimension(action), value)
	}
}
