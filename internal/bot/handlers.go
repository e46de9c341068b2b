package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"findit/internal/model"
	"findit/internal/report"
	"findit/internal/session"
	"findit/internal/storage"
)

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, `Welcome to FindIt!

Browse items people have lost, search them, and report your own.

Quick start:
1. /lost — browse lost items
2. type any text — search lost items
3. /report — report a lost or found item

Use /help for the full command reference.`)
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Browsing:
/lost — list lost items from the start
/more — load the next page
/status <all|found|notfound> — filter by status
/time <all|week|month> — filter by when the item was lost
/sort <latest|oldest> — order by lost date
/search <text> — search by keyword (or just type the text)
/clear — leave search and browse again
/founditems — list items people have found

Reporting:
`+usageReportLost+`
`+usageReportFound+`
/found <item_id> <code> — mark your lost item as found with the emailed code`)
}

func (b *Bot) handleLost(ctx context.Context, chatID int64) {
	b.resetController(chatID).Start(ctx)
}

func (b *Bot) handleMore(ctx context.Context, chatID int64) {
	c, created := b.controller(chatID)
	if created {
		c.Start(ctx)
		return
	}

	v := c.View()
	switch {
	case v.Mode == session.ModeSearch:
		b.reply(chatID, "Search results are shown all at once. Use /clear to browse again.")
	case v.IsFetching || v.IsFetchingMore:
		b.reply(chatID, "Still loading, please wait.")
	case !v.State.HasMore:
		b.reply(chatID, "No more items.")
	default:
		c.LoadMore(ctx)
	}
}

func (b *Bot) handleFilter(ctx context.Context, chatID int64, dim session.Dimension, args string) {
	value, err := ParseFilterArg(dim, args)
	if err != nil {
		b.reply(chatID, filterUsage(dim))
		return
	}

	c, _ := b.controller(chatID)
	if err := c.ApplyFilter(ctx, dim, value); err != nil {
		b.reply(chatID, filterUsage(dim))
	}
}

func (b *Bot) handleSearch(ctx context.Context, chatID int64, text string) {
	c, created := b.controller(chatID)
	if created && strings.TrimSpace(text) == "" {
		c.Start(ctx)
		return
	}
	c.SetSearchText(ctx, text)
}

func (b *Bot) handleFound(ctx context.Context, chatID int64, args string) {
	id, code, err := ParseFoundArgs(args)
	if err != nil {
		b.reply(chatID, "Usage: /found <item_id> <code>")
		return
	}

	c, _ := b.controller(chatID)
	err = c.MarkFound(ctx, id, code)

	var mismatch *session.VerificationMismatchError
	switch {
	case err == nil:
		b.reply(chatID, fmt.Sprintf("Item #%s marked as found. Glad you got it back!", id))
	case errors.As(err, &mismatch) && mismatch.Malformed:
		b.reply(chatID, "The verification code must be 6 digits.")
	case errors.As(err, &mismatch):
		b.reply(chatID, fmt.Sprintf("Wrong verification code for item #%s.", id))
	case errors.Is(err, storage.ErrNotFound):
		b.reply(chatID, fmt.Sprintf("Item #%s not found.", id))
	default:
		b.log.Error("mark found", "chat_id", chatID, "item_id", id, "error", err)
		b.reply(chatID, fmt.Sprintf("Could not verify item #%s, please try again.", id))
	}
}

func (b *Bot) handleReport(ctx context.Context, chatID int64, from *tgbotapi.User, args string) {
	in, err := ParseReportArgs(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}
	if from != nil {
		in.Fullname = strings.TrimSpace(from.FirstName + " " + from.LastName)
	}

	res, err := b.reports.Submit(ctx, in)
	var ve *report.ValidationError
	if errors.As(err, &ve) {
		b.reply(chatID, fmt.Sprintf("Invalid report: %v", ve))
		return
	}
	if err != nil {
		b.log.Error("submit report", "chat_id", chatID, "error", err)
		b.reply(chatID, "Failed to submit report. Please try again later.")
		return
	}

	if in.Kind == model.KindFound {
		b.reply(chatID, fmt.Sprintf("Found item #%s reported. Thank you!", res.ID))
		return
	}
	if res.EmailErr != nil {
		b.reply(chatID, fmt.Sprintf("Lost item #%s reported, but the verification email could not be sent.", res.ID))
		return
	}
	b.reply(chatID, fmt.Sprintf("Lost item #%s reported. A verification code was sent to %s.\nOnce you get your item back, send /found %s <code>.",
		res.ID, strings.TrimSpace(in.Email), res.ID))
}

func (b *Bot) handleFoundItems(ctx context.Context, chatID int64) {
	items, err := b.fetcher.FetchFound(ctx)
	if err != nil {
		b.log.Error("fetch found items", "chat_id", chatID, "error", err)
		b.reply(chatID, fmt.Sprintf("Could not load found items: %v", err))
		return
	}
	b.reply(chatID, FormatFoundList(items))
}

func filterUsage(dim session.Dimension) string {
	switch dim {
	case session.DimStatus:
		return "Usage: /status <all|found|notfound>"
	case session.DimTime:
		return "Usage: /time <all|week|month>"
	default:
		return "Usage: /sort <latest|oldest>"
	}
}
