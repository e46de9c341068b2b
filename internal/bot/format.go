package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"findit/internal/model"
	"findit/internal/session"
)

const (
	statusFound    = "FOUND"
	statusNotFound = "not found"
)

// FormatLostItem formats a single lost report.
func FormatLostItem(it model.LostReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%s %s\n", it.ID, it.Description)
	fmt.Fprintf(&b, "Location: %s\n", it.Location)
	if it.DateLostDisplay != "" {
		b.WriteString("Lost: " + it.DateLostDisplay)
		if it.TimeLost != "" {
			b.WriteString(" " + it.TimeLost)
		}
		b.WriteString("\n")
	}
	status := statusNotFound
	if it.IsFound {
		status = statusFound
	}
	fmt.Fprintf(&b, "Status: %s\n", status)
	if contact := contactLine(it.Report); contact != "" {
		fmt.Fprintf(&b, "Contact: %s\n", contact)
	}
	if it.ImageURL != "" {
		b.WriteString(it.ImageURL + "\n")
	}
	return b.String()
}

// FormatLoaded formats the first page of a list or a search result.
func FormatLoaded(v session.View) string {
	var b strings.Builder
	if v.Mode == session.ModeSearch {
		fmt.Fprintf(&b, "Search results for %q (%s)\n", strings.TrimSpace(v.State.SearchText), FormatFilters(v.State))
	} else {
		fmt.Fprintf(&b, "Lost items (%s)\n", FormatFilters(v.State))
	}
	if len(v.Items) == 0 {
		b.WriteString("\nNo items found.")
		return b.String()
	}
	for _, it := range v.Items {
		b.WriteString("\n")
		b.WriteString(FormatLostItem(it))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatAppended formats the items added by a load-more.
func FormatAppended(items []model.LostReport) string {
	if len(items) == 0 {
		return "No more items match the current filters."
	}
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, strings.TrimRight(FormatLostItem(it), "\n"))
	}
	return strings.Join(parts, "\n\n")
}

// FormatFilters describes the active filters.
func FormatFilters(s model.QueryState) string {
	return fmt.Sprintf("status: %s, time: %s, sort: %s", s.Status, s.Time, s.Sort)
}

// FormatFoundList formats the found-report listing.
func FormatFoundList(items []model.FoundReport) string {
	if len(items) == 0 {
		return "No found items have been reported yet."
	}
	var b strings.Builder
	b.WriteString("Found items:\n")
	for _, it := range items {
		fmt.Fprintf(&b, "\n#%s %s\nLocation: %s\n", it.ID, it.Description, it.Location)
		if contact := contactLine(it.Report); contact != "" {
			fmt.Fprintf(&b, "Contact: %s\n", contact)
		}
		if it.ImageURL != "" {
			b.WriteString(it.ImageURL + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func contactLine(r model.Report) string {
	var parts []string
	for _, p := range []string{r.Fullname, r.Email, r.PhoneNumber} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// listKeyboard offers load-more (browse mode only) and the filter toggles.
func listKeyboard(v session.View) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	if v.Mode == session.ModeBrowse && v.State.HasMore {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Load more", actionMore+":"),
		))
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("All", "status:"+string(model.StatusAll)),
			tgbotapi.NewInlineKeyboardButtonData("Found", "status:"+string(model.StatusFound)),
			tgbotapi.NewInlineKeyboardButtonData("Not found", "status:"+string(model.StatusNotFound)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Any time", "time:"+string(model.TimeAll)),
			tgbotapi.NewInlineKeyboardButtonData("Last week", "time:"+string(model.TimeLastWeek)),
			tgbotapi.NewInlineKeyboardButtonData("Last month", "time:"+string(model.TimeLastMonth)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Latest", "sort:"+string(model.SortLatest)),
			tgbotapi.NewInlineKeyboardButtonData("Oldest", "sort:"+string(model.SortOldest)),
		),
	)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// retryKeyboard repeats a failed load-more, or reloads the list from the
// start when the first page failed.
func retryKeyboard(v session.View) tgbotapi.InlineKeyboardMarkup {
	data := "status:" + string(v.State.Status)
	if v.Mode == session.ModeBrowse && v.State.HasMore && len(v.Items) > 0 {
		data = actionMore + ":"
	}
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Retry", data),
	))
}
