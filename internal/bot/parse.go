package bot

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"findit/internal/model"
	"findit/internal/report"
	"findit/internal/session"
)

const (
	usageReportLost  = "/report lost <description> | <location> | <email> | <DD/MM/YYYY> [| <HH:MM>]"
	usageReportFound = "/report found <description> | <location> | <email> | <image url>"
)

var filterAliases = map[session.Dimension]map[string]string{
	session.DimStatus: {
		"all":       string(model.StatusAll),
		"found":     string(model.StatusFound),
		"notfound":  string(model.StatusNotFound),
		"not-found": string(model.StatusNotFound),
		"missing":   string(model.StatusNotFound),
	},
	session.DimTime: {
		"all":       string(model.TimeAll),
		"week":      string(model.TimeLastWeek),
		"lastweek":  string(model.TimeLastWeek),
		"month":     string(model.TimeLastMonth),
		"lastmonth": string(model.TimeLastMonth),
	},
	session.DimSort: {
		"latest": string(model.SortLatest),
		"newest": string(model.SortLatest),
		"oldest": string(model.SortOldest),
	},
}

// ParseFilterArg maps a user-typed filter value to its canonical form.
func ParseFilterArg(dim session.Dimension, arg string) (string, error) {
	aliases, ok := filterAliases[dim]
	if !ok {
		return "", fmt.Errorf("unknown filter %q", dim)
	}
	v, ok := aliases[strings.ToLower(strings.TrimSpace(arg))]
	if !ok {
		return "", fmt.Errorf("invalid %s %q", dim, strings.TrimSpace(arg))
	}
	return v, nil
}

// ParseFoundArgs extracts the item ID and verification code of /found.
func ParseFoundArgs(args string) (id, code string, err error) {
	parts := strings.Fields(args)
	if len(parts) != 2 {
		return "", "", errors.New("usage: /found <item_id> <code>")
	}
	return parts[0], parts[1], nil
}

// ParseReportArgs parses /report arguments into a submission. Fields after
// the kind are separated by "|".
func ParseReportArgs(args string) (report.Input, error) {
	kind, rest, _ := strings.Cut(strings.TrimSpace(args), " ")
	var parts []string
	for _, p := range strings.Split(rest, "|") {
		parts = append(parts, strings.TrimSpace(p))
	}

	switch model.ReportKind(strings.ToLower(kind)) {
	case model.KindLost:
		if len(parts) < 4 || len(parts) > 5 {
			return report.Input{}, errors.New("usage: " + usageReportLost)
		}
		date, err := time.Parse("02/01/2006", parts[3])
		if err != nil {
			return report.Input{}, fmt.Errorf("invalid date %q, use DD/MM/YYYY", parts[3])
		}
		in := report.Input{
			Kind:        model.KindLost,
			Description: parts[0],
			Location:    parts[1],
			Email:       parts[2],
			DateLost:    date,
		}
		if len(parts) == 5 && parts[4] != "" {
			clock, err := time.Parse("15:04", parts[4])
			if err != nil {
				return report.Input{}, fmt.Errorf("invalid time %q, use HH:MM", parts[4])
			}
			in.DateLost = date.Add(time.Duration(clock.Hour())*time.Hour + time.Duration(clock.Minute())*time.Minute)
			in.TimeLost = parts[4]
		}
		return in, nil
	case model.KindFound:
		if len(parts) != 4 {
			return report.Input{}, errors.New("usage: " + usageReportFound)
		}
		return report.Input{
			Kind:        model.KindFound,
			Description: parts[0],
			Location:    parts[1],
			Email:       parts[2],
			ImageURL:    parts[3],
		}, nil
	}
	return report.Input{}, fmt.Errorf("usage:\n%s\n%s", usageReportLost, usageReportFound)
}
