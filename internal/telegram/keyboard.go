package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/SoarinFerret/BreakWarden/internal/config"
)

// Menu is the action keyboard attached to every reply. Button data is the
// action tag.
func Menu(cfg *config.Config) tgbotapi.InlineKeyboardMarkup {
	button := func(tag string) tgbotapi.InlineKeyboardButton {
		return tgbotapi.NewInlineKeyboardButtonData(buttonLabel(cfg, tag), tag)
	}

	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(button("work"), button("off")),
	}

	var breaks, others []tgbotapi.InlineKeyboardButton
	for _, kind := range cfg.ActivityKinds() {
		switch kind {
		case "eat", "toilet", "smoke":
			breaks = append(breaks, button(kind))
		default:
			others = append(others, button(kind))
		}
	}
	if len(breaks) > 0 {
		rows = append(rows, breaks)
	}
	// meeting sorts first among the rest, so it leads the row
	for len(others) > 0 {
		n := len(others)
		if n > 3 {
			n = 3
		}
		rows = append(rows, others[:n])
		others = others[n:]
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(button("back")))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func buttonLabel(cfg *config.Config, tag string) string {
	switch tag {
	case "work":
		return "🟢 Clock in"
	case "off":
		return "🔴 Clock off"
	case "back":
		return "↩️ Back"
	}
	if activity, ok := cfg.Activities[tag]; ok && activity.Label != "" {
		return activity.Label
	}
	return tag
}
