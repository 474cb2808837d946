package telegram

import (
	"fmt"
	"strings"

	"notebot/internal/ledger"
	"notebot/internal/models"
	"notebot/internal/session"
)

const (
	deletePrefix = "del_"

	emptyListText = "📭 You have no notes."
	emptyMenuText = "📭 You have no notes to delete."
	menuTitle     = "🗑 Choose a note to delete:"
	notFoundText  = "⚠️ That note no longer exists. Open /delete again to see the current list."
	failureText   = "⚠️ Something went wrong, please try again later."
)

// HelpText is the reply to /start.
var HelpText = fmt.Sprintf("📝 Notes bot\n\n"+
	"Send a message and it is saved as a note.\n"+
	"Limit: %d messages per day.\n\n"+
	"/notes - show all notes\n"+
	"/delete - delete a note", models.MaxNotes)

func savedText(c session.Confirmation) string {
	return fmt.Sprintf("✅ Note saved!\nRemaining: %d/%d", c.Remaining, c.Limit)
}

func deletedText(c session.Confirmation) string {
	return fmt.Sprintf("✅ Note deleted!\nRemaining: %d/%d", c.Remaining, c.Limit)
}

func quotaText() string {
	return fmt.Sprintf("❌ Limit reached! Remaining: 0/%d\n"+
		"Delete a note via /delete and send your message again.", models.MaxNotes)
}

func listText(items []ledger.Item) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📝 Your notes (%d/%d):\n\n", len(items), models.MaxNotes)
	for _, it := range items {
		fmt.Fprintf(&b, "%d. %s\n", it.ID, it.Preview)
	}
	return b.String()
}
