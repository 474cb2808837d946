package ledger

import "notebot/internal/models"

const (
	ListPreviewLen = 30
	MenuPreviewLen = 25

	Ellipsis = "..."
)

// Item is a note as shown to the user.
type Item struct {
	ID      int    `json:"id"`
	Preview string `json:"preview"`
}

// Preview cuts text to limit characters and marks the cut with Ellipsis.
func Preview(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + Ellipsis
}

// Previews renders notes with the given limit.
func Previews(notes []models.Note, limit int) []Item {
	items := make([]Item, len(notes))
	for i, n := range notes {
		items[i] = Item{ID: n.ID, Preview: Preview(n.Text, limit)}
	}
	return items
}
