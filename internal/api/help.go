package api

import (
	"fmt"

	"notebot/internal/models"
)

// HelpText describes the HTTP surface.
var HelpText = fmt.Sprintf("POST /api/notes stores a note (limit %d per day). "+
	"GET /api/notes lists notes, GET /api/notes/menu lists delete candidates, "+
	"DELETE /api/notes?id=N removes one.", models.MaxNotes)
