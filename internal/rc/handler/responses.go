package handler

import "rctrack/internal/rc/models"

const msgEntryDeleted = "RC entry deleted successfully"

// EntryResponse wraps a single entry.
type EntryResponse struct {
	Success bool          `json:"success"`
	Data    *models.Entry `json:"data"`
}

// ListResponse wraps a listing together with its size.
type ListResponse struct {
	Success bool            `json:"success"`
	Count   int             `json:"count"`
	Data    []*models.Entry `json:"data"`
}

// DeleteResponse confirms a deletion. Data is always an empty object.
type DeleteResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Data    struct{} `json:"data"`
}

func entryResponse(e *models.Entry) EntryResponse {
	return EntryResponse{Success: true, Data: e}
}

func listResponse(entries []*models.Entry) ListResponse {
	if entries == nil {
		entries = []*models.Entry{}
	}
	return ListResponse{Success: true, Count: len(entries), Data: entries}
}
