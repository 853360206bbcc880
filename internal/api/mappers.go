package api

import "github.com/erikwj/sre-platform/internal/database"

// IncidentToListItem converts a database Incident to a compact list representation.
func IncidentToListItem(i database.Incident) IncidentListItem {
	return IncidentListItem{
		ID:               i.ID,
		UUID:             i.UUID,
		Number:           i.Number,
		Title:            i.Title,
		Severity:         i.Severity,
		Status:           i.Status,
		AffectedServices: i.AffectedServices,
		DetectedAt:       i.DetectedAt,
		ResolvedAt:       i.ResolvedAt,
		CreatedAt:        i.CreatedAt,
		UpdatedAt:        i.UpdatedAt,
	}
}

// IncidentsToListItems converts a slice of database Incidents to list items.
func IncidentsToListItems(incidents []database.Incident) []IncidentListItem {
	items := make([]IncidentListItem, len(incidents))
	for i, inc := range incidents {
		items[i] = IncidentToListItem(inc)
	}
	return items
}
