package investigation

import (
	"strings"

	"dcia/internal/models"
)

// Filter returns the artefacts whose name, significance, or any location
// contains the query, case-insensitively. An empty query returns the input
// unchanged. The result preserves the order of items and never contains
// artefacts that were not in the input.
//
// Filter is a pure function and cheap enough to run on every keystroke for
// realistic catalog sizes.
func Filter(items []models.Artefact, query string) []models.Artefact {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return items
	}
	matches := make([]models.Artefact, 0, len(items))
	for _, item := range items {
		if artefactMatches(item, query) {
			matches = append(matches, item)
		}
	}
	return matches
}

func artefactMatches(artefact models.Artefact, query string) bool {
	for _, field := range []string{
		artefact.Name,
		artefact.Significance,
		artefact.PrimaryLocation,
		artefact.AlsoFoundAt,
	} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}
