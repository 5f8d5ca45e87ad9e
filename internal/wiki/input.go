package wiki

import "strings"

// PageInput carries a submitted create/edit form before normalization and
// sanitization. ID is zero when the visitor is creating a new page.
type PageInput struct {
	ID         uint   `json:"id" schema:"id"`
	Name       string `json:"name" schema:"name"`
	Content    string `json:"content" schema:"content"`
	Attachment string `json:"attachment" schema:"attachment"`
}

// NormalizeName converts a submitted page name into its stored form:
// surrounding whitespace trimmed, spaces replaced with hyphens, lowercased.
func NormalizeName(raw string) string {
	trimmed := strings.TrimSpace(raw)
	return strings.ToLower(strings.ReplaceAll(trimmed, " ", "-"))
}
