// Package templates holds the typed view models the embedded HTML
// documents are rendered against.
package templates

import "html/template"

// PageView contains the dynamic values for a rendered wiki page.
type PageView struct {
	Title        string
	Heading      string
	Name         string
	EditURL      string
	HTML         template.HTML
	LastModified string
	IsHome       bool
}

// EditView bundles the data for the create/edit form, including collected
// validation messages keyed by field name.
type EditView struct {
	Title         string
	Heading       string
	RequestedName string
	ID            uint
	Name          string
	Content       string
	Attachment    string
	Violations    map[string]string
	CSRFField     template.HTML
	IsHome        bool
}

// ListItem represents a single entry on the all-pages listing.
type ListItem struct {
	Name         string
	URL          string
	LastModified string
}

// ListView bundles the data for the all-pages listing.
type ListView struct {
	Title string
	Count int
	Pages []ListItem
}

// ErrorView holds information for rendering an error document.
type ErrorView struct {
	Title       string
	StatusLabel string
	Message     string
}
