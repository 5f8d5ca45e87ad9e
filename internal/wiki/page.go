package wiki

import "gorm.io/gorm"

// Page represents a named unit of wiki content persisted in the database.
// UpdatedAt doubles as the last-modified timestamp shown to readers.
type Page struct {
	gorm.Model
	Name        string       `gorm:"size:255;uniqueIndex:idx_pages_name;not null"`
	Content     string       `gorm:"type:text;not null"`
	Attachments []Attachment `gorm:"foreignKey:PageID"`
}

// TableName defines the table name for the Page model.
func (Page) TableName() string {
	return "pages"
}

// Attachment is part of the schema but never written: the edit form accepts
// an attachment reference and discards it after decoding.
type Attachment struct {
	gorm.Model
	PageID   uint   `gorm:"index"`
	FileName string `gorm:"size:255"`
}

// TableName defines the table name for the Attachment model.
func (Attachment) TableName() string {
	return "attachments"
}
