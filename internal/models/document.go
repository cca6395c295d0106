package models

import "time"

// Document is the locally known state of a CouchDB document that owns attachments
type Document struct {
	ID        string    `gorm:"primaryKey;size:255" json:"_id"`
	Type      string    `gorm:"size:100;not null;index" json:"doc_type"`
	Rev       string    `gorm:"size:100" json:"_rev"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for Document
func (Document) TableName() string {
	return "documents"
}
