package models

import (
	"io"
	"time"
)

// UploadView receives upload progress for a single attachment
type UploadView interface {
	StartUpload()
	UpdateUpload(percent float64)
}

// Attachment represents a binary blob stored alongside a CouchDB document.
// Rows of this table form the local attachment index.
type Attachment struct {
	ID          string    `gorm:"primaryKey;size:512" json:"id"`
	DocID       string    `gorm:"size:255;not null;index" json:"doc_id"`
	DocType     string    `gorm:"size:100;not null" json:"doc_type"`
	ContentType string    `gorm:"size:100" json:"content_type"`
	Length      int64     `json:"length"`
	FileName    string    `gorm:"size:255" json:"file_name"`
	DB          string    `gorm:"size:255" json:"db"`
	Rev         string    `gorm:"size:100" json:"rev,omitempty"`
	Digest      string    `gorm:"size:100" json:"digest,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Transient upload state
	File io.Reader  `gorm:"-" json:"-"`
	View UploadView `gorm:"-" json:"-"`

	// Owning document, resolved during materialization
	Document *Document `gorm:"-" json:"-"`
}

// TableName returns the table name for Attachment
func (Attachment) TableName() string {
	return "attachments"
}
