package ledgerstore

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Document is one stored record. The payload is the record's JSON encoding.
type Document struct {
	Collection string         `gorm:"primaryKey;type:varchar(64)"`
	ID         string         `gorm:"primaryKey;type:varchar(128)"`
	Payload    datatypes.JSON `gorm:"not null"`
	UpdatedAt  time.Time      `gorm:"not null"`
}

func (Document) TableName() string { return "ledger_documents" }

// Snapshot is the full content of one collection keyed by record id.
type Snapshot map[string]json.RawMessage

// AutoMigrate creates the document table on dialects not covered by SQL migrations.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Document{})
}
