package domain

import "time"

// Blob is one entry in the local key/value table that stands in for browser
// storage. The snapshot and saved API keys are each stored under their own key.
type Blob struct {
	Key       string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	Payload   []byte    `gorm:"type:BLOB NOT NULL"`
	UpdatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoUpdateTime;index"`
}

// TableName implements the GORM tabler interface.
func (Blob) TableName() string { return "kv_store" }
