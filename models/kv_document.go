package models

import "time"

// KVDocument is one persisted JSON document of the key/value store.
type KVDocument struct {
	Key       string    `gorm:"column:key;primaryKey;size:255" json:"key"`
	Value     string    `gorm:"column:value;type:text;not null" json:"value"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (KVDocument) TableName() string {
	return "kv_documents"
}
