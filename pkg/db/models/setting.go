package models

import "time"

// Setting is one row of the generic key/value settings store backing the
// injected configuration provider (exchange rate, price per seat).
type Setting struct {
	Key       string    `gorm:"column:key;primaryKey"`
	Value     string    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
