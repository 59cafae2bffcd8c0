// Package buildlog persists a record of every compiler invocation into a
// local SQLite database (or a shared libsql instance), queryable through
// `a7c history`.
package buildlog

import (
	"time"

	"gorm.io/datatypes"
)

// Run is one compiler invocation.
type Run struct {
	ID        string `gorm:"primaryKey;type:varchar(40)"`
	InputPath string `gorm:"type:varchar(512);index"`
	Mode      string `gorm:"type:varchar(20);not null"`
	Backend   string `gorm:"type:varchar(20)"`

	// Outcome
	Status   string `gorm:"type:varchar(10);not null"` // ok | error
	ExitCode int    `gorm:"not null"`
	TimingMS int64  `gorm:"not null"`

	// Stage statistics and diagnostics, stored as JSON documents.
	Stages      datatypes.JSON `gorm:"type:jsonb"`
	Diagnostics datatypes.JSON `gorm:"type:jsonb"`

	// Artifacts
	OutputPath  string `gorm:"type:varchar(512)"`
	DocPath     string `gorm:"type:varchar(512)"`
	OutputBytes int    `gorm:"default:0"`

	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}
