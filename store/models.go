package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Transcript 一次解码会话的结果
type Transcript struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	SessionID   string    `gorm:"uniqueIndex;size:36" json:"session_id"`
	Source      string    `gorm:"index;size:200" json:"source"` // trace:xxx.csv, serial:/dev/ttyUSB0 ...
	StartedAt   time.Time `gorm:"index;not null" json:"started_at"`
	EndedAt     time.Time `gorm:"not null" json:"ended_at"`
	Text        string    `json:"text"`
	UnitSeconds float64   `json:"unit_seconds"` // 会话结束时的 unit
	WPM         float64   `json:"wpm"`
	Characters  int       `gorm:"default:0" json:"characters"`
	Unknown     int       `gorm:"default:0" json:"unknown"`
	Samples     int64     `gorm:"default:0" json:"samples"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName 表名
func (Transcript) TableName() string {
	return "transcripts"
}

// BeforeCreate 补齐时间
func (t *Transcript) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if t.SessionID == "" {
		t.SessionID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.StartedAt.IsZero() {
		t.StartedAt = now
	}
	if t.EndedAt.IsZero() {
		t.EndedAt = now
	}
	return nil
}

// Duration 会话时长
func (t *Transcript) Duration() time.Duration {
	return t.EndedAt.Sub(t.StartedAt)
}
