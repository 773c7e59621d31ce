package store

import (
	"time"

	"gorm.io/gorm"
)

// TranscriptRepository 解码记录的增删查
type TranscriptRepository struct {
	db *gorm.DB
}

// NewTranscriptRepository 创建仓库
func NewTranscriptRepository(db *gorm.DB) *TranscriptRepository {
	return &TranscriptRepository{db: db}
}

// Create 保存一条记录，成功后 t.ID 被填上
func (r *TranscriptRepository) Create(t *Transcript) error {
	return r.db.Create(t).Error
}

// GetByID 按 ID 查找，不存在时返回 gorm.ErrRecordNotFound
func (r *TranscriptRepository) GetByID(id uint) (*Transcript, error) {
	var t Transcript
	if err := r.db.First(&t, id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// GetBySession 按会话 ID 查找
func (r *TranscriptRepository) GetBySession(sessionID string) (*Transcript, error) {
	var t Transcript
	if err := r.db.Where("session_id = ?", sessionID).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// GetRecent 最近的 N 条
func (r *TranscriptRepository) GetRecent(limit int) ([]Transcript, error) {
	var out []Transcript
	err := r.db.Order("started_at DESC").Order("id DESC").Limit(limit).Find(&out).Error
	return out, err
}

// SearchText 文本包含 needle 的记录
func (r *TranscriptRepository) SearchText(needle string, limit int) ([]Transcript, error) {
	var out []Transcript
	err := r.db.Where("text LIKE ?", "%"+needle+"%").
		Order("started_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// Count 记录总数
func (r *TranscriptRepository) Count() (int64, error) {
	var n int64
	err := r.db.Model(&Transcript{}).Count(&n).Error
	return n, err
}

// DeleteOlderThan 删除 before 之前开始的记录
func (r *TranscriptRepository) DeleteOlderThan(before time.Time) (int64, error) {
	result := r.db.Where("started_at < ?", before).Delete(&Transcript{})
	return result.RowsAffected, result.Error
}
