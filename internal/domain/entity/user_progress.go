package entity

import "time"

// UserProgress прогресс пользователя по одному слову
type UserProgress struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       string     `gorm:"size:64;not null;uniqueIndex:idx_user_word" json:"user_id"`
	Word         string     `gorm:"size:100;not null;uniqueIndex:idx_user_word" json:"word"`
	Learned      bool       `gorm:"not null;default:false" json:"learned"`
	LastReviewed *time.Time `json:"last_reviewed,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (UserProgress) TableName() string {
	return "user_progress"
}
