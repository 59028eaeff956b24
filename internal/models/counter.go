package models

type Counter struct {
	BaseModel
	Key   string `gorm:"uniqueIndex;not null"`
	Value int64  `gorm:"not null;default:0"`
}
