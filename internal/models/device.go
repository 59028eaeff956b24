package models

import "time"

// Device - одна активная цепочка refresh токенов (сессия)
type Device struct {
	BaseModel
	UserID       string    `gorm:"type:uuid;not null;index" json:"userId"`
	SessionID    string    `gorm:"type:uuid;uniqueIndex;not null" json:"sessionId"`
	IP           string    `gorm:"type:varchar(64)" json:"ip"`
	DeviceName   string    `json:"deviceName"`
	TokenVersion int       `gorm:"not null;default:1" json:"-"`
	LastSeenAt   time.Time `json:"lastSeenAt"`
}
