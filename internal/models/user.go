package models

type User struct {
	BaseModel
	Email                 string `gorm:"uniqueIndex;not null" json:"email"`
	Name                  string `json:"name"`
	PasswordHash          string `gorm:"not null" json:"-"`
	HasActiveSubscription bool   `gorm:"default:false" json:"hasActiveSubscription"`

	// Relations
	Subscriptions []Subscription `gorm:"foreignKey:UserID" json:"-"`
	Devices       []Device       `gorm:"foreignKey:UserID" json:"-"`
}
