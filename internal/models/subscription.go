package models

import "time"

// Subscription никогда не удаляется, меняется только статус
type Subscription struct {
	BaseModel
	UserID                 string             `gorm:"type:uuid;not null;index" json:"userId"`
	PlanType               PlanType           `gorm:"type:varchar(20);not null" json:"planType"`
	Status                 SubscriptionStatus `gorm:"type:varchar(32);not null;default:'INCOMPLETE'" json:"status"`
	StartDate              *time.Time         `json:"startDate"`
	EndDate                *time.Time         `json:"endDate"`
	PaymentMethod          PaymentMethod      `gorm:"type:varchar(20)" json:"paymentMethod"`
	ExternalSubscriptionID string             `gorm:"uniqueIndex;not null" json:"externalSubscriptionId"`
	CanceledAt             *time.Time         `json:"canceledAt"`
	AutoRenew              bool               `gorm:"default:true" json:"autoRenew"`

	// Relations
	Payments []Payment `gorm:"foreignKey:SubscriptionID" json:"payments,omitempty"`
}
