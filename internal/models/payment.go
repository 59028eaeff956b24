package models

import "time"

// Payment создается один раз на событие биллинга и дальше не меняется
type Payment struct {
	BaseModel
	UserID          string        `gorm:"type:uuid;not null;index" json:"userId"`
	SubscriptionID  string        `gorm:"type:uuid;not null;index" json:"subscriptionId"`
	PlanType        PlanType      `gorm:"type:varchar(20)" json:"planType"`
	PaymentMethod   PaymentMethod `gorm:"type:varchar(20)" json:"paymentMethod"`
	Status          PaymentStatus `gorm:"type:varchar(20);not null" json:"status"`
	Amount          int64         `json:"amount"` // в минимальных единицах валюты
	Currency        string        `gorm:"type:varchar(3);default:'usd'" json:"currency"`
	BillingDate     time.Time     `json:"billingDate"`
	ExternalEventID string        `gorm:"index" json:"externalEventId,omitempty"`
}
