package dto

import "time"

// RegisterRequest - запрос регистрации
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"omitempty,max=100"`
}

// LoginRequest - запрос входа
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenRequest - запрос обновления токена
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// ClientInfo - данные устройства, откуда пришел запрос
type ClientInfo struct {
	IP         string
	DeviceName string
}

type AuthResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	SessionID    string `json:"sessionId"`
	UserID       string `json:"userId"`
}

// SessionResponse - активная сессия пользователя
type SessionResponse struct {
	SessionID  string    `json:"sessionId"`
	IP         string    `json:"ip"`
	DeviceName string    `json:"deviceName"`
	LastSeenAt time.Time `json:"lastSeenAt"`
	CreatedAt  time.Time `json:"createdAt"`
	Current    bool      `json:"current"`
}
