package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"platform_backend/internal/auth"
	"platform_backend/internal/clock"
	"platform_backend/internal/events"
	"platform_backend/internal/logger"
	"platform_backend/internal/metrics"
	"platform_backend/internal/models"
	"platform_backend/internal/repositories"
	"platform_backend/internal/services/dto"
	"platform_backend/internal/validator"
	"platform_backend/pkg/apperrors"

	"github.com/google/uuid"
)

// AuthService - регистрация, вход и управление сессиями устройств.
// Каждая сессия (Device) - одна цепочка refresh токенов с версией.
type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, req *dto.LoginRequest, client dto.ClientInfo) (*dto.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.AuthResponse, error)
	Logout(ctx context.Context, userID, sessionID string) error

	ListSessions(ctx context.Context, userID, currentSessionID string) ([]dto.SessionResponse, error)
	TerminateSession(ctx context.Context, userID, sessionID string) error
	TerminateOtherSessions(ctx context.Context, userID, currentSessionID string) (int64, error)
}

type AuthServiceImpl struct {
	userRepo   repositories.UserRepository
	deviceRepo repositories.DeviceRepository
	tokens     *auth.TokenManager
	notifier   NotificationEmitter
	validator  *validator.Validator
	metrics    *metrics.Metrics
	clock      clock.Clock
}

func NewAuthService(
	userRepo repositories.UserRepository,
	deviceRepo repositories.DeviceRepository,
	tokens *auth.TokenManager,
	notifier NotificationEmitter,
	v *validator.Validator,
	m *metrics.Metrics,
	c clock.Clock,
) AuthService {
	return &AuthServiceImpl{
		userRepo:   userRepo,
		deviceRepo: deviceRepo,
		tokens:     tokens,
		notifier:   notifier,
		validator:  v,
		metrics:    m,
		clock:      c,
	}
}

// Register - регистрация нового пользователя
func (s *AuthServiceImpl) Register(ctx context.Context, req *dto.RegisterRequest) (*models.User, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, apperrors.ErrEmailTaken
	} else if !errors.Is(err, repositories.ErrUserNotFound) {
		return nil, apperrors.ErrDatabase(err)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.NewBadRequestError(err.Error())
	}

	user := &models.User{
		Email:        email,
		Name:         req.Name,
		PasswordHash: hash,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrUserAlreadyExists) {
			return nil, apperrors.ErrEmailTaken
		}
		return nil, apperrors.ErrDatabase(err)
	}

	logger.CtxInfo(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

// Login проверяет пароль, заводит новую сессию устройства и выдает пару токенов.
// О входе с нового устройства пользователь получает SECURITY_ALERT.
func (s *AuthServiceImpl) Login(ctx context.Context, req *dto.LoginRequest, client dto.ClientInfo) (*dto.AuthResponse, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.ErrDatabase(err)
	}
	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		logger.CtxWarn(ctx, "login failed: wrong password", "user_id", user.ID)
		return nil, apperrors.ErrInvalidCredentials
	}

	known, err := s.deviceRepo.FindByUser(ctx, user.ID)
	if err != nil {
		return nil, apperrors.ErrDatabase(err)
	}

	device := &models.Device{
		UserID:       user.ID,
		SessionID:    uuid.NewString(),
		IP:           client.IP,
		DeviceName:   client.DeviceName,
		TokenVersion: 1,
		LastSeenAt:   s.clock.Now(),
	}
	if err := s.deviceRepo.Create(ctx, device); err != nil {
		return nil, apperrors.ErrDatabase(err)
	}

	resp, err := s.issueTokens(user.ID, device.SessionID, device.TokenVersion)
	if err != nil {
		return nil, err
	}

	if isNewDevice(known, client) {
		s.notifier.Notify(ctx, events.NotificationEvent{
			UserID:  user.ID,
			Type:    models.NotificationTypeSecurityAlert,
			Message: "New sign-in to your account",
			Data: map[string]any{
				"sessionId":  device.SessionID,
				"ip":         client.IP,
				"deviceName": client.DeviceName,
			},
		})
	}

	logger.CtxInfo(ctx, "user logged in", "user_id", user.ID, "session_id", device.SessionID)
	return resp, nil
}

// Refresh меняет refresh токен на новый и поднимает версию сессии.
// Токен со старой версией означает повторное использование: сессия удаляется.
func (s *AuthServiceImpl) Refresh(ctx context.Context, refreshToken string) (*dto.AuthResponse, error) {
	claims, err := s.tokens.ParseToken(refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}

	device, err := s.deviceRepo.FindBySessionID(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, repositories.ErrDeviceNotFound) {
			return nil, apperrors.ErrInvalidToken
		}
		return nil, apperrors.ErrDatabase(err)
	}
	if device.UserID != claims.UserID {
		return nil, apperrors.ErrInvalidToken
	}

	if err := s.deviceRepo.BumpTokenVersion(ctx, claims.SessionID, claims.TokenVersion, s.clock.Now()); err != nil {
		if !errors.Is(err, repositories.ErrDeviceNotFound) {
			return nil, apperrors.ErrDatabase(err)
		}
		s.revokeReusedSession(ctx, device, claims.TokenVersion)
		return nil, apperrors.ErrRefreshTokenReused
	}

	return s.issueTokens(claims.UserID, claims.SessionID, claims.TokenVersion+1)
}

func (s *AuthServiceImpl) revokeReusedSession(ctx context.Context, device *models.Device, presented int) {
	logger.CtxWarn(ctx, "refresh token reuse detected",
		"user_id", device.UserID,
		"session_id", device.SessionID,
		"presented_version", presented,
		"current_version", device.TokenVersion,
	)
	if s.metrics != nil {
		s.metrics.RefreshTokenReuses.Inc()
	}
	if err := s.deviceRepo.DeleteBySessionID(ctx, device.SessionID); err != nil && !errors.Is(err, repositories.ErrDeviceNotFound) {
		logger.CtxWithError(ctx, "failed to revoke reused session", err, "session_id", device.SessionID)
	}
	s.notifier.Notify(ctx, events.NotificationEvent{
		UserID:  device.UserID,
		Type:    models.NotificationTypeSecurityAlert,
		Message: "A session was closed after its refresh token was reused",
		Data:    map[string]any{"sessionId": device.SessionID, "deviceName": device.DeviceName},
	})
}

func (s *AuthServiceImpl) Logout(ctx context.Context, userID, sessionID string) error {
	return s.TerminateSession(ctx, userID, sessionID)
}

func (s *AuthServiceImpl) ListSessions(ctx context.Context, userID, currentSessionID string) ([]dto.SessionResponse, error) {
	devices, err := s.deviceRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.ErrDatabase(err)
	}
	sessions := make([]dto.SessionResponse, 0, len(devices))
	for _, d := range devices {
		sessions = append(sessions, dto.SessionResponse{
			SessionID:  d.SessionID,
			IP:         d.IP,
			DeviceName: d.DeviceName,
			LastSeenAt: d.LastSeenAt,
			CreatedAt:  d.CreatedAt,
			Current:    d.SessionID == currentSessionID,
		})
	}
	return sessions, nil
}

// TerminateSession удаляет сессию; чужая сессия выглядит как несуществующая
func (s *AuthServiceImpl) TerminateSession(ctx context.Context, userID, sessionID string) error {
	device, err := s.deviceRepo.FindBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repositories.ErrDeviceNotFound) {
			return apperrors.ErrSessionNotFound(err)
		}
		return apperrors.ErrDatabase(err)
	}
	if device.UserID != userID {
		return apperrors.ErrSessionNotFound(repositories.ErrDeviceNotFound)
	}

	if err := s.deviceRepo.DeleteBySessionID(ctx, sessionID); err != nil {
		if errors.Is(err, repositories.ErrDeviceNotFound) {
			return apperrors.ErrSessionNotFound(err)
		}
		return apperrors.ErrDatabase(err)
	}
	if s.metrics != nil {
		s.metrics.SessionsTerminated.Inc()
	}
	logger.CtxInfo(ctx, "session terminated", "user_id", userID, "session_id", sessionID)
	return nil
}

func (s *AuthServiceImpl) TerminateOtherSessions(ctx context.Context, userID, currentSessionID string) (int64, error) {
	removed, err := s.deviceRepo.DeleteByUserExcept(ctx, userID, currentSessionID)
	if err != nil {
		return 0, apperrors.ErrDatabase(err)
	}
	if s.metrics != nil {
		s.metrics.SessionsTerminated.Add(float64(removed))
	}
	logger.CtxInfo(ctx, "other sessions terminated", "user_id", userID, "count", removed)
	return removed, nil
}

func (s *AuthServiceImpl) issueTokens(userID, sessionID string, version int) (*dto.AuthResponse, error) {
	access, err := s.tokens.GenerateAccessToken(userID, sessionID)
	if err != nil {
		return nil, apperrors.InternalError(fmt.Errorf("access token: %w", err))
	}
	refresh, err := s.tokens.GenerateRefreshToken(userID, sessionID, version)
	if err != nil {
		return nil, apperrors.InternalError(fmt.Errorf("refresh token: %w", err))
	}
	return &dto.AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		SessionID:    sessionID,
		UserID:       userID,
	}, nil
}

func (s *AuthServiceImpl) validate(req any) error {
	if err := s.validator.Validate(req); err != nil {
		var vErr *validator.ValidationError
		if errors.As(err, &vErr) {
			return apperrors.ValidationError(vErr.Errors)
		}
		return apperrors.NewBadRequestError(err.Error())
	}
	return nil
}

// isNewDevice - ни одна из существующих сессий не совпадает по имени устройства и IP
func isNewDevice(known []models.Device, client dto.ClientInfo) bool {
	if len(known) == 0 {
		return false
	}
	for _, d := range known {
		if d.DeviceName == client.DeviceName && d.IP == client.IP {
			return false
		}
	}
	return true
}
