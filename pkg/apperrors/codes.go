package apperrors

// ErrorCode - тип для кодов ошибок
type ErrorCode string

const (
	// Системные ошибки
	CodeInternalError        ErrorCode = "INTERNAL_ERROR"
	CodeDatabaseError        ErrorCode = "DATABASE_ERROR"
	CodeExternalServiceError ErrorCode = "EXTERNAL_SERVICE_ERROR"

	// Ошибки бизнес-логики
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeBadRequest       ErrorCode = "BAD_REQUEST"
	CodeConflict         ErrorCode = "CONFLICT"

	// Аутентификация
	CodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	CodeForbidden          ErrorCode = "FORBIDDEN"
	CodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	CodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	CodeTokenReused        ErrorCode = "TOKEN_REUSED"
)
