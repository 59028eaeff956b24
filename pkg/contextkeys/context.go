package contextkeys

// Используем кастомный тип, чтобы избежать коллизий
type contextKey string

// DBContextKey - ключ, по которому в context лежит *gorm.DB (открытая транзакция)
const DBContextKey = contextKey("db")

// Ключи gin.Context, которые выставляет auth middleware
const (
	UserIDKey    = "userID"
	SessionIDKey = "sessionID"
)
