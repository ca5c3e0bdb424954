package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/aidar/challenge-portal/internal/domain"
	"github.com/aidar/challenge-portal/internal/service"
)

// ContextKey это кастомный тип для ключей контекста
type ContextKey string

// SessionKey ключ контекста для сессии пользователя
const SessionKey ContextKey = "session"

// Authenticator проверяет токен и загружает сессию
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.Session, error)
}

var _ Authenticator = (*service.AuthService)(nil)

// AuthMiddleware создает middleware для валидации JWT токенов и загрузки сессии
func AuthMiddleware(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Получаем токен из заголовка Authorization
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, `{"error":{"code":"UNAUTHORIZED","message":"missing authorization header"}}`, http.StatusUnauthorized)
				return
			}

			// Проверяем формат Bearer
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, `{"error":{"code":"UNAUTHORIZED","message":"invalid authorization header format"}}`, http.StatusUnauthorized)
				return
			}

			// Валидируем токен и загружаем сессию
			session, err := auth.Authenticate(r.Context(), parts[1])
			if err != nil {
				if errors.Is(err, domain.ErrInvalidToken) || errors.Is(err, domain.ErrSessionNotFound) {
					http.Error(w, `{"error":{"code":"UNAUTHORIZED","message":"invalid or expired session"}}`, http.StatusUnauthorized)
					return
				}
				http.Error(w, `{"error":{"code":"INTERNAL_ERROR","message":"internal server error"}}`, http.StatusInternalServerError)
				return
			}

			// Добавляем сессию в контекст
			ctx := context.WithValue(r.Context(), SessionKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin пропускает только администраторов. Используется после AuthMiddleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := GetSession(r.Context())
		if session == nil {
			http.Error(w, `{"error":{"code":"UNAUTHORIZED","message":"missing session"}}`, http.StatusUnauthorized)
			return
		}
		if !session.IsAdmin {
			http.Error(w, `{"error":{"code":"FORBIDDEN","message":"admin access required"}}`, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetSession извлекает сессию из контекста
func GetSession(ctx context.Context) *domain.Session {
	session, ok := ctx.Value(SessionKey).(*domain.Session)
	if !ok {
		return nil
	}
	return session
}

// WithSession кладет сессию в контекст
func WithSession(ctx context.Context, session *domain.Session) context.Context {
	return context.WithValue(ctx, SessionKey, session)
}
