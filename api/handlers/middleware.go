package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/folkops/opsboard/internal/models"
	"github.com/folkops/opsboard/internal/service"
)

type contextKey string

// userContextKey carries the authenticated *models.User.
const userContextKey contextKey = "opsboard.user"

// UserFromContext returns the authenticated user, nil when absent.
func UserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(userContextKey).(*models.User)
	return user
}

// AuthMiddleware validates the bearer token on each request and loads
// the user into the request context.
func AuthMiddleware(authService *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				unauthorized("missing authorization header").WriteHTTP(w)
				return
			}
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				unauthorized("malformed authorization header").WriteHTTP(w)
				return
			}

			userID, err := authService.ValidateToken(token)
			if err != nil {
				unauthorized("invalid or expired token").WriteHTTP(w)
				return
			}

			user, err := authService.GetUserByID(userID)
			if err != nil {
				internalError("failed to load user").WithInternal(err).WriteHTTP(w)
				return
			}
			if user == nil || !user.IsActive {
				unauthorized("account is not active").WriteHTTP(w)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireManager rejects requests from non-manager roles.
func RequireManager() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			if user == nil {
				unauthorized("user context missing").WriteHTTP(w)
				return
			}
			if user.Role != models.RoleManager {
				forbidden("manager role required").WriteHTTP(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoggingMiddleware logs one line per request.
func LoggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", recorder.status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
