package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/folkops/opsboard/internal/models"
	"github.com/folkops/opsboard/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService *service.AuthService
	logger      *zap.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// RegisterRoutes registers all auth routes.
func (h *AuthHandler) RegisterRoutes(router *mux.Router) {
	// Public routes
	router.HandleFunc("/v1/login", h.Login).Methods(http.MethodPost)
	router.HandleFunc("/v1/health", h.Health).Methods(http.MethodGet)

	// Protected routes
	authenticated := router.PathPrefix("/v1/auth").Subrouter()
	authenticated.Use(AuthMiddleware(h.authService))
	authenticated.HandleFunc("/me", h.Me).Methods(http.MethodGet)

	// Administrative routes
	admin := authenticated.PathPrefix("/admin").Subrouter()
	admin.Use(RequireManager())
	admin.HandleFunc("/users", h.ListUsers).Methods(http.MethodGet)
	admin.HandleFunc("/users", h.CreateUser).Methods(http.MethodPost)
}

// Login handles user login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest("Invalid request body").WriteHTTP(w)
		return
	}

	if req.Username == "" || req.Password == "" {
		validationError("Username and password are required").WriteHTTP(w)
		return
	}

	response, err := h.authService.Login(&req)
	if err != nil {
		switch err {
		case service.ErrInvalidCredentials:
			unauthorized("Invalid username or password").WriteHTTP(w)
		case service.ErrAccountLocked:
			forbidden("Account is locked due to too many failed attempts").WriteHTTP(w)
		case service.ErrAccountInactive:
			forbidden("Account is not active").WriteHTTP(w)
		default:
			h.logger.Error("login failed", zap.Error(err))
			internalError("An error occurred during login").WriteHTTP(w)
		}
		return
	}

	respondJSON(w, http.StatusOK, response)
}

// Health returns service health status.
func (h *AuthHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "opsboard",
	})
}

// Me returns details about the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		unauthorized("user context missing").WriteHTTP(w)
		return
	}
	respondJSON(w, http.StatusOK, user.ToUserInfo())
}

// ListUsers returns a paginated list of users. Manager role required.
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > 200 {
		limit = 50
	}

	users, total, err := h.authService.ListUsers(offset, limit)
	if err != nil {
		h.logger.Error("list users failed", zap.Error(err))
		internalError("failed to list users").WriteHTTP(w)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"users": users,
		"total": total,
	})
}

type createUserRequest struct {
	Username     string      `json:"username"`
	Password     string      `json:"password"`
	DisplayName  string      `json:"display_name"`
	Role         models.Role `json:"role"`
	Team         string      `json:"team"`
	AllowedStaff []string    `json:"allowed_staff"`
}

// CreateUser registers a new dashboard account. Manager role required.
func (h *AuthHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest("Invalid request body").WriteHTTP(w)
		return
	}

	if req.Username == "" || req.Password == "" {
		validationError("Username and password are required").WriteHTTP(w)
		return
	}
	if !req.Role.Valid() {
		validationError("Unknown role").WriteHTTP(w)
		return
	}

	user, err := h.authService.Register(req.Username, req.Password, req.DisplayName, req.Role, req.Team, req.AllowedStaff)
	if err != nil {
		if err == service.ErrUserExists {
			conflict("username already taken").WriteHTTP(w)
			return
		}
		h.logger.Error("create user failed", zap.Error(err))
		internalError("failed to create user").WriteHTTP(w)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"message": "User created successfully",
		"user":    user.ToUserInfo(),
	})
}
