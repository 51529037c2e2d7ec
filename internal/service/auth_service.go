package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/folkops/opsboard/config"
	"github.com/folkops/opsboard/internal/models"
	"github.com/folkops/opsboard/internal/registry"
	"github.com/folkops/opsboard/internal/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountLocked      = errors.New("account is locked due to too many failed attempts")
	ErrAccountInactive    = errors.New("account is not active")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidToken       = errors.New("invalid token")
)

// AuthService handles authentication and permission business logic.
type AuthService struct {
	userRepo *repository.UserRepository
	config   *config.Config
	logger   *zap.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(userRepo *repository.UserRepository, cfg *config.Config, logger *zap.Logger) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		config:   cfg,
		logger:   logger,
	}
}

// BootstrapDefaultAdmin ensures the configured manager account exists and
// carries the configured password. Safe to call on every startup.
func (s *AuthService) BootstrapDefaultAdmin() (*models.User, error) {
	username := strings.TrimSpace(s.config.BootstrapAdminUsername)
	if username == "" {
		return nil, fmt.Errorf("bootstrap admin username is required")
	}

	password := s.config.BootstrapAdminPassword
	minPasswordLength := s.config.PasswordMinLength
	if minPasswordLength <= 0 {
		minPasswordLength = 8
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("bootstrap admin password must be at least %d characters", minPasswordLength)
	}

	user, err := s.userRepo.GetByUsername(username)
	if err != nil {
		return nil, fmt.Errorf("lookup admin user: %w", err)
	}

	if user == nil {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BCryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user = &models.User{
			Username:    username,
			Password:    string(hashedPassword),
			DisplayName: "Quản lý",
			Role:        models.RoleManager,
			IsActive:    true,
		}
		if err := s.userRepo.Create(user); err != nil {
			return nil, fmt.Errorf("create admin user: %w", err)
		}
		return user, nil
	}

	user.Role = models.RoleManager
	user.IsActive = true
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BCryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.Password = string(hashedPassword)
	}
	if err := s.userRepo.Update(user); err != nil {
		return nil, fmt.Errorf("update admin user: %w", err)
	}
	return user, nil
}

// Login authenticates a user and returns an access token.
func (s *AuthService) Login(req *models.LoginRequest) (*models.LoginResponse, error) {
	user, err := s.userRepo.GetByUsername(req.Username)
	if err != nil {
		return nil, err
	}

	if user == nil {
		return nil, ErrInvalidCredentials
	}

	// Check if account is locked
	if user.LockedUntil != nil && user.LockedUntil.After(time.Now()) {
		return nil, ErrAccountLocked
	}

	// Check if account is active
	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		s.userRepo.IncrementLoginAttempts(user.ID)

		if user.LoginAttempts+1 >= s.config.MaxLoginAttempts {
			lockUntil := time.Now().Add(s.config.LockoutDuration)
			s.userRepo.LockAccount(user.ID, lockUntil)
		}

		return nil, ErrInvalidCredentials
	}

	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return nil, err
	}

	// Update last login and reset login attempts
	if err := s.userRepo.UpdateLastLogin(user.ID); err != nil {
		s.logger.Warn("failed to update last login", zap.Uint64("user_id", user.ID), zap.Error(err))
	}

	return &models.LoginResponse{
		AccessToken: accessToken,
		ExpiresIn:   int(s.config.TokenExpiration.Seconds()),
		TokenType:   "Bearer",
		User:        user.ToUserInfo(),
	}, nil
}

// Register creates a new dashboard account.
func (s *AuthService) Register(username, password, displayName string, role models.Role, team string, allowedStaff []string) (*models.User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("unknown role %q", role)
	}

	exists, err := s.userRepo.ExistsByUsername(username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUserExists
	}

	if len(password) < s.config.PasswordMinLength {
		return nil, fmt.Errorf("password must be at least %d characters", s.config.PasswordMinLength)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BCryptCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		Password:     string(hashedPassword),
		DisplayName:  displayName,
		Role:         role,
		Team:         team,
		AllowedStaff: allowedStaff,
		IsActive:     true,
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	return user, nil
}

// generateAccessToken generates a signed JWT carrying the user's
// permission context.
func (s *AuthService) generateAccessToken(user *models.User) (string, error) {
	now := time.Now()
	expiresAt := now.Add(s.config.TokenExpiration)

	claims := jwt.MapClaims{
		"iss":      s.config.ServiceName,
		"sub":      strconv.FormatUint(user.ID, 10),
		"aud":      []string{s.config.ServiceName},
		"exp":      expiresAt.Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      uuid.NewString(),
		"type":     "access",
		"user_id":  strconv.FormatUint(user.ID, 10),
		"username": user.Username,
		"role":     string(user.Role),
	}
	if user.Team != "" {
		claims["team"] = user.Team
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// ValidateToken validates an access token and returns the user ID.
func (s *AuthService) ValidateToken(tokenString string) (uint64, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	})

	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrInvalidToken
	}

	if tokenType, ok := claims["type"].(string); !ok || tokenType != "access" {
		return 0, ErrInvalidToken
	}

	userIDStr, ok := claims["user_id"].(string)
	if !ok {
		return 0, ErrInvalidToken
	}

	userID, err := strconv.ParseUint(userIDStr, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return userID, nil
}

// GetUserByID retrieves a user by ID.
func (s *AuthService) GetUserByID(id uint64) (*models.User, error) {
	return s.userRepo.GetByID(id)
}

// ListUsers retrieves a paginated list of users.
func (s *AuthService) ListUsers(offset, limit int) ([]*models.UserInfo, int64, error) {
	users, total, err := s.userRepo.List(offset, limit)
	if err != nil {
		return nil, 0, err
	}

	infos := make([]*models.UserInfo, 0, len(users))
	for _, user := range users {
		if user == nil {
			continue
		}
		infos = append(infos, user.ToUserInfo())
	}
	return infos, total, nil
}

// VisibleColumns returns the column keys the role may see on the view.
// Without a stored permission row the role sees the full column set.
func (s *AuthService) VisibleColumns(role models.Role, view string, reg *registry.Registry) ([]string, error) {
	perm, err := s.userRepo.GetColumnPermission(role, view)
	if err != nil {
		return nil, err
	}
	if perm == nil || len(perm.Columns) == 0 {
		keys := make([]string, 0, reg.Len())
		for _, col := range reg.Columns() {
			keys = append(keys, col.Key)
		}
		return keys, nil
	}

	// Keep registry order and drop keys the registry no longer knows.
	allowed := make(map[string]struct{}, len(perm.Columns))
	for _, key := range perm.Columns {
		allowed[key] = struct{}{}
	}
	keys := make([]string, 0, len(perm.Columns))
	for _, col := range reg.Columns() {
		if _, ok := allowed[col.Key]; ok {
			keys = append(keys, col.Key)
		}
	}
	return keys, nil
}

// ScopeQuery narrows an order query to the rows the user may see.
// Managers see everything; other roles are pinned to their allow-list
// or, lacking one, to their own display name.
func ScopeQuery(user *models.User) []string {
	if user == nil || user.Role == models.RoleManager {
		return nil
	}
	if len(user.AllowedStaff) > 0 {
		return user.AllowedStaff
	}
	if name := strings.TrimSpace(user.DisplayName); name != "" {
		return []string{name}
	}
	return []string{user.Username}
}

// JWTSecret exposes the signing secret used for validating tokens.
func (s *AuthService) JWTSecret() string {
	return s.config.JWTSecret
}
