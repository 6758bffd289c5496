package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/C3Techie/ai-doc-summarizer-service/internal/apperr"
	"github.com/C3Techie/ai-doc-summarizer-service/internal/config"
	"github.com/C3Techie/ai-doc-summarizer-service/internal/db/models"
	"github.com/C3Techie/ai-doc-summarizer-service/internal/utils"
	"github.com/C3Techie/ai-doc-summarizer-service/pkg/metrics"
)

// Claims is the JWT payload issued at login.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Principal identifies the authenticated caller of a request.
type Principal struct {
	UserID   uint
	Username string
	Role     models.UserRole
}

// UserStore is the account persistence contract the service needs.
// *repository.UserRepository is the production implementation.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id uint) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uint) error
}

type AuthService struct {
	users   UserStore
	cfg     config.AuthConfig
	logger  *zap.Logger
	metrics *metrics.Collector
}

func NewAuthService(users UserStore, cfg config.AuthConfig, logger *zap.Logger, collector *metrics.Collector) *AuthService {
	return &AuthService{
		users:   users,
		cfg:     cfg,
		logger:  logger.With(zap.String("service", "auth_service")),
		metrics: collector,
	}
}

func (as *AuthService) Signup(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if err := utils.ValidateUsername(username); err != nil {
		return nil, apperr.Newf(apperr.CodeValidation, "%v", err)
	}
	if err := utils.ValidateEmail(email); err != nil {
		return nil, apperr.Newf(apperr.CodeValidation, "%v", err)
	}
	if err := utils.ValidatePassword(password, as.cfg.PasswordMinLength, as.cfg.PasswordMaxLength); err != nil {
		return nil, apperr.Newf(apperr.CodeValidation, "%v", err)
	}

	hash, err := utils.EncryptPassword(password, as.cfg.BcryptCost)
	if err != nil {
		as.logger.Error("Failed to hash password", zap.String("username", username), zap.Error(err))
		return nil, apperr.New(apperr.CodeInternal, err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleUser,
		ActiveStatus: true,
	}
	if err := as.users.Create(ctx, user); err != nil {
		return nil, err
	}

	as.metrics.IncrementCounter("users_registered", nil)
	as.logger.Info("User registered",
		zap.String("username", username),
		zap.Uint("user_id", user.ID))
	return user, nil
}

// Login verifies credentials and issues a signed token. All credential
// failures report the same unauthorized error so callers cannot probe
// which usernames exist.
func (as *AuthService) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	invalid := apperr.Newf(apperr.CodeUnauthorized, "invalid username or password")

	user, err := as.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if apperr.IsCode(err, apperr.CodeNotFound) {
			as.logger.Warn("Login with unknown username", zap.String("username", username))
			return "", nil, invalid
		}
		return "", nil, err
	}
	if !utils.VerifyPassword(user.PasswordHash, password) {
		as.logger.Warn("Login with wrong password", zap.String("username", username))
		return "", nil, invalid
	}
	if !user.ActiveStatus {
		as.logger.Warn("Login on deactivated account", zap.String("username", username))
		return "", nil, invalid
	}

	token, err := as.issueToken(user)
	if err != nil {
		as.logger.Error("Failed to sign token", zap.Uint("user_id", user.ID), zap.Error(err))
		return "", nil, apperr.New(apperr.CodeInternal, err)
	}

	if err := as.users.UpdateLastLogin(ctx, user.ID); err != nil {
		as.logger.Warn("Failed to record last login", zap.Uint("user_id", user.ID), zap.Error(err))
	}

	as.metrics.IncrementCounter("user_logins", nil)
	as.logger.Info("User logged in", zap.String("username", user.Username), zap.Uint("user_id", user.ID))
	return token, user, nil
}

func (as *AuthService) issueToken(user *models.User) (string, error) {
	now := time.Now()
	claims := Claims{
		Username: user.Username,
		Role:     string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(as.cfg.TokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.cfg.JWTSecret))
}

// GetUser loads the account behind a principal.
func (as *AuthService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return as.users.GetByID(ctx, id)
}

// ValidateToken parses and verifies a bearer token, returning the caller
// identity embedded in it.
func (as *AuthService) ValidateToken(tokenString string) (*Principal, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(as.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, apperr.New(apperr.CodeUnauthorized, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, apperr.Newf(apperr.CodeUnauthorized, "invalid or expired token")
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return nil, apperr.New(apperr.CodeUnauthorized, fmt.Errorf("invalid subject: %w", err))
	}

	return &Principal{
		UserID:   uint(userID),
		Username: claims.Username,
		Role:     models.UserRole(claims.Role),
	}, nil
}
