package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/examportal/portal-backend/internal/config"
	"github.com/examportal/portal-backend/internal/model"
	"github.com/examportal/portal-backend/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// TokenType distinguishes access vs refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims extends JWT standard claims with app-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	TokenType TokenType  `json:"token_type"`
	UserID    int64      `json:"user_id"`
	Role      model.Role `json:"role"`
}

// Actor returns the caller identity carried by the claims.
func (c *Claims) Actor() Actor {
	return Actor{UserID: c.UserID, Role: c.Role}
}

// UserStore is the account persistence used by AuthService.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByIdentifier(ctx context.Context, identifier string) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetProfile(ctx context.Context, userID int64) (*model.UserProfile, error)
}

// TokenStore remembers the live token IDs of each user.
type TokenStore interface {
	Save(ctx context.Context, userID int64, accessJTI string, accessTTL time.Duration, refreshJTI string, refreshTTL time.Duration) error
	AccessJTI(ctx context.Context, userID int64) (string, error)
	RefreshJTI(ctx context.Context, userID int64) (string, error)
	Revoke(ctx context.Context, userID int64) error
}

// AuthService handles registration, login, JWT issuance and session checks.
type AuthService struct {
	cfg    *config.Config
	users  UserStore
	tokens TokenStore
	guard  *DeviceGuard
	audit  AuditSink
	now    func() time.Time
	log    zerolog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, users UserStore, tokens TokenStore, guard *DeviceGuard, audit AuditSink, log zerolog.Logger) *AuthService {
	return &AuthService{
		cfg:    cfg,
		users:  users,
		tokens: tokens,
		guard:  guard,
		audit:  audit,
		now:    time.Now,
		log:    log.With().Str("component", "auth_service").Logger(),
	}
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Register creates a regular account with an empty profile.
func (s *AuthService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	hash, err := s.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &model.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Username:     strings.TrimSpace(req.Username),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hash,
		Role:         model.RoleUser,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		switch {
		case repository.IsDuplicateOn(err, "email"):
			return nil, ErrEmailTaken
		case repository.IsDuplicateOn(err, "username"):
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.log.Info().Int64("user_id", u.ID).Msg("User registered")
	return u, nil
}

// Login verifies credentials, applies the device guard and issues tokens.
// Every attempt is queued to the audit log.
func (s *AuthService) Login(ctx context.Context, req *model.LoginRequest, client model.ClientInfo) (*model.LoginResponse, error) {
	user, err := s.users.GetByIdentifier(ctx, strings.TrimSpace(req.Identifier))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.recordAttempt(ctx, nil, model.EventLoginFailed, false, client)
			return nil, ErrInvalidCredentials
		}
		s.recordAttempt(ctx, nil, model.EventLoginFailed, false, client)
		return nil, fmt.Errorf("get user: %w", err)
	}

	if !user.IsActive || s.CheckPassword(user.PasswordHash, req.Password) != nil {
		s.recordAttempt(ctx, &user.ID, model.EventLoginFailed, false, client)
		return nil, ErrInvalidCredentials
	}

	profile, err := s.guard.Check(ctx, user.ID, req.DeviceFingerprint)
	if err != nil {
		event := model.EventLoginFailed
		if errors.Is(err, ErrDeviceMismatch) {
			event = model.EventDeviceBlocked
		}
		s.recordAttempt(ctx, &user.ID, event, false, client)
		return nil, err
	}

	resp, err := s.issue(ctx, user, profile)
	if err != nil {
		s.recordAttempt(ctx, &user.ID, model.EventLoginFailed, false, client)
		return nil, err
	}
	s.recordAttempt(ctx, &user.ID, model.EventLogin, true, client)
	return resp, nil
}

// Refresh exchanges a live refresh token for a new token pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*model.LoginResponse, error) {
	claims, err := s.ValidateToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeRefresh {
		return nil, ErrInvalidTokenType
	}

	stored, err := s.tokens.RefreshJTI(ctx, claims.UserID)
	if err != nil || stored != claims.ID {
		return nil, ErrSessionInvalidated
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionInvalidated
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrSessionInvalidated
	}
	profile, err := s.users.GetProfile(ctx, user.ID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return s.issue(ctx, user, profile)
}

// Logout revokes the user's live tokens.
func (s *AuthService) Logout(ctx context.Context, userID int64) error {
	return s.tokens.Revoke(ctx, userID)
}

// Me returns the summary of the authenticated user.
func (s *AuthService) Me(ctx context.Context, userID int64) (*model.UserSummary, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	profile, err := s.users.GetProfile(ctx, userID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	summary := s.summary(user, profile)
	return &summary, nil
}

func (s *AuthService) summary(user *model.User, profile *model.UserProfile) model.UserSummary {
	sum := model.UserSummary{
		ID:       user.ID,
		Email:    user.Email,
		Username: user.Username,
		Role:     user.Role,
	}
	if profile != nil {
		sum.HasActiveAccess = profile.HasActiveAccess(s.now())
	}
	return sum
}

func (s *AuthService) issue(ctx context.Context, user *model.User, profile *model.UserProfile) (*model.LoginResponse, error) {
	accessJTI := uuid.New().String()
	refreshJTI := uuid.New().String()

	access, err := s.sign(user, TokenTypeAccess, accessJTI, s.cfg.JWTExpiry)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(user, TokenTypeRefresh, refreshJTI, s.cfg.RefreshExpiry)
	if err != nil {
		return nil, err
	}

	if err := s.tokens.Save(ctx, user.ID, accessJTI, s.cfg.JWTExpiry, refreshJTI, s.cfg.RefreshExpiry); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	return &model.LoginResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         s.summary(user, profile),
	}, nil
}

func (s *AuthService) sign(user *model.User, tokenType TokenType, jti string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TokenType: tokenType,
		UserID:    user.ID,
		Role:      user.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}

	return claims, nil
}

// ValidateSession checks that the token's JTI is the user's live access token.
func (s *AuthService) ValidateSession(ctx context.Context, userID int64, jti string) error {
	stored, err := s.tokens.AccessJTI(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrCacheMiss) {
			return ErrSessionInvalidated
		}
		return fmt.Errorf("check session: %w", err)
	}
	if stored != jti {
		return ErrSessionInvalidated
	}
	return nil
}

func (s *AuthService) recordAttempt(ctx context.Context, userID *int64, event string, ok bool, client model.ClientInfo) {
	entry := model.IPLog{
		UserID:    userID,
		Event:     event,
		Succeeded: ok,
		IP:        client.IP,
		UserAgent: client.UserAgent,
		Location:  client.Location,
		CreatedAt: s.now(),
	}
	if err := s.audit.EnqueueAudit(ctx, entry); err != nil {
		s.log.Warn().Err(err).Str("event", event).Msg("Audit enqueue failed")
	}
}
