package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/college-canteen/canteen-api/config"
	"github.com/college-canteen/canteen-api/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// PasswordHashCost is the bcrypt cost for new hashes; tests lower it
var PasswordHashCost = bcrypt.DefaultCost

const minPasswordLength = 6

// TokenClaims are the claims carried by an issued access token
type TokenClaims struct {
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// LoginResult is a freshly issued token and the account it belongs to
type LoginResult struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// AuthService handles sign-in, sign-out and self-service account changes
type AuthService struct {
	db       *gorm.DB
	sessions SessionStore
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
}

// NewAuthService creates a new auth service instance
func NewAuthService(db *gorm.DB, sessions SessionStore, cfg *config.Config) *AuthService {
	return &AuthService{
		db:       db,
		sessions: sessions,
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.JWTIssuer,
		audience: cfg.JWTAudience,
		ttl:      cfg.JWTTTL,
	}
}

// HashPassword returns the bcrypt hash of password
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordHashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Login authenticates by college id and password and opens a session
func (s *AuthService) Login(ctx context.Context, collegeID, password string) (*LoginResult, error) {
	var user models.User
	err := s.db.Where("college_id = ?", strings.TrimSpace(collegeID)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newError(KindAuth, CodeInvalidCredentials, "Invalid College ID")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !CheckPassword(user.PasswordHash, password) {
		return nil, newError(KindAuth, CodeInvalidCredentials, "Incorrect Password")
	}
	if !user.IsActive() {
		return nil, newError(KindAuth, CodeAccountInactive, "Account is inactive")
	}

	return s.IssueToken(ctx, &user)
}

// IssueToken signs an HS256 token whose jti names a new server-side session
func (s *AuthService) IssueToken(ctx context.Context, user *models.User) (*LoginResult, error) {
	now := time.Now()
	session := &Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Role:      user.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	claims := TokenClaims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			ID:        session.ID,
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &LoginResult{User: user, Token: token, ExpiresAt: session.ExpiresAt}, nil
}

// Logout destroys the session behind a token
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	return nil
}

// UpdateProfile lets a user change their own name and email
func (s *AuthService) UpdateProfile(userID uint, name, email *string) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("User")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	updates := map[string]interface{}{}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return nil, ValidationError("Name cannot be empty")
		}
		updates["name"] = trimmed
	}
	if email != nil {
		normalized := strings.ToLower(strings.TrimSpace(*email))
		if normalized != user.Email {
			taken, err := emailTaken(s.db, normalized, user.ID)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, ConflictError(CodeDuplicate, "Email already exists")
			}
			updates["email"] = normalized
		}
	}

	if len(updates) > 0 {
		if err := s.db.Model(&user).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update profile: %w", err)
		}
		if err := s.db.First(&user, user.ID).Error; err != nil {
			return nil, fmt.Errorf("failed to reload user: %w", err)
		}
	}
	return &user, nil
}

// ChangePassword replaces the caller's password after checking the current one
func (s *AuthService) ChangePassword(userID uint, current, next string) error {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NotFoundError("User")
		}
		return fmt.Errorf("failed to load user: %w", err)
	}

	if !CheckPassword(user.PasswordHash, current) {
		return newError(KindValidation, CodeInvalidCredentials, "Current password is incorrect")
	}
	if len(next) < minPasswordLength {
		return ValidationError("Password must be at least %d characters", minPasswordLength)
	}

	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.db.Model(&user).Update("password_hash", hash).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

func emailTaken(db *gorm.DB, email string, excludeID uint) (bool, error) {
	var count int64
	q := db.Model(&models.User{}).Where("email = ?", email)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return count > 0, nil
}
