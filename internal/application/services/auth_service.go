package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskmaster/todos/internal/domain/entities"
	"github.com/taskmaster/todos/internal/infrastructure/config"
	"github.com/taskmaster/todos/internal/infrastructure/identity"
	"github.com/taskmaster/todos/internal/infrastructure/logger"
	"github.com/taskmaster/todos/internal/ports"
)

// Claims represents the JWT claims
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// CategorySeeder gives new accounts a starter set of categories
type CategorySeeder interface {
	SetupDefaultCategories(ctx context.Context) (bool, error)
}

// AuthService handles authentication operations
type AuthService struct {
	profileRepo ports.ProfileRepository
	authRepo    ports.AuthRepository
	seeder      CategorySeeder
	jwtConfig   config.JWTConfig
	validate    *validator.Validate
	logger      *logger.Logger
}

// NewAuthService creates a new auth service. seeder may be nil.
func NewAuthService(profileRepo ports.ProfileRepository, authRepo ports.AuthRepository, seeder CategorySeeder, jwtConfig config.JWTConfig, logger *logger.Logger) *AuthService {
	return &AuthService{
		profileRepo: profileRepo,
		authRepo:    authRepo,
		seeder:      seeder,
		jwtConfig:   jwtConfig,
		validate:    validator.New(),
		logger:      logger.WithComponent("auth_service"),
	}
}

// Register creates a new profile and seeds its default categories
func (s *AuthService) Register(ctx context.Context, req ports.RegisterRequest) (*ports.AuthResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrValidation, err)
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if _, err := s.profileRepo.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: email %s", entities.ErrProfileExists, email)
	} else if !errors.Is(err, entities.ErrProfileNotFound) {
		return nil, err
	}

	if _, err := s.profileRepo.GetByUsername(ctx, req.Username); err == nil {
		return nil, fmt.Errorf("%w: username %s", entities.ErrProfileExists, req.Username)
	} else if !errors.Is(err, entities.ErrProfileNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	profile := &entities.Profile{
		ID:           uuid.New(),
		Email:        email,
		Username:     req.Username,
		PasswordHash: string(hashedPassword),
	}
	if err := s.profileRepo.Create(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	log := s.logger.WithUserID(profile.ID.String())
	log.Infow("Profile registered successfully", "email", profile.Email)

	if s.seeder != nil {
		if _, err := s.seeder.SetupDefaultCategories(identity.WithUserID(ctx, profile.ID)); err != nil {
			log.Warnw("Failed to set up default categories", "error", err.Error())
		}
	}

	return s.issueTokens(ctx, profile)
}

// Login authenticates a profile and returns tokens
func (s *AuthService) Login(ctx context.Context, req ports.LoginRequest) (*ports.AuthResponse, error) {
	profile, err := s.profileRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, entities.ErrProfileNotFound) {
			s.logger.Warnw("Login attempt with non-existent email", "email", req.Email)
			return nil, entities.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.LogSecurityEvent("invalid_password", profile.ID.String(), "", map[string]interface{}{"email": req.Email})
		return nil, entities.ErrInvalidCredentials
	}

	s.logger.Infow("Profile logged in successfully", "user_id", profile.ID.String())
	return s.issueTokens(ctx, profile)
}

// RefreshToken rotates a refresh token and issues a new access token
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*ports.AuthResponse, error) {
	tokenHash := hashToken(refreshToken)

	storedToken, err := s.authRepo.GetRefreshToken(ctx, tokenHash)
	if err != nil {
		return nil, entities.ErrInvalidCredentials
	}
	if !storedToken.IsValid() {
		return nil, fmt.Errorf("%w: refresh token expired or revoked", entities.ErrInvalidCredentials)
	}

	profile, err := s.profileRepo.GetByID(ctx, storedToken.UserID)
	if err != nil {
		return nil, err
	}

	resp, err := s.issueTokens(ctx, profile)
	if err != nil {
		return nil, err
	}

	if err := s.authRepo.RevokeRefreshToken(ctx, tokenHash); err != nil {
		s.logger.Warnw("Failed to revoke old refresh token", "error", err.Error(), "user_id", profile.ID.String())
	}

	return resp, nil
}

// Logout revokes all refresh tokens for a profile
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID) error {
	if err := s.authRepo.RevokeAllUserTokens(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke user tokens: %w", err)
	}

	s.logger.Infow("Profile logged out successfully", "user_id", userID.String())
	return nil
}

// ValidateToken validates a JWT token and returns claims
func (s *AuthService) ValidateToken(tokenString string) (*ports.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtConfig.Secret), nil
	}, jwt.WithIssuer(s.jwtConfig.Issuer))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	return &ports.Claims{
		UserID: claims.UserID,
		Email:  claims.Email,
	}, nil
}

func (s *AuthService) issueTokens(ctx context.Context, profile *entities.Profile) (*ports.AuthResponse, error) {
	accessToken, err := s.generateAccessToken(profile)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.generateRefreshToken(ctx, profile.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	profile.PasswordHash = ""

	return &ports.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.jwtConfig.ExpiresIn.Seconds()),
		Profile:      profile,
	}, nil
}

func (s *AuthService) generateAccessToken(profile *entities.Profile) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: profile.ID.String(),
		Email:  profile.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtConfig.ExpiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.jwtConfig.Issuer,
			Subject:   profile.ID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtConfig.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

func (s *AuthService) generateRefreshToken(ctx context.Context, userID uuid.UUID) (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	token := hex.EncodeToString(tokenBytes)

	expiresAt := time.Now().Add(s.jwtConfig.RefreshExpiresIn)
	if err := s.authRepo.CreateRefreshToken(ctx, userID, hashToken(token), expiresAt); err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}

	return token, nil
}

// hashToken is the storage form of a refresh token
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
