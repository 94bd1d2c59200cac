package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/bigblink-erp/bigblink-erp/internal/platform/httpx"
	"github.com/bigblink-erp/bigblink-erp/internal/shared"
)

// ErrInvalidToken indicates a token that failed verification.
var ErrInvalidToken = errors.New("auth: invalid token")

// Claims is the JWT payload carried by access tokens.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewService constructs a new Service.
func NewService(repo Repository, secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Service{repo: repo, secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Authenticate validates email/password credentials and returns a signed
// access token. Inactive accounts fail the same way as bad passwords.
func (s *Service) Authenticate(ctx context.Context, email, password string) (string, *User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return "", nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return "", nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, shared.ErrInvalidCredentials
	}
	token, err := s.issueToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *Service) issueToken(user *User) (string, error) {
	now := s.now()
	claims := Claims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ParseToken verifies a token and returns the actor it encodes.
func (s *Service) ParseToken(tokenString string) (shared.Actor, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: unexpected signing method %v", ErrInvalidToken, t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return shared.Actor{}, ErrInvalidToken
	}
	var userID int64
	if _, err := fmt.Sscanf(claims.Subject, "%d", &userID); err != nil || userID == 0 {
		return shared.Actor{}, ErrInvalidToken
	}
	return shared.Actor{ID: userID, Email: claims.Email, Role: claims.Role}, nil
}

// Register creates a user account with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, email, name, role, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: email and name are required", httpx.ErrValidation)
	}
	if !ValidRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", httpx.ErrValidation, role)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", httpx.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	id, err := s.repo.Create(ctx, User{
		Email:        email,
		Name:         strings.TrimSpace(name),
		Role:         role,
		PasswordHash: string(hash),
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, fmt.Errorf("%w: %s", httpx.ErrDuplicate, email)
		}
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

// Users lists all accounts.
func (s *Service) Users(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// Deactivate disables an account; existing tokens expire on their own.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("%w: user %d", httpx.ErrNotFound, id)
		}
		return err
	}
	return nil
}
