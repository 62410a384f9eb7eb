package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"spendwise/internal/apperr"
)

const DefaultTokenTTL = 7 * 24 * time.Hour

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenInvalid       = errors.New("token is not valid")
	ErrTokenExpired       = errors.New("token has expired")
)

type Service struct {
	store  *Store
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewService(store *Store, secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Service{
		store:  store,
		secret: []byte(secret),
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Store() *Store { return s.store }

type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a self-service account. It always gets RoleUser.
func (s *Service) Register(ctx context.Context, in Registration) (*User, string, error) {
	if err := ValidateRegistration(in); err != nil {
		return nil, "", err
	}
	user, err := s.store.CreateUser(ctx, NewUser{
		Name:     in.Name,
		Email:    in.Email,
		Password: in.Password,
		Role:     RoleUser,
	})
	if err != nil {
		return nil, "", err
	}
	token, err := s.IssueToken(user.ID, user.Role)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Authenticate returns the same error whether the email is unknown or the
// password is wrong.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, string, error) {
	user, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return nil, "", err
		}
		s.store.burnCompare(password)
		return nil, "", ErrInvalidCredentials
	}
	if !s.store.VerifySecret(user, password) {
		return nil, "", ErrInvalidCredentials
	}
	token, err := s.IssueToken(user.ID, user.Role)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

type Claims struct {
	UserID int64 `json:"uid"`
	Role   Role  `json:"role"`
	jwt.RegisteredClaims
}

func (s *Service) IssueToken(userID int64, role Role) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies signature and expiry. Expired tokens with a good
// signature report ErrTokenExpired; everything else is ErrTokenInvalid.
func (s *Service) ParseToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID <= 0 {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// Resolve maps a bearer token to the stored account. The stored role is
// authoritative, so role changes and deletions apply to live tokens.
func (s *Service) Resolve(ctx context.Context, tokenStr string) (*User, error) {
	claims, err := s.ParseToken(tokenStr)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return nil, apperr.Wrap(apperr.KindTokenExpired, "Token has expired", err)
		}
		return nil, apperr.Wrap(apperr.KindUnauthenticated, "Token is not valid", err)
	}
	user, err := s.store.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, apperr.Wrap(apperr.KindUnauthenticated, "Token is not valid", err)
		}
		return nil, apperr.Internal("Server error during authentication", err)
	}
	return user, nil
}
