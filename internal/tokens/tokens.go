package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Skotchmaster/sweetshop/internal/models"
)

var ErrTokenInvalid = errors.New("token invalid")

type Claims struct {
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Service issues and validates HS256 identity tokens. Tokens are stateless:
// nothing is stored server-side and they cannot be revoked before expiry.
type Service struct {
	Secret []byte
	TTL    time.Duration
	// Now is the clock used for issuing and validating; time.Now when nil.
	Now func() time.Time
}

func NewService(secret []byte, ttl time.Duration) *Service {
	return &Service{Secret: secret, TTL: ttl}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) Issue(username string, role models.Role) (string, error) {
	now := s.now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.TTL)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies signature, structure and expiry and returns the claims.
func (s *Service) Parse(token string) (*Claims, error) {
	var claims Claims
	tkn, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !tkn.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	return &claims, nil
}

func (s *Service) Validate(token string) bool {
	_, err := s.Parse(token)
	return err == nil
}

// ExtractSubject expects a token that already passed Validate.
func (s *Service) ExtractSubject(token string) (string, error) {
	claims, err := s.Parse(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
