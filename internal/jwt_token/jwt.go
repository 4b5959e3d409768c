package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"rctrack/pkg/domain"
	dErrors "rctrack/pkg/domain-errors"
)

// Claims are the access-token claims minted by the dealership identity service:
// the principal id, its role and an optional display name.
type Claims struct {
	UserID string `json:"id"`
	Role   string `json:"role"`
	Name   string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// JWTService validates HS256 access tokens. Issuing is kept for tests and local tooling;
// in production tokens come from the identity service that shares the signing key.
type JWTService struct {
	signingKey []byte
	issuer     string
}

// NewJWTService builds a validator. An empty issuer disables the iss check.
func NewJWTService(signingKey string, issuer string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
	}
}

// GenerateAccessToken signs a token for p valid for expiresIn.
func (s *JWTService) GenerateAccessToken(p domain.Principal, expiresIn time.Duration) (string, error) {
	now := time.Now()
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: p.ID.String(),
		Role:   p.Role.String(),
		Name:   p.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

// ValidateToken verifies signature, expiry and issuer and returns the raw claims.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	return claims, nil
}

// PrincipalFromToken validates the token and parses its claims into a Principal.
func (s *JWTService) PrincipalFromToken(tokenString string) (domain.Principal, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return domain.Principal{}, err
	}
	return claims.Principal()
}

// Principal parses the id and role claims.
func (c *Claims) Principal() (domain.Principal, error) {
	userID, err := domain.ParseUserID(c.UserID)
	if err != nil {
		return domain.Principal{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject")
	}
	role, err := domain.ParseRole(c.Role)
	if err != nil {
		return domain.Principal{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token role")
	}
	return domain.Principal{ID: userID, Role: role, Name: c.Name}, nil
}
