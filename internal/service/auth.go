package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/boddenberg/villa-finans-go/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var authTracer = otel.Tracer("service/auth")

// GateAuth exchanges the shared gate password for a signed, expiring
// token. It replaces the old client-held "authenticated" flag: the
// server validates the credential once and mutating requests carry the
// token from then on. Single shared credential, not a user model.
type GateAuth struct {
	passwordHash string // bcrypt hash; preferred
	password     string // plain compare fallback for dev setups
	jwtSecret    []byte
	accessTTL    time.Duration
	logger       *zap.Logger
}

// NewGateAuth creates the gate auth service.
func NewGateAuth(passwordHash, password, jwtSecret string, accessTTL time.Duration, logger *zap.Logger) *GateAuth {
	return &GateAuth{
		passwordHash: passwordHash,
		password:     password,
		jwtSecret:    []byte(jwtSecret),
		accessTTL:    accessTTL,
		logger:       logger,
	}
}

// GateClaims are the claims carried by gate tokens.
type GateClaims struct {
	jwt.RegisteredClaims
}

// Login checks the shared password and signs an access token.
func (s *GateAuth) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	_, span := authTracer.Start(ctx, "GateAuth.Login")
	defer span.End()

	if !s.checkPassword(req.Password) {
		s.logger.Warn("gate login rejected")
		return nil, &domain.ErrUnauthorized{Message: "invalid password"}
	}

	now := time.Now()
	claims := GateClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "gate",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("sign gate token: %w", err)
	}

	s.logger.Info("gate login accepted")
	return &domain.LoginResponse{
		Token:     signed,
		ExpiresIn: int(s.accessTTL.Seconds()),
	}, nil
}

// ValidateToken parses and verifies a gate token.
func (s *GateAuth) ValidateToken(tokenString string) (*GateClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &GateClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}

	claims, ok := token.Claims.(*GateClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}
	return claims, nil
}

func (s *GateAuth) checkPassword(candidate string) bool {
	if s.passwordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(candidate)) == nil
	}
	if s.password != "" {
		return subtle.ConstantTimeCompare([]byte(s.password), []byte(candidate)) == 1
	}
	return false
}
