package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/villa-finans-go/internal/domain"
	"github.com/boddenberg/villa-finans-go/internal/service"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func TestGateAuth_LoginAndValidateRoundTrip(t *testing.T) {
	svc := service.NewGateAuth("", "villa-secret", "test-jwt-secret", time.Hour, zap.NewNop())

	resp, err := svc.Login(context.Background(), &domain.LoginRequest{Password: "villa-secret"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected a token")
	}
	if resp.ExpiresIn != 3600 {
		t.Errorf("expected expiresIn 3600, got %d", resp.ExpiresIn)
	}

	claims, err := svc.ValidateToken(resp.Token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Subject != "gate" {
		t.Errorf("expected subject gate, got %s", claims.Subject)
	}
}

func TestGateAuth_WrongPasswordRejected(t *testing.T) {
	svc := service.NewGateAuth("", "villa-secret", "test-jwt-secret", time.Hour, zap.NewNop())

	_, err := svc.Login(context.Background(), &domain.LoginRequest{Password: "guess"})
	var unauthorized *domain.ErrUnauthorized
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestGateAuth_BcryptHashPreferred(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hashed-pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	// The plain password is deliberately different: the hash must win.
	svc := service.NewGateAuth(string(hash), "other-pass", "test-jwt-secret", time.Hour, zap.NewNop())

	if _, err := svc.Login(context.Background(), &domain.LoginRequest{Password: "hashed-pass"}); err != nil {
		t.Fatalf("login against hash: %v", err)
	}
	if _, err := svc.Login(context.Background(), &domain.LoginRequest{Password: "other-pass"}); err == nil {
		t.Fatal("plain password accepted despite configured hash")
	}
}

func TestGateAuth_NoPasswordConfiguredRejectsEverything(t *testing.T) {
	svc := service.NewGateAuth("", "", "test-jwt-secret", time.Hour, zap.NewNop())

	if _, err := svc.Login(context.Background(), &domain.LoginRequest{Password: ""}); err == nil {
		t.Fatal("expected login to fail with no configured password")
	}
}

func TestGateAuth_GarbageTokenRejected(t *testing.T) {
	svc := service.NewGateAuth("", "villa-secret", "test-jwt-secret", time.Hour, zap.NewNop())

	if _, err := svc.ValidateToken("not.a.token"); err == nil {
		t.Fatal("expected garbage token to be rejected")
	}
}

func TestGateAuth_TokenFromOtherSecretRejected(t *testing.T) {
	issuer := service.NewGateAuth("", "villa-secret", "secret-a", time.Hour, zap.NewNop())
	verifier := service.NewGateAuth("", "villa-secret", "secret-b", time.Hour, zap.NewNop())

	resp, err := issuer.Login(context.Background(), &domain.LoginRequest{Password: "villa-secret"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := verifier.ValidateToken(resp.Token); err == nil {
		t.Fatal("token signed with a different secret was accepted")
	}
}
