package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/bulletinkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndParse_Success(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")

	tok, err := GenerateAdminToken("ops", secret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAdminToken error: %v", err)
	}

	got, err := OperatorFromToken(tok, secret)
	if err != nil {
		t.Fatalf("OperatorFromToken error: %v", err)
	}
	if got != "ops" {
		t.Fatalf("operator mismatch: got %q want %q", got, "ops")
	}
}

func TestOperatorFromToken_Expired(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")

	tok, err := GenerateAdminToken("ops", secret, -1*time.Second)
	if err != nil {
		t.Fatalf("GenerateAdminToken error: %v", err)
	}

	_, err = OperatorFromToken(tok, secret)
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected common.ErrInvalidToken, got %v", err)
	}
}

func TestOperatorFromToken_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := GenerateAdminToken("ops", []byte("right-secret"), time.Hour)
	if err != nil {
		t.Fatalf("GenerateAdminToken error: %v", err)
	}

	if _, err := OperatorFromToken(tok, []byte("wrong-secret")); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}

func TestOperatorFromToken_MalformedString(t *testing.T) {
	t.Parallel()

	if _, err := OperatorFromToken("not.a.jwt", []byte("k")); err == nil {
		t.Fatalf("expected error for malformed token, got nil")
	}
}

func TestOperatorFromToken_RejectsForeignIssuerAndEmptyOperator(t *testing.T) {
	t.Parallel()

	secret := []byte("k")
	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "someone-else"},
		Operator:         "ops",
	}).SignedString(secret)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := OperatorFromToken(foreign, secret); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("foreign issuer accepted: %v", err)
	}

	empty, err := GenerateAdminToken("", secret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := OperatorFromToken(empty, secret); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("empty operator accepted: %v", err)
	}
}
