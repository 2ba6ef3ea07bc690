package service

import (
	"errors"
	"testing"
	"time"
)

func TestTokenServiceIssueAndParse(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)
	if svc == nil {
		t.Fatal("expected token service")
	}

	token, err := svc.Issue("s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sessionID, err := svc.Parse(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sessionID != "s1" {
		t.Fatalf("expected subject s1, got %q", sessionID)
	}
}

func TestTokenServiceRejectsForeignSignature(t *testing.T) {
	issuer := NewTokenService("secret-a", time.Hour)
	verifier := NewTokenService("secret-b", time.Hour)

	token, err := issuer.Issue("s1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := verifier.Parse(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestTokenServiceExpired(t *testing.T) {
	svc := &TokenService{secret: []byte("secret"), ttl: -time.Minute}
	token, err := svc.Issue("s1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Parse(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestTokenServiceDisabledWithoutSecret(t *testing.T) {
	if svc := NewTokenService("   ", time.Hour); svc != nil {
		t.Fatal("expected nil service without secret")
	}

	var svc *TokenService
	if _, err := svc.Issue("s1"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid from nil service, got %v", err)
	}
	if _, err := svc.Parse("x"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid from nil service, got %v", err)
	}
}
