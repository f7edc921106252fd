package httpapi

import (
	"context"
	"testing"
	"time"

	"sarisari/backend/internal/domain"
	"sarisari/backend/internal/store/memory"
)

func TestLoginAndParseToken(t *testing.T) {
	repo := memory.NewSeeded()
	auth := NewAuthManager("0123456789abcdef0123456789abcdef", time.Hour, repo)

	resp, err := auth.Login(context.Background(), domain.LoginRequest{Username: "admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Role != "admin" {
		t.Fatalf("expected admin role, got %s", resp.Role)
	}

	actor, err := auth.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if actor.Username != "admin" || actor.Role != "admin" {
		t.Fatalf("unexpected actor: %+v", actor)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	repo := memory.NewSeeded()
	auth := NewAuthManager("0123456789abcdef0123456789abcdef", time.Hour, repo)

	if _, err := auth.Login(context.Background(), domain.LoginRequest{Username: "admin", Password: "nope"}); err == nil {
		t.Fatalf("wrong password must fail")
	}
	if _, err := auth.Login(context.Background(), domain.LoginRequest{Username: "ghost", Password: "whatever"}); err == nil {
		t.Fatalf("unknown user must fail")
	}
	if _, err := auth.Login(context.Background(), domain.LoginRequest{Username: "", Password: ""}); err == nil {
		t.Fatalf("blank credentials must fail")
	}
}

func TestParseTokenRejectsForgedToken(t *testing.T) {
	repo := memory.NewSeeded()
	auth := NewAuthManager("0123456789abcdef0123456789abcdef", time.Hour, repo)
	other := NewAuthManager("another-secret-entirely-32-chars!", time.Hour, repo)

	resp, err := other.Login(context.Background(), domain.LoginRequest{Username: "admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if _, err := auth.ParseToken(resp.AccessToken); err == nil {
		t.Fatalf("token signed with a different secret must be rejected")
	}
	if _, err := auth.ParseToken("not-a-jwt"); err == nil {
		t.Fatalf("garbage token must be rejected")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	repo := memory.NewSeeded()
	auth := NewAuthManager("0123456789abcdef0123456789abcdef", time.Hour, repo)

	token, err := auth.sign("admin", "admin", time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := auth.ParseToken(token); err == nil {
		t.Fatalf("expired token must be rejected")
	}
}
