package auth

import (
	"errors"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)

	token, expiresIn, err := tm.Generate("42", "alice@example.com")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if expiresIn != 3600 {
		t.Fatalf("expiresIn=%d, want 3600", expiresIn)
	}

	claims, err := tm.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.UserID != "42" {
		t.Fatalf("UserID=%q, want 42", claims.UserID)
	}
	if claims.Subject != "42" {
		t.Fatalf("Subject=%q, want 42", claims.Subject)
	}
	if claims.Email != "alice@example.com" {
		t.Fatalf("Email=%q", claims.Email)
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, _, err := NewTokenManager("secret-a", time.Hour).Generate("42", "a@b.co")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := NewTokenManager("secret-b", time.Hour).Validate(token); err == nil {
		t.Fatal("expected validation failure with wrong secret")
	}
}

func TestValidateRejectsExpired(t *testing.T) {
	tm := NewTokenManager("test-secret", -time.Minute)
	token, _, err := tm.Generate("42", "a@b.co")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := tm.Validate(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("err=%v, want ErrExpiredToken", err)
	}
}

func TestExtractBearer(t *testing.T) {
	got, err := ExtractBearer("Bearer abc.def.ghi")
	if err != nil {
		t.Fatalf("ExtractBearer: %v", err)
	}
	if got != "abc.def.ghi" {
		t.Fatalf("token=%q", got)
	}

	for _, header := range []string{"", "abc", "Basic abc", "Bearer"} {
		if _, err := ExtractBearer(header); err == nil {
			t.Fatalf("header %q: expected error", header)
		}
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := ComparePassword(hash, "correct horse battery"); err != nil {
		t.Fatalf("ComparePassword: %v", err)
	}
	if err := ComparePassword(hash, "wrong"); err == nil {
		t.Fatal("expected mismatch error")
	}

	if _, err := HashPassword("short"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("err=%v, want ErrWeakPassword", err)
	}
}

func TestValidateEmail(t *testing.T) {
	if err := ValidateEmail("alice@example.com"); err != nil {
		t.Fatalf("valid email rejected: %v", err)
	}
	for _, bad := range []string{"", "alice", "alice@", "@example.com", "a b@c.d"} {
		if err := ValidateEmail(bad); !errors.Is(err, ErrInvalidEmail) {
			t.Fatalf("email %q: err=%v, want ErrInvalidEmail", bad, err)
		}
	}
}
