package utils

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHashVerify(t *testing.T) {
	h, err := HashPassword("Secr3t!", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !VerifyPassword(h, "Secr3t!") {
		t.Fatal("valid password rejected")
	}
	if VerifyPassword(h, "secr3t!") {
		t.Fatal("wrong password accepted")
	}
}

func TestHashPasswordClampsCost(t *testing.T) {
	h, err := HashPassword("Secr3t!", 99)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	cost, err := bcrypt.Cost([]byte(h))
	if err != nil || cost != bcrypt.DefaultCost {
		t.Fatalf("expected default cost, got %d (%v)", cost, err)
	}
}

func TestHashPasswordRejectsOverlongInput(t *testing.T) {
	if _, err := HashPassword(strings.Repeat("a", 73), bcrypt.MinCost); err == nil {
		t.Fatal("expected an error for a 73 byte password")
	}
}
