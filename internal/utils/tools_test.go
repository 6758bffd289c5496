package utils

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := EncryptPassword("correct horse battery staple", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("EncryptPassword: %v", err)
	}
	if !VerifyPassword(hash, "correct horse battery staple") {
		t.Error("matching password rejected")
	}
	if VerifyPassword(hash, "wrong password") {
		t.Error("wrong password accepted")
	}
}

func TestEncryptPasswordClampsCost(t *testing.T) {
	hash, err := EncryptPassword("pw-with-silly-cost", 99)
	if err != nil {
		t.Fatalf("EncryptPassword: %v", err)
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("Cost: %v", err)
	}
	if cost != bcrypt.DefaultCost {
		t.Errorf("cost = %d, want %d", cost, bcrypt.DefaultCost)
	}
}

func TestValidateUsername(t *testing.T) {
	for _, ok := range []string{"alice", "bob_2", "team.lead-1"} {
		if err := ValidateUsername(ok); err != nil {
			t.Errorf("ValidateUsername(%q): %v", ok, err)
		}
	}
	for _, bad := range []string{"", "ab", "white space", "x@y", "verylongusernamethatgoeswellbeyondthelimit"} {
		if err := ValidateUsername(bad); err == nil {
			t.Errorf("ValidateUsername(%q) should fail", bad)
		}
	}
}

func TestValidateEmail(t *testing.T) {
	if err := ValidateEmail("user@example.com"); err != nil {
		t.Errorf("ValidateEmail: %v", err)
	}
	for _, bad := range []string{"", "plain", "a@b", "two@@at.com", "sp ace@x.com"} {
		if err := ValidateEmail(bad); err == nil {
			t.Errorf("ValidateEmail(%q) should fail", bad)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("longenough", 8, 64); err != nil {
		t.Errorf("ValidatePassword: %v", err)
	}
	if err := ValidatePassword("short", 8, 64); err == nil {
		t.Error("short password should fail")
	}
	if err := ValidatePassword("        ", 8, 64); err == nil {
		t.Error("blank password should fail")
	}
}
