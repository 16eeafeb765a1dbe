package security

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "" || hash == "correct horse battery" {
		t.Fatalf("expected a bcrypt hash, got %q", hash)
	}

	if !VerifyPassword("correct horse battery", hash) {
		t.Fatalf("expected the password to verify")
	}
	if VerifyPassword("wrong", hash) {
		t.Fatalf("wrong password must not verify")
	}
	if VerifyPassword("", hash) {
		t.Fatalf("empty password must not verify")
	}
	if VerifyPassword("correct horse battery", "") {
		t.Fatalf("empty hash must not verify")
	}
}

func TestHashPasswordClampsBadCost(t *testing.T) {
	// Out-of-range costs fall back to the default rather than erroring.
	hash, err := HashPassword("pw", 99)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("cost: %v", err)
	}
	if cost != DefaultCost {
		t.Fatalf("expected default cost %d, got %d", DefaultCost, cost)
	}
}

func TestHashPasswordSalts(t *testing.T) {
	first, err := HashPassword("pw", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	second, err := HashPassword("pw", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if first == second {
		t.Fatalf("identical hashes for the same password; salting is broken")
	}
}

func TestPasswordScoreOrdering(t *testing.T) {
	weak := PasswordScore("password")
	strong := PasswordScore("tr0ub4dor&3 horse staple")
	if weak >= strong {
		t.Fatalf("expected %q (%d) to score below %q (%d)", "password", weak, "tr0ub4dor&3 horse staple", strong)
	}
}

func TestGenerateSecureToken(t *testing.T) {
	first, err := GenerateSecureToken(32)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	second, err := GenerateSecureToken(32)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if first == second {
		t.Fatalf("two tokens came out identical")
	}
	if len(first) != 43 { // 32 bytes, unpadded base64url
		t.Fatalf("unexpected token length %d", len(first))
	}
	if strings.ContainsAny(first, "+/=") {
		t.Fatalf("token %q is not URL-safe", first)
	}

	if _, err := GenerateSecureToken(0); err == nil {
		t.Fatalf("expected an error for zero length")
	}
}

func TestHashTokenDeterministic(t *testing.T) {
	a := HashToken("some-token")
	b := HashToken("some-token")
	c := HashToken("other-token")

	if a != b {
		t.Fatalf("same input hashed differently")
	}
	if a == c {
		t.Fatalf("different inputs collided")
	}
	if len(a) != 64 { // hex-encoded SHA-256
		t.Fatalf("unexpected hash length %d", len(a))
	}
}
