package auth

import (
	"testing"
	"time"

	"schoolportal/internal/account"
)

func TestIssueAndParse_Success(t *testing.T) {
	t.Parallel()

	tok, exp, err := Issue("user-123", account.RoleStudent, "school-portal", "super-secret", time.Hour)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if !exp.After(time.Now()) {
		t.Fatalf("expiry %v not in the future", exp)
	}

	claims, err := Parse(tok, "super-secret", "school-portal")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if claims.ID != "user-123" {
		t.Fatalf("id mismatch: got %q want %q", claims.ID, "user-123")
	}
	if claims.Role != account.RoleStudent {
		t.Fatalf("role mismatch: got %q", claims.Role)
	}
}

func TestParse_Expired(t *testing.T) {
	t.Parallel()

	tok, _, err := Issue("u1", account.RoleStudent, "school-portal", "secret", -1*time.Second)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	if _, err := Parse(tok, "secret", "school-portal"); err == nil {
		t.Fatalf("expected error for expired token, got nil")
	}
}

func TestParse_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, _, err := Issue("u2", account.RoleTeacher, "school-portal", "right-secret", time.Hour)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	if _, err := Parse(tok, "wrong-secret", "school-portal"); err == nil {
		t.Fatalf("expected error for invalid signature, got nil")
	}
}

func TestParse_TamperedToken(t *testing.T) {
	t.Parallel()

	tok, _, err := Issue("u3", account.RoleAdmin, "school-portal", "secret", time.Hour)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	// Flipping any byte must surface as an error, never a panic or a
	// successfully parsed credential.
	for _, pos := range []int{0, len(tok) / 2, len(tok) - 1} {
		raw := []byte(tok)
		raw[pos] ^= 0x01
		if _, err := Parse(string(raw), "secret", "school-portal"); err == nil {
			t.Fatalf("tampered token at byte %d parsed successfully", pos)
		}
	}
}

func TestParse_IssuerMismatch(t *testing.T) {
	t.Parallel()

	tok, _, err := Issue("u4", account.RoleStudent, "other-app", "secret", time.Hour)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	if _, err := Parse(tok, "secret", "school-portal"); err == nil {
		t.Fatalf("expected issuer mismatch error, got nil")
	}
}

func TestParse_MissingSecret(t *testing.T) {
	t.Parallel()

	if _, _, err := Issue("u5", account.RoleStudent, "school-portal", "", time.Hour); err == nil {
		t.Fatalf("expected error issuing with empty secret")
	}
	if _, err := Parse("whatever", "", "school-portal"); err == nil {
		t.Fatalf("expected error parsing with empty secret")
	}
}

func TestParse_MalformedString(t *testing.T) {
	t.Parallel()

	if _, err := Parse("not.a.jwt", "k", ""); err == nil {
		t.Fatalf("expected error for malformed token, got nil")
	}
}
