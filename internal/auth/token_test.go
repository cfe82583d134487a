package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const testSecret = "unit-test-secret-not-for-deploys"

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	codec, err := NewCodec(testSecret, "HS256", 30*time.Minute)
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}
	return codec
}

func TestNewCodec_Validation(t *testing.T) {
	t.Parallel()

	if _, err := NewCodec("", "HS256", time.Minute); err == nil {
		t.Error("expected error for empty secret")
	}

	if _, err := NewCodec(testSecret, "RS256", time.Minute); err == nil {
		t.Error("expected error for unsupported algorithm")
	}

	if _, err := NewCodec(testSecret, "HS256", 0); err == nil {
		t.Error("expected error for non-positive ttl")
	}

	for _, alg := range []string{"HS256", "HS384", "HS512"} {
		if _, err := NewCodec(testSecret, alg, time.Minute); err != nil {
			t.Errorf("expected %s to be supported, got %v", alg, err)
		}
	}
}

func TestCodec_IssueVerifyRoundtrip(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)

	token, err := codec.Issue("alice@example.com")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims, err := codec.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	if claims.Subject() != "alice@example.com" {
		t.Errorf("expected subject alice@example.com, got %s", claims.Subject())
	}

	exp := claims.ExpiresAt
	if exp == nil {
		t.Fatal("expected expiry claim to be set")
	}
	if remaining := time.Until(exp.Time); remaining > 30*time.Minute || remaining < 29*time.Minute {
		t.Errorf("expected ~30m lifetime, got %s", remaining)
	}
}

func TestCodec_Expired(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)

	token, err := codec.IssueWithTTL("bob@example.com", -time.Minute)
	if err != nil {
		t.Fatalf("IssueWithTTL failed: %v", err)
	}

	_, err = codec.Verify(token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestCodec_TamperedToken(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)

	token, err := codec.Issue("carol@example.com")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("expected a three-part JWT, got %d parts", len(parts))
	}

	// Flip one byte of the payload; the signature no longer covers it.
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	_, err = codec.Verify(tampered)
	if !errors.Is(err, ErrTokenSignature) && !errors.Is(err, ErrTokenMalformed) {
		t.Errorf("expected signature/malformed error for tampered payload, got %v", err)
	}

	// Truncate the signature.
	truncated := parts[0] + "." + parts[1] + "." + parts[2][:len(parts[2])-2]
	_, err = codec.Verify(truncated)
	if !errors.Is(err, ErrTokenSignature) && !errors.Is(err, ErrTokenMalformed) {
		t.Errorf("expected signature/malformed error for truncated signature, got %v", err)
	}
}

func TestCodec_WrongSecret(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)

	other, err := NewCodec("a-completely-different-secret", "HS256", 30*time.Minute)
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}

	token, err := other.Issue("dave@example.com")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	_, err = codec.Verify(token)
	if !errors.Is(err, ErrTokenSignature) {
		t.Errorf("expected ErrTokenSignature, got %v", err)
	}
}

func TestCodec_RejectsForeignAlgorithm(t *testing.T) {
	t.Parallel()

	hs256 := newTestCodec(t)

	hs512, err := NewCodec(testSecret, "HS512", 30*time.Minute)
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}

	token, err := hs512.Issue("eve@example.com")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	// Same secret, different alg: the method pin must reject it.
	if _, err := hs256.Verify(token); err == nil {
		t.Error("expected verification to fail for a foreign signing method")
	}
}

func TestCodec_Malformed(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)

	for _, token := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		if _, err := codec.Verify(token); !errors.Is(err, ErrTokenMalformed) {
			t.Errorf("Verify(%q): expected ErrTokenMalformed, got %v", token, err)
		}
	}
}
