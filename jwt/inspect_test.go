package jwt

import (
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

func TestInspectIgnoresSignature(t *testing.T) {
	now := &fakeNow{t: time.Unix(1_700_000_000, 0)}
	m := newHSManager(t, now)
	access, err := m.IssueAccess(9)
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}

	// Tamper with the signature; inspection must still succeed.
	tampered := access[:len(access)-2] + "xx"
	info, err := Inspect(tampered)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if info.UserID != 9 || info.TokenType != TokenAccess {
		t.Fatalf("unexpected inspection %+v", info)
	}
	if !info.ExpiresAt.Equal(now.t.Add(5 * time.Minute)) {
		t.Fatalf("expires at %v", info.ExpiresAt)
	}
	if !info.IssuedAt.Equal(now.t) {
		t.Fatalf("issued at %v", info.IssuedAt)
	}
}

func TestInspectionWindows(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	info := Inspection{ExpiresAt: base.Add(3 * time.Minute)}

	if info.Expired(base) {
		t.Fatal("token is not expired yet")
	}
	if info.ExpiresWithin(base, 2*time.Minute) {
		t.Fatal("3m left is outside a 2m leeway")
	}
	if !info.ExpiresWithin(base.Add(time.Minute), 2*time.Minute) {
		t.Fatal("2m left is inside a 2m leeway")
	}
	if !info.Expired(base.Add(3 * time.Minute)) {
		t.Fatal("expiry instant counts as expired")
	}
	if got := info.Remaining(base.Add(time.Hour)); got != 0 {
		t.Fatalf("remaining = %v", got)
	}
	if got := info.Remaining(base); got != 3*time.Minute {
		t.Fatalf("remaining = %v", got)
	}
}

func TestInspectRejectsMalformedAndMissingExp(t *testing.T) {
	if _, err := Inspect("not.a.jwt"); err == nil {
		t.Fatal("expected malformed token error")
	}

	noExp, _ := gjwt.NewWithClaims(gjwt.SigningMethodHS256, gjwt.MapClaims{"user_id": 1}).SignedString([]byte("k"))
	if _, err := Inspect(noExp); !errors.Is(err, ErrNoExpiry) {
		t.Fatalf("expected ErrNoExpiry, got %v", err)
	}
}

func TestExpiresWithinHelper(t *testing.T) {
	now := &fakeNow{t: time.Unix(1_700_000_000, 0)}
	m := newHSManager(t, now)
	access, _ := m.IssueAccess(1)

	soon, err := ExpiresWithin(access, now.t, 10*time.Minute)
	if err != nil || !soon {
		t.Fatalf("expected token to expire within 10m: %v %v", soon, err)
	}
	soon, err = ExpiresWithin(access, now.t, time.Minute)
	if err != nil || soon {
		t.Fatalf("expected token to outlive 1m: %v %v", soon, err)
	}
}
