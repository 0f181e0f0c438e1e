package utils

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestGenerateTrackingID(t *testing.T) {
	trk := regexp.MustCompile(`^TRK-[A-Z0-9]{8}$`)
	man := regexp.MustCompile(`^MAN-[0-9A-F]{8}$`)
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		id := GenerateTrackingID("TRK-")
		if !trk.MatchString(id) {
			t.Fatalf("tracking id %q does not match %s", id, trk)
		}
		seen[id] = true
		if m := GenerateTrackingID("MAN-"); !man.MatchString(m) {
			t.Fatalf("manual tracking id %q does not match %s", m, man)
		}
	}
	if len(seen) < 199 {
		t.Fatalf("expected nearly unique ids, got %d distinct of 200", len(seen))
	}
}

func TestIsTrackingID(t *testing.T) {
	if !IsTrackingID("TRK-1A2B3C4D") || !IsTrackingID("MAN-ABCDEF12") {
		t.Fatalf("expected valid tracking ids to match")
	}
	for _, s := range []string{"", "TRK-123", "trk-1a2b3c4d", uuid.NewString(), "XYZ-1A2B3C4D"} {
		if IsTrackingID(s) {
			t.Fatalf("did not expect %q to be a tracking id", s)
		}
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPasswordHash("s3cret-pass", hash) {
		t.Fatalf("expected password to match its hash")
	}
	if CheckPasswordHash("wrong", hash) {
		t.Fatalf("expected wrong password to be rejected")
	}
}

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	id := uuid.New()
	token, err := m.GenerateAccessToken(id, "a@b.c", []string{"admin", "super-admin"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := m.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != id || !claims.HasRole("super-admin") || claims.HasRole("customer") {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	other := NewJWTManager("other-secret", time.Hour)
	if _, err := other.ValidateAccessToken(token); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}

	expired := NewJWTManager("test-secret", -time.Minute)
	token, _ = expired.GenerateAccessToken(id, "a@b.c", nil)
	if _, err := m.ValidateAccessToken(token); err == nil || !strings.Contains(err.Error(), "expired") {
		t.Fatalf("expected expiry error, got %v", err)
	}
}
