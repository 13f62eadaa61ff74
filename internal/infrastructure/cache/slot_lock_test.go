package cache

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSlotLockKey(t *testing.T) {
	practitionerID := uuid.MustParse("6f1d8f3e-0c4b-4f0e-9d51-1a2b3c4d5e6f")
	date := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	got := SlotLockKey(practitionerID, date, "14:00")
	want := "lock:slot:6f1d8f3e-0c4b-4f0e-9d51-1a2b3c4d5e6f:2024-03-10:14:00"
	if got != want {
		t.Fatalf("SlotLockKey = %q, want %q", got, want)
	}

	if SlotLockKey(practitionerID, date, "14:30") == got {
		t.Fatal("different times must use different keys")
	}
}

func TestTokenKey(t *testing.T) {
	userID := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	if got := tokenKey(AccessTokenKind, userID, "abc"); got != "access_token:00000000-0000-0000-0000-000000000001:abc" {
		t.Fatalf("tokenKey = %q", got)
	}
}
