package common

import (
	"testing"
	"time"
)

func TestUUIDint64Unique(t *testing.T) {
	t.Parallel()
	seen := make(map[int64]bool)
	for i := 0; i < 1000; i++ {
		id := UUIDint64()
		if id <= 0 {
			t.Fatalf("UUIDint64() = %d, want positive", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %d", id)
		}
		seen[id] = true
	}
}

func TestNormalizePhone(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
	}{
		{"+62 812-3456-7890", "+6281234567890"},
		{"(0812) 3456 7890", "081234567890"},
		{"628123456789", "628123456789"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizePhone(tt.in); got != tt.want {
			t.Fatalf("NormalizePhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPasswordRoundTrip(t *testing.T) {
	t.Parallel()
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword(hash, "s3cret") {
		t.Fatal("correct password rejected")
	}
	if CheckPassword(hash, "wrong") {
		t.Fatal("wrong password accepted")
	}
}

func TestMidnightAfter(t *testing.T) {
	t.Parallel()
	in := time.Date(2026, 8, 23, 15, 30, 0, 0, time.UTC)
	got := MidnightAfter(in)
	want := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("MidnightAfter = %v, want %v", got, want)
	}
}
