package auth

import (
	"strings"
	"testing"
	"time"

	"ontolock/internal/slogutil"
)

// TestTokenGeneration tests token generation and hashing
func TestTokenGeneration(t *testing.T) {
	token, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if !IsValidTokenFormat(token) {
		t.Errorf("Generated token has invalid format: %s", token)
	}

	other, _ := GenerateToken()
	if token == other {
		t.Error("two generated tokens should differ")
	}

	hash, err := HashToken(token)
	if err != nil {
		t.Fatalf("HashToken() error = %v", err)
	}
	if strings.Contains(hash, strings.TrimPrefix(token, TokenPrefix)) {
		t.Error("hash must not contain the secret")
	}
	if !VerifyToken(token, hash) {
		t.Error("VerifyToken() returned false for correct token")
	}
	if VerifyToken(other, hash) {
		t.Error("VerifyToken() returned true for wrong token")
	}
	if VerifyToken("", hash) || VerifyToken(token, "") {
		t.Error("VerifyToken() must reject empty input")
	}
}

func TestIsValidTokenFormat(t *testing.T) {
	tests := []struct {
		token string
		valid bool
	}{
		{TokenPrefix + strings.Repeat("ab", TokenLength), true},
		{TokenPrefix + strings.Repeat("ab", TokenLength-1), false},
		{TokenPrefix + strings.Repeat("zz", TokenLength), false},
		{"abc_sk_" + strings.Repeat("ab", TokenLength), false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsValidTokenFormat(tt.token); got != tt.valid {
			t.Errorf("IsValidTokenFormat(%q) = %v, want %v", tt.token, got, tt.valid)
		}
	}
}

func TestMaskToken(t *testing.T) {
	tests := []struct {
		token string
		want  string
	}{
		{"olk_rt_a1b2c3d4e5f6", "olk_rt_a1b2c3****"},
		{"short", "****"},
		{"", "****"},
	}
	for _, tt := range tests {
		if got := MaskToken(tt.token); got != tt.want {
			t.Errorf("MaskToken(%q) = %q, want %q", tt.token, got, tt.want)
		}
	}
}

func TestParseBearer(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"  Bearer   abc  ", "abc", true},
		{"Bearer ", "", false},
		{"Basic abc", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		tok, ok := ParseBearer(tt.header)
		if tok != tt.token || ok != tt.ok {
			t.Errorf("ParseBearer(%q) = %q, %v; want %q, %v", tt.header, tok, ok, tt.token, tt.ok)
		}
	}
}

// TestRateLimiter tests failed-attempt throttling
func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{PerMinute: 60, Burst: 3}, slogutil.NewDiscardLogger())
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	key := "127.0.0.1"
	for i := 0; i < 3; i++ {
		if blocked, _ := limiter.Blocked(key); blocked {
			t.Fatalf("attempt %d should be allowed (burst)", i+1)
		}
		limiter.Fail(key)
	}

	blocked, retryAfter := limiter.Blocked(key)
	if !blocked {
		t.Error("attempt after burst should be blocked")
	}
	if retryAfter <= 0 {
		t.Errorf("retryAfter should be positive, got %d", retryAfter)
	}

	if blocked, _ := limiter.Blocked("10.0.0.1"); blocked {
		t.Error("other clients are unaffected")
	}

	now = now.Add(2 * time.Second)
	if blocked, _ := limiter.Blocked(key); blocked {
		t.Error("tokens should refill over time")
	}

	limiter.Fail(key)
	limiter.Reset(key)
	if blocked, _ := limiter.Blocked(key); blocked {
		t.Error("Reset() should clear the bucket")
	}
}

func TestDefaultRateLimitConfig(t *testing.T) {
	l := NewRateLimiter(RateLimitConfig{}, nil)
	if l.config != DefaultRateLimitConfig() {
		t.Errorf("config = %+v, want defaults", l.config)
	}
	l.Fail("k") // nil logger must be tolerated
}
