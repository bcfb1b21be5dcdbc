package auth

import (
	"strings"
	"testing"
)

func TestGenerateAndVerify(t *testing.T) {
	token, err := GenerateToken()
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if !strings.HasPrefix(token, TokenPrefix) {
		t.Errorf("token %q missing prefix", token)
	}
	if !IsValidTokenFormat(token) {
		t.Errorf("generated token %q fails its own format check", token)
	}

	hash, err := HashToken(token)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if strings.Contains(hash, strings.TrimPrefix(token, TokenPrefix)) {
		t.Error("hash contains the raw secret")
	}

	if !VerifyToken(token, hash) {
		t.Error("round-trip verification failed")
	}
	if VerifyToken(token+"x", hash) {
		t.Error("tampered token verified")
	}

	other, _ := GenerateToken()
	if VerifyToken(other, hash) {
		t.Error("different token verified against hash")
	}
}

func TestIsValidTokenFormat(t *testing.T) {
	tests := []struct {
		token string
		want  bool
	}{
		{TokenPrefix + strings.Repeat("ab", TokenLength), true},
		{"wrong_" + strings.Repeat("ab", TokenLength), false},
		{TokenPrefix + "tooshort", false},
		{TokenPrefix + strings.Repeat("zz", TokenLength), false}, // not hex
		{"", false},
	}
	for _, tt := range tests {
		if got := IsValidTokenFormat(tt.token); got != tt.want {
			t.Errorf("IsValidTokenFormat(%q) = %v, want %v", tt.token, got, tt.want)
		}
	}
}

func TestMaskToken(t *testing.T) {
	token := TokenPrefix + strings.Repeat("ab", TokenLength)
	masked := MaskToken(token)
	if strings.Contains(masked, strings.Repeat("ab", TokenLength)) {
		t.Error("mask leaks the secret")
	}
	if !strings.HasPrefix(masked, TokenPrefix) {
		t.Errorf("mask %q lost the prefix", masked)
	}
	if MaskToken("short") != "****" {
		t.Error("short tokens should be fully masked")
	}
}
