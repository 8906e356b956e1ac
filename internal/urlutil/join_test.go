package urlutil

import (
	"testing"
)

func TestJoinPath(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		paths   []string
		want    string
		wantErr bool
	}{
		{
			name:  "simple join",
			base:  "https://idp.example.com",
			paths: []string{"auth", "v1", "user"},
			want:  "https://idp.example.com/auth/v1/user",
		},
		{
			name:  "base with path",
			base:  "https://example.com/supabase",
			paths: []string{"auth", "v1", "token"},
			want:  "https://example.com/supabase/auth/v1/token",
		},
		{
			name:  "trailing slash preserved",
			base:  "https://example.com",
			paths: []string{"auth", "v1/"},
			want:  "https://example.com/auth/v1/",
		},
		{
			name:  "empty paths",
			base:  "https://example.com",
			paths: []string{},
			want:  "https://example.com",
		},
		{
			name:  "base with trailing slash",
			base:  "https://example.com/",
			paths: []string{"api"},
			want:  "https://example.com/api",
		},
		{
			name:    "invalid base URL",
			base:    "://invalid",
			paths:   []string{"api"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := JoinPath(tt.base, tt.paths...)
			if (err != nil) != tt.wantErr {
				t.Errorf("JoinPath() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("JoinPath() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMustJoinPath(t *testing.T) {
	// Test normal operation
	result := MustJoinPath("https://idp.example.com", "auth", "v1")
	if result != "https://idp.example.com/auth/v1" {
		t.Errorf("MustJoinPath() = %v, want %v", result, "https://idp.example.com/auth/v1")
	}

	// Test panic on invalid URL
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("MustJoinPath() should have panicked")
		}
	}()
	MustJoinPath("://invalid", "api")
}
