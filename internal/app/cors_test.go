package app

import "testing"

func TestOriginAllowed(t *testing.T) {
	patterns := []string{"blog.example.com", "*.preview.example.com", "localhost:*"}

	tests := []struct {
		origin string
		want   bool
	}{
		{"https://blog.example.com", true},
		{"https://evil.example.com", false},
		{"https://pr-42.preview.example.com", true},
		{"https://preview.example.org", false},
		{"http://localhost:3000", true},
		{"http://remotehost:3000", false},
		{"blog.example.com", true},
	}
	for _, tt := range tests {
		if got := originAllowed(patterns, tt.origin); got != tt.want {
			t.Errorf("originAllowed(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}

func TestOriginAllowedEmptyPatterns(t *testing.T) {
	if originAllowed(nil, "https://blog.example.com") {
		t.Error("no patterns should allow nothing")
	}
}
