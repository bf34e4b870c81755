package textutil

import "testing"

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"dQw4w9WgXcQ", "dqw4w9wgxcq"},
		{"AbC-12_3", "abc-12_3"},
		{"watch?v=xyz", "watch_v_xyz"},
		{"  ", "unknown"},
		{"___", "unknown"},
	}
	for _, tt := range tests {
		if got := SanitizeToken(tt.in); got != tt.want {
			t.Errorf("SanitizeToken(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
