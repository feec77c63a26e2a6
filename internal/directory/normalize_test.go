package directory

import "testing"

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercase", "User@Example.COM", "user@example.com"},
		{"trim whitespace", "  user@example.com  ", "user@example.com"},
		{"gmail plus alias", "user+shopping@gmail.com", "user@gmail.com"},
		{"gmail dots", "u.s.e.r@gmail.com", "user@gmail.com"},
		{"gmail dots and plus", "u.s.e.r+tag@gmail.com", "user@gmail.com"},
		{"googlemail to gmail", "user@googlemail.com", "user@gmail.com"},
		{"non-gmail plus preserved", "user+tag@outlook.com", "user+tag@outlook.com"},
		{"non-gmail dots preserved", "first.last@outlook.com", "first.last@outlook.com"},
		{"no at sign", "noemail", "noemail"},
		{"empty string", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeEmail(tt.input)
			if got != tt.want {
				t.Errorf("NormalizeEmail(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
