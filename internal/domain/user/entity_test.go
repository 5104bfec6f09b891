package user

import (
	"errors"
	"testing"
)

func TestParseEmail(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"  A@X.com ", "a@x.com", false},
		{"writer@studio.io", "writer@studio.io", false},
		{"", "", true},
		{"no-at-sign", "", true},
		{"@x.com", "", true},
		{"a@", "", true},
		{"a b@x.com", "", true},
	}
	for _, tt := range tests {
		got, err := ParseEmail(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidEmail) {
				t.Fatalf("ParseEmail(%q): expected ErrInvalidEmail, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("ParseEmail(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}
