package user

import "testing"

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "test@DOMAIN.COM", want: "test@domain.com"},
		{in: "  Mixed.Case@Example.Org ", want: "Mixed.Case@example.org"},
		{in: "no-at-sign", want: "no-at-sign"},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		if got := NormalizeEmail(tt.in); got != tt.want {
			t.Fatalf("NormalizeEmail(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCreateOptionsActiveDefault(t *testing.T) {
	if !(CreateOptions{}).Active() {
		t.Fatalf("zero options should be active")
	}

	inactive := false
	if (CreateOptions{IsActive: &inactive}).Active() {
		t.Fatalf("explicit false should be inactive")
	}
}
