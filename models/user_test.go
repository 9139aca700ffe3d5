package models

import "testing"

func TestValidRole(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		value string
		want  bool
	}{
		{"admin", RoleAdmin, true},
		{"user", RoleUser, true},
		{"mixed case", "Admin", true},
		{"unknown", "manager", false},
		{"empty", "", false},
	}

	for _, tt := range cases {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ValidRole(tt.value); got != tt.want {
				t.Fatalf("ValidRole(%q) = %t, want %t", tt.value, got, tt.want)
			}
		})
	}
}

func TestNormalizeRole(t *testing.T) {
	t.Parallel()

	if got := NormalizeRole(" ADMIN "); got != RoleAdmin {
		t.Fatalf("NormalizeRole returned %q, want %q", got, RoleAdmin)
	}

	if got := NormalizeRole("supervisor"); got != DefaultRole {
		t.Fatalf("NormalizeRole returned %q, want %q", got, DefaultRole)
	}
}

func TestIsAdmin(t *testing.T) {
	t.Parallel()

	if !(User{Role: RoleAdmin}).IsAdmin() {
		t.Fatal("expected admin role to report IsAdmin")
	}
	if (User{Role: RoleUser}).IsAdmin() {
		t.Fatal("did not expect user role to report IsAdmin")
	}
}
