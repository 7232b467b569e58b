package auth

import "testing"

func TestValidateEmail(t *testing.T) {
	const domain = "kathykuohome.com"
	cases := []struct {
		in    string
		valid bool
		msg   string
	}{
		{"ana@kathykuohome.com", true, ""},
		{"  Ana@KathyKuoHome.COM ", true, ""},
		{"ana@gmail.com", false, "Only @kathykuohome.com email addresses are allowed"},
		{"ana@sub.kathykuohome.com", false, "Only @kathykuohome.com email addresses are allowed"},
		{"ana@kathykuohome.com.evil.io", false, "Only @kathykuohome.com email addresses are allowed"},
		{"ana", false, "Invalid email address"},
		{"@kathykuohome.com", false, "Invalid email address"},
		{"a@b@kathykuohome.com", false, "Invalid email address"},
		{"", false, "Invalid email address"},
	}
	for _, tc := range cases {
		got := ValidateEmail(tc.in, domain)
		if got.Valid != tc.valid || got.Error != tc.msg {
			t.Fatalf("ValidateEmail(%q) = %+v, want valid=%v msg=%q", tc.in, got, tc.valid, tc.msg)
		}
	}
}

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"admin":  RoleAdmin,
		"ADMIN ": RoleAdmin,
		"editor": RoleEditor,
		"viewer": RoleViewer,
		"":       RoleViewer,
		"root":   RoleViewer,
	}
	for in, want := range cases {
		if got := ParseRole(in); got != want {
			t.Fatalf("ParseRole(%q) = %q, want %q", in, got, want)
		}
	}
	if IsValidRole("root") || !IsValidRole(RoleEditor) {
		t.Fatalf("IsValidRole mismatch")
	}
}
