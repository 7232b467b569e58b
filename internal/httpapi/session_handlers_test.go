package httpapi

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"forecast.kathykuohome.com/internal/auth"
)

func TestLoginSetsSessionCookie(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(http.MethodPost, "/api/auth", map[string]string{
		"email": "Admin@KathyKuoHome.com", "password": testPassword,
	}, "", nil)
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	ck := findCookie(resp, "kkh_session")
	if ck == nil || ck.Value == "" {
		t.Fatalf("expected session cookie")
	}
	if !ck.HttpOnly || ck.SameSite != http.SameSiteLaxMode || ck.Path != "/" {
		t.Fatalf("unexpected cookie attributes: %+v", ck)
	}
	if ck.MaxAge != int((7 * 24 * time.Hour).Seconds()) {
		t.Fatalf("unexpected max age %d", ck.MaxAge)
	}
	if legacy := findCookie(resp, "kkh_user"); legacy == nil || legacy.MaxAge >= 0 {
		t.Fatalf("expected legacy cookie to be cleared, got %+v", legacy)
	}

	body := decode[struct {
		OK   bool `json:"ok"`
		User struct {
			Name  string `json:"name"`
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"user"`
	}](t, resp)
	if !body.OK || body.User.Role != "admin" || body.User.Email != "admin@kathykuohome.com" || body.User.Name != "Ada Admin" {
		t.Fatalf("unexpected body: %+v", body)
	}

	// the cookie opens the admin page
	page := env.do(http.MethodGet, "/admin", nil, ck.Value, nil)
	page.Body.Close()
	if page.StatusCode != http.StatusOK {
		t.Fatalf("expected admin page, got %d", page.StatusCode)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t)

	read := func(email, password string) (int, string, *http.Cookie) {
		resp := env.do(http.MethodPost, "/api/auth", map[string]string{"email": email, "password": password}, "", nil)
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		return resp.StatusCode, string(b), findCookie(resp, "kkh_session")
	}

	wrongCode, wrongBody, wrongCookie := read("admin@kathykuohome.com", "not-the-password")
	unknownCode, unknownBody, unknownCookie := read("nobody@kathykuohome.com", "not-the-password")

	if wrongCode != http.StatusUnauthorized || unknownCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for both, got %d and %d", wrongCode, unknownCode)
	}
	if wrongBody != unknownBody {
		t.Fatalf("bodies differ: %q vs %q", wrongBody, unknownBody)
	}
	if wrongCookie != nil || unknownCookie != nil {
		t.Fatalf("failed login must not set a cookie")
	}
}

func TestLoginValidation(t *testing.T) {
	env := newTestEnv(t)
	cases := []struct {
		name string
		body any
		msg  string
	}{
		{"missing fields", map[string]string{"email": "", "password": ""}, "Email and password are required"},
		{"wrong domain", map[string]string{"email": "someone@gmail.com", "password": "x"}, "Only @kathykuohome.com email addresses are allowed"},
		{"unknown field", map[string]any{"email": "a@kathykuohome.com", "password": "x", "admin": true}, "Invalid request body"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := env.do(http.MethodPost, "/api/auth", tc.body, "", nil)
			expectError(t, resp, http.StatusBadRequest, tc.msg)
		})
	}
}

func TestLoginRateLimited(t *testing.T) {
	env := newTestEnv(t, withLoginLimit(1, 2))
	creds := map[string]string{"email": "admin@kathykuohome.com", "password": "wrong-password"}
	for i := 0; i < 2; i++ {
		resp := env.do(http.MethodPost, "/api/auth", creds, "", nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i, resp.StatusCode)
		}
	}
	resp := env.do(http.MethodPost, "/api/auth", creds, "", nil)
	if resp.Header.Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
	expectError(t, resp, http.StatusTooManyRequests, "Too many login attempts")
}

func TestWhoami(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(http.MethodGet, "/api/auth", nil, "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	anon := decode[map[string]any](t, resp)
	if v, ok := anon["user"]; !ok || v != nil {
		t.Fatalf("expected {user:null}, got %v", anon)
	}

	resp = env.do(http.MethodGet, "/api/auth", nil, env.tokenFor("editor-1"), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decode[struct {
		User struct {
			UserID string `json:"userId"`
			Role   string `json:"role"`
		} `json:"user"`
	}](t, resp)
	if body.User.UserID != "editor-1" || body.User.Role != "editor" {
		t.Fatalf("unexpected whoami: %+v", body)
	}
}

func TestLogoutClearsCookies(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(http.MethodDelete, "/api/auth", nil, env.tokenFor("viewer-1"), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	for _, name := range []string{"kkh_session", "kkh_user"} {
		ck := findCookie(resp, name)
		if ck == nil || ck.Value != "" || ck.MaxAge >= 0 {
			t.Fatalf("expected %s to be cleared, got %+v", name, ck)
		}
	}
	body := decode[map[string]any](t, resp)
	if body["ok"] != true {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestChangePasswordWithoutRevocation(t *testing.T) {
	env := newTestEnv(t)
	token := env.tokenFor("editor-1")

	resp := env.do(http.MethodPatch, "/api/auth", map[string]string{
		"currentPassword": testPassword, "newPassword": "brand-new-secret",
	}, token, nil)
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["ok"] != true || body["message"] != "Password updated" {
		t.Fatalf("unexpected body %v", body)
	}

	login := func(pw string) int {
		r := env.do(http.MethodPost, "/api/auth", map[string]string{"email": "editor@kathykuohome.com", "password": pw}, "", nil)
		r.Body.Close()
		return r.StatusCode
	}
	if code := login("brand-new-secret"); code != http.StatusOK {
		t.Fatalf("new password: expected 200, got %d", code)
	}
	if code := login(testPassword); code != http.StatusUnauthorized {
		t.Fatalf("old password: expected 401, got %d", code)
	}

	// without revocation the old token keeps working until it expires
	still := env.do(http.MethodGet, "/api/departments", nil, token, nil)
	still.Body.Close()
	if still.StatusCode != http.StatusOK {
		t.Fatalf("expected old token to remain valid, got %d", still.StatusCode)
	}
}

func TestChangePasswordRevokesOlderSessions(t *testing.T) {
	env := newTestEnv(t, withRevocations(auth.NewMemoryRevocations(0)))
	old := env.tokenFor("viewer-1")
	*env.now = env.now.Add(2 * time.Second)

	resp := env.do(http.MethodPatch, "/api/auth", map[string]string{
		"currentPassword": testPassword, "newPassword": "brand-new-secret",
	}, old, nil)
	fresh := findCookie(resp, "kkh_session")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if fresh == nil || fresh.Value == "" || fresh.Value == old {
		t.Fatalf("expected a re-issued session cookie, got %+v", fresh)
	}

	*env.now = env.now.Add(2 * time.Second)
	stale := env.do(http.MethodGet, "/api/departments", nil, old, nil)
	expectError(t, stale, http.StatusUnauthorized, "Session expired")

	ok := env.do(http.MethodGet, "/api/departments", nil, fresh.Value, nil)
	ok.Body.Close()
	if ok.StatusCode != http.StatusOK {
		t.Fatalf("expected re-issued token to work, got %d", ok.StatusCode)
	}
}

func TestChangePasswordErrors(t *testing.T) {
	env := newTestEnv(t)
	token := env.tokenFor("editor-1")
	cases := []struct {
		name   string
		token  string
		body   map[string]string
		status int
		msg    string
	}{
		{"no session", "", map[string]string{"currentPassword": testPassword, "newPassword": "long-enough"}, http.StatusUnauthorized, "Not authenticated"},
		{"bad session", "garbage", map[string]string{"currentPassword": testPassword, "newPassword": "long-enough"}, http.StatusUnauthorized, "Not authenticated"},
		{"missing fields", token, map[string]string{"currentPassword": "", "newPassword": ""}, http.StatusBadRequest, "Current and new password are required"},
		{"too short", token, map[string]string{"currentPassword": testPassword, "newPassword": "short"}, http.StatusBadRequest, "New password must be at least 8 characters"},
		{"wrong current", token, map[string]string{"currentPassword": "wrong-password", "newPassword": "long-enough"}, http.StatusUnauthorized, "Current password is incorrect"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := env.do(http.MethodPatch, "/api/auth", tc.body, tc.token, nil)
			expectError(t, resp, tc.status, tc.msg)
		})
	}
}

// markFailingRevocations reads fine but cannot store markers.
type markFailingRevocations struct{}

func (markFailingRevocations) MarkRevoked(context.Context, string, time.Time) error {
	return auth.ErrRevocationUnavailable
}

func (markFailingRevocations) RevokedAt(context.Context, string) (time.Time, bool, error) {
	return time.Time{}, false, nil
}

func TestChangePasswordMarkerWriteFailureStillReportsChange(t *testing.T) {
	env := newTestEnv(t, withRevocations(markFailingRevocations{}))
	token := env.tokenFor("editor-1")

	resp := env.do(http.MethodPatch, "/api/auth", map[string]string{
		"currentPassword": testPassword, "newPassword": "brand-new-secret",
	}, token, nil)
	if ck := findCookie(resp, "kkh_session"); ck != nil {
		t.Fatalf("no session should be reissued, got %+v", ck)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["message"] != "Password updated" {
		t.Fatalf("unexpected body %v", body)
	}

	u, err := env.users.FindByID(context.Background(), "editor-1")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if !auth.VerifyPassword(u.PasswordHash, "brand-new-secret") || auth.VerifyPassword(u.PasswordHash, testPassword) {
		t.Fatalf("stored password does not match the reported change")
	}
}
