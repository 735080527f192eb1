package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mind-engage/mindengage-omr/internal/auth"
)

func TestIssueAndParse(t *testing.T) {
	a := auth.NewAuthService("s3cret")
	tok, err := a.IssueJWT("ops", "teacher", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	c, err := a.Parse(tok)
	if err != nil {
		t.Fatal(err)
	}
	if c.Sub != "ops" || c.Role != "teacher" {
		t.Fatalf("claims = %+v", c)
	}
	if _, err := auth.NewAuthService("other").Parse(tok); err == nil {
		t.Fatal("token verified with the wrong key")
	}
	expired, _ := a.IssueJWT("ops", "teacher", -time.Minute)
	if _, err := a.Parse(expired); err == nil {
		t.Fatal("expired token accepted")
	}
}

func TestMiddlewareAndRequire(t *testing.T) {
	a := auth.NewAuthService("s3cret")
	var seen string
	h := a.Middleware(auth.Require(auth.PermTemplateWrite)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = auth.SubjectFromContext(r.Context())
	})))

	do := func(bearer string) int {
		req := httptest.NewRequest(http.MethodPut, "/templates/x", nil)
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	teacher, _ := a.IssueJWT("t1", "teacher", time.Hour)
	scanner, _ := a.IssueJWT("s1", "scanner", time.Hour)
	if code := do(""); code != http.StatusUnauthorized {
		t.Fatalf("no token: %d", code)
	}
	if code := do("garbage"); code != http.StatusUnauthorized {
		t.Fatalf("bad token: %d", code)
	}
	if code := do(scanner); code != http.StatusForbidden {
		t.Fatalf("scanner writing templates: %d", code)
	}
	if code := do(teacher); code != http.StatusOK || seen != "t1" {
		t.Fatalf("teacher: %d subject %q", code, seen)
	}
}

func TestHas(t *testing.T) {
	cases := []struct {
		role, perm string
		want       bool
	}{
		{"admin", "anything", true},
		{"teacher", auth.PermTemplateWrite, true},
		{"teacher", auth.PermScanRun, true},
		{"scanner", auth.PermTemplateWrite, false},
		{"", auth.PermScanRun, false},
	}
	for _, c := range cases {
		if got := auth.Has(c.role, c.perm); got != c.want {
			t.Errorf("Has(%q,%q) = %v", c.role, c.perm, got)
		}
	}
}
