package auth

import (
	"net/http"
	"strings"
)

const (
	PermTemplateWrite = "template:write"
	PermScanRun       = "scan:run"
)

var RolePermissions = map[string][]string{
	"scanner": {PermScanRun},
	"teacher": {"template:*", PermScanRun},
	"admin":   {"*"},
}

// Has reports whether role grants perm. A trailing * in a granted
// permission matches any suffix.
func Has(role, perm string) bool {
	for _, p := range RolePermissions[role] {
		if p == "*" || p == perm {
			return true
		}
		if strings.HasSuffix(p, "*") && strings.HasPrefix(perm, strings.TrimSuffix(p, "*")) {
			return true
		}
	}
	return false
}

// Require must run after Middleware.
func Require(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !Has(RoleFromContext(r.Context()), perm) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
