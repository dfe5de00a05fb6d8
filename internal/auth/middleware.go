package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"schoolportal/internal/account"
)

// claimsKey is the gin context key holding validated session claims.
const claimsKey = "claims"

// CurrentClaims returns the validated claims stored by SectionGuard.
func CurrentClaims(c *gin.Context) (Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return Claims{}, false
	}
	claims, ok := v.(Claims)
	return claims, ok
}

// sectionRole maps the leading role-marker path segment to the role that
// owns the section. The second return is false for public paths.
func sectionRole(path string) (account.Role, bool) {
	seg := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(seg, '/'); i >= 0 {
		seg = seg[:i]
	}
	switch seg {
	case "a":
		return account.RoleAdmin, true
	case "t":
		return account.RoleTeacher, true
	case "s":
		return account.RoleStudent, true
	}
	return "", false
}

// SectionGuard enforces the role-section routing contract at the edge:
// unauthenticated requests to protected sections bounce to /login, a
// credential for the wrong section bounces to that role's own home, and a
// corrupted credential is cleared before redirecting. Verification failures
// never surface as errors here; the request simply proceeds unauthenticated.
func SectionGuard(secret, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		claims, present, err := readCredential(c, secret, issuer)
		if err != nil {
			// Cookie exists but does not verify. Clear the corrupted state
			// so the client heals on the next round trip.
			ClearSessionCookie(c)
			if path != "/login" {
				redirect(c, "/login")
				return
			}
			c.Next()
			return
		}

		required, protected := sectionRole(path)
		switch {
		case path == "/login" && present:
			redirect(c, claims.Role.HomePath())
		case protected && !present:
			redirect(c, "/login")
		case protected && claims.Role != required:
			redirect(c, claims.Role.HomePath())
		default:
			if present {
				c.Set(claimsKey, claims)
			}
			c.Next()
		}
	}
}

// readCredential pulls the session cookie and validates it. A missing
// cookie is not an error; a present-but-invalid one is.
func readCredential(c *gin.Context, secret, issuer string) (Claims, bool, error) {
	token, err := c.Cookie(CookieName)
	if err != nil || token == "" {
		return Claims{}, false, nil
	}
	claims, err := Parse(token, secret, issuer)
	if err != nil {
		return Claims{}, false, err
	}
	return claims, true, nil
}

func redirect(c *gin.Context, target string) {
	c.Redirect(http.StatusSeeOther, target)
	c.Abort()
}
