package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CookieName is the session cookie carrying the signed credential.
const CookieName = "token"

// SetSessionCookie writes the credential as an HttpOnly, Secure,
// SameSite=Strict cookie scoped to the whole site.
func SetSessionCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(CookieName, token, maxAge, "/", "", true, true)
}

// ClearSessionCookie expires the session cookie with matching attributes.
// Safe to call when no session exists.
func ClearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(CookieName, "", -1, "/", "", true, true)
}
