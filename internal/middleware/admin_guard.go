package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/muni_commerce/internal/service"
	"github.com/GTDGit/muni_commerce/internal/web"
)

// AdminGuard gates the admin panel on a valid session cookie.
type AdminGuard struct {
	auth    *service.AdminAuthService
	cookies *web.Cookies
}

// NewAdminGuard creates an AdminGuard.
func NewAdminGuard(auth *service.AdminAuthService, cookies *web.Cookies) *AdminGuard {
	return &AdminGuard{auth: auth, cookies: cookies}
}

// Check reads the session cookie and returns the authorization result
// without aborting.
func (g *AdminGuard) Check(c *gin.Context) service.AuthResult {
	token, _ := c.Cookie(web.SessionCookie)
	return g.auth.Authorize(token)
}

// Require redirects to the login page unless the session is granted. It
// must run before rate limiting and any mutation.
func (g *AdminGuard) Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		result := g.Check(c)
		if result.Granted() {
			c.Next()
			return
		}

		if result != service.AuthMissing {
			log.Info().Str("result", result.String()).Str("ip", c.ClientIP()).Msg("Admin session rejected")
			g.cookies.ClearSession(c)
		}
		g.cookies.SetFlash(c, web.FlashWarning, "Veuillez vous connecter.")
		c.Redirect(http.StatusSeeOther, "/admin")
		c.Abort()
	}
}
