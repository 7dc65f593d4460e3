package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/muni_commerce/internal/utils"
)

//go:embed templates/*.html
var templateFS embed.FS

var funcs = template.FuncMap{
	"price": func(p float64) string {
		if p == float64(int64(p)) {
			return fmt.Sprintf("%d F", int64(p))
		}
		return fmt.Sprintf("%.2f F", p)
	},
	"datetime": func(t time.Time) string {
		return t.Local().Format("02/01/2006 15:04")
	},
	"title": func(s string) string {
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
}

// Templates parses the embedded page templates.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
}

// FlagSource provides the flag states shown in the navigation.
type FlagSource interface {
	All(ctx context.Context) (map[string]bool, error)
}

// Renderer renders pages with the data every layout needs.
type Renderer struct {
	cookies *Cookies
	flags   FlagSource
}

// NewRenderer creates a Renderer.
func NewRenderer(cookies *Cookies, flags FlagSource) *Renderer {
	return &Renderer{cookies: cookies, flags: flags}
}

// Cookies returns the cookie helper used for flash messages.
func (r *Renderer) Cookies() *Cookies {
	return r.cookies
}

// HTML renders the named template, adding the pending flash and the flags.
func (r *Renderer) HTML(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Flash"] = r.cookies.PopFlash(c)

	flags, err := r.flags.All(c.Request.Context())
	if err != nil {
		log.Warn().Err(err).Str("request_id", utils.GetRequestID(c)).Msg("Failed to read flags for navigation")
		flags = map[string]bool{}
	}
	data["Flags"] = flags
	data["RequestID"] = utils.GetRequestID(c)

	c.HTML(status, name, data)
}

// Error renders the generic error page.
func (r *Renderer) Error(c *gin.Context, status int, message string) {
	r.HTML(c, status, "error", gin.H{
		"Title":   http.StatusText(status),
		"Status":  status,
		"Message": message,
	})
}

// Redirect stores a flash message and redirects with 303 See Other.
func (r *Renderer) Redirect(c *gin.Context, location, kind, message string) {
	if message != "" {
		r.cookies.SetFlash(c, kind, message)
	}
	c.Redirect(http.StatusSeeOther, location)
}
