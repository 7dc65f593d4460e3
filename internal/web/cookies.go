package web

import (
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/muni_commerce/internal/utils"
)

const (
	// SessionCookie carries the signed admin session token.
	SessionCookie = "admin_session"
	flashCookie   = "flash"
)

// Flash kinds, used as CSS classes by the templates.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashWarning = "warning"
	FlashInfo    = "info"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Kind    string
	Message string
}

// Cookies writes the flash and session cookies. Flash values are signed with
// the session secret so a client cannot inject markup into another page.
type Cookies struct {
	secret string
	secure bool
}

// NewCookies creates a cookie helper.
func NewCookies(secret string, secure bool) *Cookies {
	return &Cookies{secret: secret, secure: secure}
}

// SetFlash stores a message for the next page.
func (k *Cookies) SetFlash(c *gin.Context, kind, message string) {
	payload := base64.RawURLEncoding.EncodeToString([]byte(kind + "\x00" + message))
	k.set(c, flashCookie, payload+"."+utils.GenerateSignature([]byte(payload), k.secret), 300)
}

// PopFlash returns the pending message, if any, and clears it.
func (k *Cookies) PopFlash(c *gin.Context) *Flash {
	raw, err := c.Cookie(flashCookie)
	if err != nil || raw == "" {
		return nil
	}
	k.set(c, flashCookie, "", -1)

	payload, sig, ok := strings.Cut(raw, ".")
	if !ok || !utils.VerifySignature([]byte(payload), sig, k.secret) {
		return nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil
	}
	kind, message, ok := strings.Cut(string(decoded), "\x00")
	if !ok {
		return nil
	}
	return &Flash{Kind: kind, Message: message}
}

// SetSession stores the admin session token until expiresAt.
func (k *Cookies) SetSession(c *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge <= 0 {
		maxAge = 1
	}
	k.set(c, SessionCookie, token, maxAge)
}

// ClearSession removes the admin session cookie.
func (k *Cookies) ClearSession(c *gin.Context) {
	k.set(c, SessionCookie, "", -1)
}

func (k *Cookies) set(c *gin.Context, name, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   k.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
