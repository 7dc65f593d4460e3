package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/GTDGit/muni_commerce/internal/config"
	"github.com/GTDGit/muni_commerce/internal/metrics"
	"github.com/GTDGit/muni_commerce/internal/utils"
)

// AuthResult is the outcome of checking an admin session token.
type AuthResult int

const (
	AuthMissing AuthResult = iota
	AuthGranted
	AuthExpired
	AuthInvalid
)

func (r AuthResult) String() string {
	switch r {
	case AuthGranted:
		return "granted"
	case AuthExpired:
		return "expired"
	case AuthInvalid:
		return "invalid"
	default:
		return "missing"
	}
}

// Granted reports whether the session carries the admin capability.
func (r AuthResult) Granted() bool {
	return r == AuthGranted
}

// AdminSession is the signed capability handed to the browser after login.
type AdminSession struct {
	Token     string
	ExpiresAt time.Time
}

type adminClaims struct {
	Admin bool `json:"adm"`
	jwt.RegisteredClaims
}

// AdminAuthService checks the admin password and issues session tokens.
type AdminAuthService struct {
	passwordHash []byte
	secret       []byte
	ttl          time.Duration
	audit        *AuditService
	metrics      *metrics.Metrics
	now          func() time.Time
}

// NewAdminAuthService builds the service from configuration. A plain
// ADMIN_PASSWORD is hashed once here so comparisons always go through bcrypt.
func NewAdminAuthService(cfg *config.AdminConfig, audit *AuditService, m *metrics.Metrics) (*AdminAuthService, error) {
	hash := []byte(cfg.PasswordHash)
	if len(hash) == 0 {
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("empty session secret")
	}

	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	return &AdminAuthService{
		passwordHash: hash,
		secret:       []byte(cfg.SessionSecret),
		ttl:          ttl,
		audit:        audit,
		metrics:      m,
		now:          time.Now,
	}, nil
}

// SetClock replaces the time source used for issuing and checking tokens.
func (s *AdminAuthService) SetClock(now func() time.Time) {
	s.now = now
}

// SessionTTL returns how long a session stays valid.
func (s *AdminAuthService) SessionTTL() time.Duration {
	return s.ttl
}

// Login verifies password. On success it records "admin login" and returns a
// signed session; on mismatch it returns utils.ErrInvalidCredentials and
// changes nothing.
func (s *AdminAuthService) Login(ctx context.Context, password string) (*AdminSession, error) {
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		log.Warn().Msg("Admin login failed: invalid password")
		s.metrics.RecordLoginAttempt("failure")
		return nil, utils.ErrInvalidCredentials
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := adminClaims{
		Admin: true,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, err
	}

	if err := s.audit.Record(ctx, "admin login"); err != nil {
		return nil, err
	}
	s.metrics.RecordLoginAttempt("success")
	s.metrics.RecordAdminAction("login")
	log.Info().Time("expires_at", expiresAt).Msg("Admin login successful")

	return &AdminSession{Token: token, ExpiresAt: expiresAt}, nil
}

// Authorize checks a session token taken from the client.
func (s *AdminAuthService) Authorize(token string) AuthResult {
	if token == "" {
		return AuthMissing
	}

	var claims adminClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return AuthExpired
	case err != nil:
		return AuthInvalid
	case !claims.Admin:
		return AuthInvalid
	}
	return AuthGranted
}

// Logout records the end of an admin session. Clearing the cookie is the
// caller's job.
func (s *AdminAuthService) Logout(ctx context.Context) error {
	if err := s.audit.Record(ctx, "admin logout"); err != nil {
		return err
	}
	s.metrics.RecordAdminAction("logout")
	return nil
}
