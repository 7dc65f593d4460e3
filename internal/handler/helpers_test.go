package handler

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/muni_commerce/internal/config"
	"github.com/GTDGit/muni_commerce/internal/metrics"
	"github.com/GTDGit/muni_commerce/internal/middleware"
	"github.com/GTDGit/muni_commerce/internal/repository"
	"github.com/GTDGit/muni_commerce/internal/service"
	"github.com/GTDGit/muni_commerce/internal/testutil"
	"github.com/GTDGit/muni_commerce/internal/web"
)

const (
	testPassword = "s3cret"
	testIP       = "192.0.2.10:4321"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)

type fakeAssets struct {
	mu        sync.Mutex
	deleteErr error
	deleted   []string
}

func (f *fakeAssets) Upload(context.Context, []byte, string) (*service.UploadedAsset, error) {
	return &service.UploadedAsset{URL: "https://cdn.example/products/img_1.png", AssetID: "products/img_1.png"}, nil
}

func (f *fakeAssets) Delete(_ context.Context, assetID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, assetID)
	return f.deleteErr
}

type testApp struct {
	router   *gin.Engine
	db       *sqlx.DB
	flags    *service.FeatureFlagService
	products *service.ProductService
	postings *service.PostingService
	assets   *fakeAssets
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewTestDB(t)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	tx := repository.NewTransactor(db)
	audit := service.NewAuditService(repository.NewAdminLogRepository(db))

	flags := service.NewFeatureFlagService(repository.NewFeatureFlagRepository(db), tx, audit, m)
	require.NoError(t, flags.EnsureDefaults(context.Background(), config.DefaultFlags))

	assets := &fakeAssets{}
	catalog := config.CatalogConfig{Sections: config.DefaultSections, Flags: config.DefaultFlags}
	products := service.NewProductService(repository.NewProductRepository(db), tx, audit, assets, nil, catalog, m)
	postings := service.NewPostingService(repository.NewPostingRepository(db), tx, audit, m)
	contact := service.NewContactService(&config.ContactConfig{WhatsAppNumber: "22890000000", MinInvestmentAmount: 50000})

	auth, err := service.NewAdminAuthService(&config.AdminConfig{
		Password:      testPassword,
		SessionSecret: "test-secret",
		SessionTTL:    30 * time.Minute,
	}, audit, m)
	require.NoError(t, err)

	limiter := service.NewRateLimiter(repository.NewRateLimitRepository(db), 5, time.Minute)

	cookies := web.NewCookies("test-secret", false)
	renderer := web.NewRenderer(cookies, flags)
	tmpl, err := web.Templates()
	require.NoError(t, err)

	guard := middleware.NewAdminGuard(auth, cookies)
	router := gin.New()
	router.SetHTMLTemplate(tmpl)
	router.Use(middleware.LoggingMiddleware(m))

	SetupRoutes(router, &Handlers{
		Public:  NewPublicHandler(products, postings, contact, renderer),
		Admin:   NewAdminHandler(auth, guard, products, postings, flags, audit, renderer, 1<<20),
		Health:  NewHealthHandler(db, ""),
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}, &Middlewares{
		Gate:      middleware.NewFeatureGate(flags, renderer, m),
		RateLimit: middleware.NewRateLimiter(limiter, time.Minute, renderer, m),
		Guard:     guard,
	})

	return &testApp{router: router, db: db, flags: flags, products: products, postings: postings, assets: assets}
}

func (a *testApp) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	if req.RemoteAddr == "" || req.RemoteAddr == "192.0.2.1:1234" {
		req.RemoteAddr = testIP
	}
	for _, c := range cookies {
		if c != nil {
			req.AddCookie(c)
		}
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	return a.do(httptest.NewRequest(http.MethodGet, path, nil), cookies...)
}

func (a *testApp) postForm(path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(req, cookies...)
}

func (a *testApp) postMultipart(t *testing.T, path string, fields map[string]string, image []byte, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if image != nil {
		part, err := mw.CreateFormFile("image", "photo.png")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return a.do(req, cookies...)
}

// login returns the session cookie of a successful admin login.
func (a *testApp) login(t *testing.T) *http.Cookie {
	t.Helper()
	w := a.postForm("/admin", url.Values{"password": {testPassword}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	c := cookie(w, web.SessionCookie)
	require.NotNil(t, c)
	return c
}

func cookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	var found *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			found = c
		}
	}
	return found
}

func (a *testApp) count(t *testing.T, table string) int {
	return testutil.Count(t, a.db, table)
}
