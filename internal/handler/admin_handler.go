package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/muni_commerce/internal/middleware"
	"github.com/GTDGit/muni_commerce/internal/service"
	"github.com/GTDGit/muni_commerce/internal/utils"
	"github.com/GTDGit/muni_commerce/internal/web"
)

const (
	dashboardPath  = "/admin/dashboard"
	auditLogLength = 20
	// room for the text fields sent next to the image
	formOverhead = 1 << 20
)

var errImageTooLarge = errors.New("image too large")

// AdminHandler serves the login page and the admin panel.
type AdminHandler struct {
	auth      *service.AdminAuthService
	guard     *middleware.AdminGuard
	products  *service.ProductService
	postings  *service.PostingService
	flags     *service.FeatureFlagService
	audit     *service.AuditService
	renderer  *web.Renderer
	maxUpload int64
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(
	auth *service.AdminAuthService,
	guard *middleware.AdminGuard,
	products *service.ProductService,
	postings *service.PostingService,
	flags *service.FeatureFlagService,
	audit *service.AuditService,
	renderer *web.Renderer,
	maxUpload int64,
) *AdminHandler {
	return &AdminHandler{
		auth:      auth,
		guard:     guard,
		products:  products,
		postings:  postings,
		flags:     flags,
		audit:     audit,
		renderer:  renderer,
		maxUpload: maxUpload,
	}
}

// LoginPage renders the login form, or goes to the dashboard when the
// session is already valid.
func (h *AdminHandler) LoginPage(c *gin.Context) {
	if h.guard.Check(c).Granted() {
		c.Redirect(http.StatusSeeOther, dashboardPath)
		return
	}
	h.renderer.HTML(c, http.StatusOK, "admin_login", gin.H{"Title": "Administration"})
}

// Login checks the password. A wrong password re-renders the form and
// changes nothing.
func (h *AdminHandler) Login(c *gin.Context) {
	if h.guard.Check(c).Granted() {
		c.Redirect(http.StatusSeeOther, dashboardPath)
		return
	}

	session, err := h.auth.Login(c.Request.Context(), c.PostForm("password"))
	if errors.Is(err, utils.ErrInvalidCredentials) {
		h.renderer.HTML(c, http.StatusOK, "admin_login", gin.H{
			"Title": "Administration",
			"Error": "Mot de passe invalide.",
		})
		return
	}
	if err != nil {
		h.serverError(c, err, "Admin login failed")
		return
	}

	h.renderer.Cookies().SetSession(c, session.Token, session.ExpiresAt)
	h.renderer.Redirect(c, dashboardPath, web.FlashSuccess, "Connexion Administrateur réussie !")
}

// Logout clears the session and returns to the home page.
func (h *AdminHandler) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context()); err != nil {
		h.serverError(c, err, "Admin logout failed")
		return
	}
	h.renderer.Cookies().ClearSession(c)
	h.renderer.Redirect(c, "/home", web.FlashInfo, "Déconnexion réussie.")
}

// Dashboard renders products, postings, flags and the recent audit entries.
func (h *AdminHandler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()

	products, err := h.products.BySection(ctx)
	if err != nil {
		h.serverError(c, err, "Failed to list products")
		return
	}
	postings, err := h.postings.List(ctx)
	if err != nil {
		h.serverError(c, err, "Failed to list postings")
		return
	}
	flags, err := h.flags.List(ctx)
	if err != nil {
		h.serverError(c, err, "Failed to list flags")
		return
	}
	entries, err := h.audit.Recent(ctx, auditLogLength)
	if err != nil {
		h.serverError(c, err, "Failed to read audit log")
		return
	}

	h.renderer.HTML(c, http.StatusOK, "admin_dashboard", gin.H{
		"Title":    "Tableau de bord",
		"Sections": h.products.Sections(),
		"Products": products,
		"Postings": postings,
		"FlagList": flags,
		"AuditLog": entries,
	})
}

// DashboardAction dispatches a panel form. The action comes from the
// "action" field, or is inferred from the submitted fields.
func (h *AdminHandler) DashboardAction(c *gin.Context) {
	if !h.parseForm(c) {
		return
	}

	switch dashboardAction(c) {
	case "add_product":
		h.addProduct(c)
	case "delete_product":
		h.deleteProduct(c)
	case "add_posting":
		h.addPosting(c)
	case "delete_posting":
		h.deletePosting(c)
	case "toggle_flag":
		h.toggleFlag(c)
	default:
		h.renderer.Redirect(c, dashboardPath, web.FlashError, "Action inconnue.")
	}
}

// parseForm reads the request body once, capped at the upload limit plus
// formOverhead. Oversized bodies are cut off while reading, before anything
// is buffered to disk.
func (h *AdminHandler) parseForm(c *gin.Context) bool {
	if h.maxUpload <= 0 {
		return true
	}
	limit := h.maxUpload + formOverhead
	if c.Request.ContentLength > limit {
		h.renderer.Redirect(c, dashboardPath, web.FlashError, "Image trop volumineuse.")
		return false
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	err := c.Request.ParseMultipartForm(h.maxUpload)
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil, errors.Is(err, http.ErrNotMultipart):
		return true
	case errors.As(err, &tooLarge):
		h.renderer.Redirect(c, dashboardPath, web.FlashError, "Image trop volumineuse.")
	default:
		log.Warn().Err(err).Str("request_id", utils.GetRequestID(c)).Msg("Malformed panel form")
		h.renderer.Error(c, http.StatusBadRequest, "Formulaire invalide.")
	}
	return false
}

// dashboardAction falls back on which fields are present when no action is
// given, so an empty designation still reaches product validation.
func dashboardAction(c *gin.Context) string {
	if action := c.PostForm("action"); action != "" {
		return action
	}
	has := func(key string) bool {
		_, ok := c.GetPostForm(key)
		return ok
	}
	switch {
	case has("designation"):
		return "add_product"
	case has("delete_id"):
		return "delete_product"
	case has("title"):
		return "add_posting"
	case has("delete_posting_id"):
		return "delete_posting"
	case has("flag"):
		return "toggle_flag"
	}
	return ""
}

func (h *AdminHandler) addProduct(c *gin.Context) {
	image, err := h.readImage(c)
	if err != nil {
		if errors.Is(err, errImageTooLarge) {
			h.renderer.Redirect(c, dashboardPath, web.FlashError, "Image trop volumineuse.")
			return
		}
		h.serverError(c, err, "Failed to read uploaded image")
		return
	}

	product, err := h.products.Add(c.Request.Context(), service.AddProductRequest{
		Designation: c.PostForm("designation"),
		Category:    c.PostForm("category"),
		IsFooter:    c.PostForm("is_footer") != "",
		Price:       c.PostForm("price"),
		Image:       image,
	})
	if msg, ok := productErrorMessage(err); ok {
		h.renderer.Redirect(c, dashboardPath, web.FlashError, msg)
		return
	}
	if err != nil {
		h.serverError(c, err, "Failed to add product")
		return
	}

	h.renderer.Redirect(c, dashboardPath, web.FlashSuccess,
		fmt.Sprintf("Produit '%s' ajouté avec succès.", product.Designation))
}

// readImage returns the optional "image" upload, nil when none was sent.
func (h *AdminHandler) readImage(c *gin.Context) ([]byte, error) {
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	if h.maxUpload > 0 && header.Size > h.maxUpload {
		return nil, errImageTooLarge
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	return data, nil
}

func productErrorMessage(err error) (string, bool) {
	switch {
	case err == nil:
		return "", false
	case errors.Is(err, utils.ErrInvalidDesignation):
		return "La désignation est obligatoire.", true
	case errors.Is(err, utils.ErrInvalidCategory):
		return "Catégorie inconnue.", true
	case errors.Is(err, utils.ErrImageRejected):
		return "Image refusée.", true
	case errors.Is(err, utils.ErrAssetsDisabled):
		return "L'hébergement des images n'est pas configuré.", true
	case errors.Is(err, utils.ErrAssetUpload):
		return "L'envoi de l'image a échoué. Produit non ajouté.", true
	}
	return "", false
}

func (h *AdminHandler) deleteProduct(c *gin.Context) {
	id, ok := h.formID(c, "delete_id")
	if !ok {
		return
	}
	if _, err := h.products.Delete(c.Request.Context(), id); err != nil {
		h.serverError(c, err, "Failed to delete product")
		return
	}
	h.renderer.Redirect(c, dashboardPath, web.FlashSuccess, "Produit supprimé avec succès.")
}

func (h *AdminHandler) addPosting(c *gin.Context) {
	posting, err := h.postings.Add(c.Request.Context(), c.PostForm("title"))
	if errors.Is(err, utils.ErrInvalidTitle) {
		h.renderer.Redirect(c, dashboardPath, web.FlashError, "L'intitulé du poste est obligatoire.")
		return
	}
	if err != nil {
		h.serverError(c, err, "Failed to add posting")
		return
	}
	h.renderer.Redirect(c, dashboardPath, web.FlashSuccess,
		fmt.Sprintf("Poste '%s' ajouté avec succès.", posting.Title))
}

func (h *AdminHandler) deletePosting(c *gin.Context) {
	id, ok := h.formID(c, "delete_posting_id")
	if !ok {
		return
	}
	if _, err := h.postings.Delete(c.Request.Context(), id); err != nil {
		h.serverError(c, err, "Failed to delete posting")
		return
	}
	h.renderer.Redirect(c, dashboardPath, web.FlashSuccess, "Poste supprimé avec succès.")
}

func (h *AdminHandler) toggleFlag(c *gin.Context) {
	key := strings.TrimSpace(c.PostForm("flag"))
	changed, active, err := h.flags.Toggle(c.Request.Context(), key)
	if err != nil {
		h.serverError(c, err, "Failed to toggle flag")
		return
	}
	if !changed {
		h.renderer.Redirect(c, dashboardPath, web.FlashWarning, "Section inconnue.")
		return
	}

	state := "désactivée"
	if active {
		state = "activée"
	}
	h.renderer.Redirect(c, dashboardPath, web.FlashSuccess,
		fmt.Sprintf("Section %s %s.", service.SectionDisplayName(key), state))
}

// formID parses a positive id field. On failure it flashes and redirects.
func (h *AdminHandler) formID(c *gin.Context, field string) (int, bool) {
	id, err := strconv.Atoi(strings.TrimSpace(c.PostForm(field)))
	if err != nil || id <= 0 {
		log.Debug().Err(utils.ErrInvalidID).Str("field", field).Msg("Rejected admin form id")
		h.renderer.Redirect(c, dashboardPath, web.FlashError, "Identifiant invalide.")
		return 0, false
	}
	return id, true
}

func (h *AdminHandler) serverError(c *gin.Context, err error, msg string) {
	log.Error().Err(err).Str("request_id", utils.GetRequestID(c)).Msg(msg)
	h.renderer.Error(c, http.StatusInternalServerError, "Une erreur est survenue. Réessayez plus tard.")
}
