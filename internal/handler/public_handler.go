package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/muni_commerce/internal/models"
	"github.com/GTDGit/muni_commerce/internal/service"
	"github.com/GTDGit/muni_commerce/internal/utils"
	"github.com/GTDGit/muni_commerce/internal/web"
)

// PublicHandler serves the showcase pages and the two contact forms.
// Flag gating and rate limiting are done by middleware ahead of these handlers.
type PublicHandler struct {
	products *service.ProductService
	postings *service.PostingService
	contact  *service.ContactService
	renderer *web.Renderer
}

// NewPublicHandler creates a PublicHandler.
func NewPublicHandler(products *service.ProductService, postings *service.PostingService, contact *service.ContactService, renderer *web.Renderer) *PublicHandler {
	return &PublicHandler{products: products, postings: postings, contact: contact, renderer: renderer}
}

// Presentation renders the landing page.
func (h *PublicHandler) Presentation(c *gin.Context) {
	h.renderer.HTML(c, http.StatusOK, "presentation", gin.H{"Title": "Présentation"})
}

// Home renders the home page.
func (h *PublicHandler) Home(c *gin.Context) {
	h.renderer.HTML(c, http.StatusOK, "index", gin.H{"Title": "Accueil"})
}

// Commerce lists every configured section.
func (h *PublicHandler) Commerce(c *gin.Context) {
	bySection, err := h.products.BySection(c.Request.Context())
	if err != nil {
		h.serverError(c, err, "Failed to list products")
		return
	}

	var footer []models.Product
	for _, sec := range h.products.Sections() {
		for _, p := range bySection[sec.Key] {
			if p.IsFooter {
				footer = append(footer, p)
			}
		}
	}

	h.renderer.HTML(c, http.StatusOK, "commerce", gin.H{
		"Title":    "Commerce",
		"Sections": h.products.Sections(),
		"Products": bySection,
		"Footer":   footer,
	})
}

// Section lists the products of one section.
func (h *PublicHandler) Section(c *gin.Context) {
	key := c.Param("name")
	section, ok := h.products.Section(key)
	if !ok {
		h.renderer.Error(c, http.StatusNotFound, "Section introuvable.")
		return
	}

	products, err := h.products.List(c.Request.Context(), key)
	if err != nil {
		h.serverError(c, err, "Failed to list section products")
		return
	}
	h.renderer.HTML(c, http.StatusOK, "section", gin.H{
		"Title":    section.Label,
		"Section":  section,
		"Products": products,
	})
}

// InvestmentForm renders the pledge form.
func (h *PublicHandler) InvestmentForm(c *gin.Context) {
	h.renderer.HTML(c, http.StatusOK, "investissement", gin.H{
		"Title":     "Investissement",
		"MinAmount": h.contact.MinInvestment(),
	})
}

// SubmitInvestment validates the pledge and redirects to the prefilled chat.
// Validation failures flash a message and redirect back to the form.
func (h *PublicHandler) SubmitInvestment(c *gin.Context) {
	link, err := h.contact.InvestmentLink(c.PostForm("nom"), c.PostForm("montant"))
	switch {
	case errors.Is(err, utils.ErrInvalidAmount):
		h.renderer.Redirect(c, "/investissement", web.FlashError, "Montant invalide.")
		return
	case errors.Is(err, utils.ErrAmountBelowMinimum):
		h.renderer.Redirect(c, "/investissement", web.FlashError,
			"Montant minimum: "+strconv.Itoa(h.contact.MinInvestment())+" F.")
		return
	case err != nil:
		h.serverError(c, err, "Failed to build investment link")
		return
	}

	h.renderer.Redirect(c, link, web.FlashSuccess, "Redirection vers WhatsApp pour finalisation.")
}

// RecruitmentForm renders the application form with the open postings.
func (h *PublicHandler) RecruitmentForm(c *gin.Context) {
	postings, err := h.postings.List(c.Request.Context())
	if err != nil {
		h.serverError(c, err, "Failed to list postings")
		return
	}
	h.renderer.HTML(c, http.StatusOK, "recrutement", gin.H{
		"Title":    "Recrutement",
		"Postings": postings,
	})
}

// SubmitApplication redirects to the prefilled chat.
func (h *PublicHandler) SubmitApplication(c *gin.Context) {
	link := h.contact.ApplicationLink(c.PostForm("prenom"), c.PostForm("nom"), c.PostForm("poste"))
	h.renderer.Redirect(c, link, web.FlashSuccess, "Redirection vers WhatsApp pour confirmation.")
}

// NotFound renders the error page for unknown paths.
func (h *PublicHandler) NotFound(c *gin.Context) {
	h.renderer.Error(c, http.StatusNotFound, "Page introuvable.")
}

func (h *PublicHandler) serverError(c *gin.Context, err error, msg string) {
	log.Error().Err(err).Str("request_id", utils.GetRequestID(c)).Msg(msg)
	h.renderer.Error(c, http.StatusInternalServerError, "Une erreur est survenue. Réessayez plus tard.")
}
