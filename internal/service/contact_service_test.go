package service

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/muni_commerce/internal/config"
	"github.com/GTDGit/muni_commerce/internal/utils"
)

func newContact() *ContactService {
	return NewContactService(&config.ContactConfig{WhatsAppNumber: "22890000000", MinInvestmentAmount: 50000})
}

func TestInvestmentLink(t *testing.T) {
	svc := newContact()
	assert.Equal(t, 50000, svc.MinInvestment())

	_, err := svc.InvestmentLink("Ama", "10000")
	assert.ErrorIs(t, err, utils.ErrAmountBelowMinimum)

	_, err = svc.InvestmentLink("Ama", "beaucoup")
	assert.ErrorIs(t, err, utils.ErrInvalidAmount)

	link, err := svc.InvestmentLink("Ama", "60000")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link, "https://wa.me/22890000000?text="))
	assert.Contains(t, link, url.QueryEscape("Nom: Ama"))
	assert.Contains(t, link, url.QueryEscape("Montant: 60000"))

	link, err = svc.InvestmentLink("Kofi", "50000")
	require.NoError(t, err)
	assert.Contains(t, link, url.QueryEscape("Montant: 50000 F"))
}

func TestApplicationLink(t *testing.T) {
	svc := newContact()

	link := svc.ApplicationLink("Ama", "Mensah", "Vendeur")
	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "wa.me", u.Host)
	assert.Equal(t, "Candidature: Ama Mensah\nPoste: Vendeur", u.Query().Get("text"))

	u, err = url.Parse(svc.ApplicationLink("Ama", "Mensah", ""))
	require.NoError(t, err)
	assert.Equal(t, "Candidature: Ama Mensah", u.Query().Get("text"))
}
