package service

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/GTDGit/muni_commerce/internal/config"
	"github.com/GTDGit/muni_commerce/internal/utils"
)

// ContactService turns public form submissions into prefilled messaging links.
type ContactService struct {
	number        string
	minInvestment int
}

// NewContactService constructs a ContactService.
func NewContactService(cfg *config.ContactConfig) *ContactService {
	return &ContactService{number: cfg.WhatsAppNumber, minInvestment: cfg.MinInvestmentAmount}
}

// MinInvestment returns the smallest accepted pledge.
func (s *ContactService) MinInvestment() int {
	return s.minInvestment
}

// InvestmentLink validates the pledge amount and returns the link to the
// admin's chat with the pledge prefilled.
func (s *ContactService) InvestmentLink(name, rawAmount string) (string, error) {
	amount, err := strconv.Atoi(strings.TrimSpace(rawAmount))
	if err != nil {
		return "", utils.ErrInvalidAmount
	}
	if amount < s.minInvestment {
		return "", utils.ErrAmountBelowMinimum
	}

	msg := fmt.Sprintf("Nouvelle promesse d'investissement\nNom: %s\nMontant: %d F", CleanText(name), amount)
	return s.link(msg), nil
}

// ApplicationLink returns the link for a job application. posting is optional.
func (s *ContactService) ApplicationLink(firstName, lastName, posting string) string {
	msg := fmt.Sprintf("Candidature: %s %s", CleanText(firstName), CleanText(lastName))
	if p := CleanText(posting); p != "" {
		msg += "\nPoste: " + p
	}
	return s.link(msg)
}

func (s *ContactService) link(message string) string {
	return "https://wa.me/" + s.number + "?text=" + url.QueryEscape(message)
}
