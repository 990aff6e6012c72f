package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/crm-whatsapp/crm-service/internal/composer"
	"github.com/crm-whatsapp/crm-service/internal/domain"
	"github.com/crm-whatsapp/crm-service/internal/filter"
)

type statusInfo struct {
	Value  domain.ClientStatus `json:"value"`
	Rank   int                 `json:"rank"`
	Phrase string              `json:"phrase"`
}

// Statuses GET /meta/statuses lists the funnel and the form choices.
func Statuses(c *fiber.Ctx) error {
	statuses := make([]statusInfo, 0, len(domain.Statuses))
	for _, s := range domain.Statuses {
		statuses = append(statuses, statusInfo{Value: s, Rank: s.Rank(), Phrase: composer.StatusPhrase(s)})
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"statuses":       statuses,
		"contract_types": domain.ContractTypes,
		"orders":         []string{filter.OrderRecent, filter.OrderStatus, filter.OrderName},
		"roles":          []domain.Role{domain.RoleOperator, domain.RoleAdmin},
	}})
}
