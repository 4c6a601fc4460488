package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ankitmallick776-glitch/cashyads/internal/config"
	"github.com/ankitmallick776-glitch/cashyads/internal/service"
)

type Handler struct {
	cfg        *config.Config
	accountSvc *service.AccountService
	ledgerSvc  *service.LedgerService
}

func New(cfg *config.Config, accountSvc *service.AccountService, ledgerSvc *service.LedgerService) *Handler {
	return &Handler{
		cfg:        cfg,
		accountSvc: accountSvc,
		ledgerSvc:  ledgerSvc,
	}
}

func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
	})
}
