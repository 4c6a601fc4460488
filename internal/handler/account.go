package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/ankitmallick776-glitch/cashyads/internal/store"
)

func (h *Handler) GetAccount(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid account id",
		})
	}

	account, err := h.accountSvc.Get(c.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "account not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load account",
		})
	}

	return c.JSON(account)
}

func (h *Handler) GetLedger(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid account id",
		})
	}

	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)

	entries, err := h.ledgerSvc.History(c.Context(), id, limit, offset)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "account not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load ledger",
		})
	}

	return c.JSON(fiber.Map{
		"entries": entries,
	})
}

func (h *Handler) GetLeaderboard(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 10)

	rows, err := h.ledgerSvc.Leaderboard(c.Context(), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load leaderboard",
		})
	}

	return c.JSON(fiber.Map{
		"leaderboard": rows,
	})
}
