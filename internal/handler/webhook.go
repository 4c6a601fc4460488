package handler

import (
	"errors"
	"math/rand"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ankitmallick776-glitch/cashyads/internal/service"
	"github.com/ankitmallick776-glitch/cashyads/internal/store"
)

// RewardWebhookRequest is what the ad player posts after a session
// ends. EventID is the ad network's unique delivery id; reusing it on
// redelivery is what makes crediting idempotent.
type RewardWebhookRequest struct {
	UserID  int64    `json:"user_id"`
	Result  string   `json:"result"`
	Reward  *float64 `json:"reward,omitempty"`
	EventID string   `json:"event_id,omitempty"`
}

type RewardWebhookResponse struct {
	Success    bool             `json:"success"`
	Reward     *decimal.Decimal `json:"reward,omitempty"`
	NewBalance *decimal.Decimal `json:"new_balance,omitempty"`
	Message    string           `json:"message,omitempty"`
}

func (h *Handler) RewardWebhook(c *fiber.Ctx) error {
	var req RewardWebhookRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(RewardWebhookResponse{
			Success: false,
			Message: "invalid request body",
		})
	}

	if req.UserID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(RewardWebhookResponse{
			Success: false,
			Message: "user_id is required",
		})
	}

	if !h.resultAccepted(req.Result) {
		return c.JSON(RewardWebhookResponse{
			Success: false,
			Message: "ad was not completed, no reward credited",
		})
	}

	reward := h.pickReward(req.Reward)
	eventKey := req.EventID
	if eventKey == "" {
		// Without a delivery id there is nothing to deduplicate on.
		eventKey = uuid.New().String()
	}

	result, err := h.ledgerSvc.ApplyAdReward(c.Context(), req.UserID, reward, eventKey)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(RewardWebhookResponse{
				Success: false,
				Message: "unknown user, please start the bot first",
			})
		}
		if errors.Is(err, service.ErrTransientFailure) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(RewardWebhookResponse{
				Success: false,
				Message: "temporarily unavailable, please retry",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(RewardWebhookResponse{
			Success: false,
			Message: "failed to credit reward",
		})
	}

	message := "reward credited"
	if result.Duplicate {
		message = "event already processed"
	}

	return c.JSON(RewardWebhookResponse{
		Success:    true,
		Reward:     &result.Reward,
		NewBalance: &result.NewBalance,
		Message:    message,
	})
}

func (h *Handler) resultAccepted(result string) bool {
	for _, token := range h.cfg.Ads.AcceptedResults {
		if strings.EqualFold(result, token) {
			return true
		}
	}
	return false
}

// pickReward uses the amount reported by the ad network when present,
// otherwise draws uniformly from the configured range.
func (h *Handler) pickReward(reported *float64) decimal.Decimal {
	if reported != nil && *reported > 0 {
		return decimal.NewFromFloat(*reported).Round(2)
	}

	min, max := h.cfg.Ads.RewardMin, h.cfg.Ads.RewardMax
	if max <= min {
		return decimal.NewFromFloat(min).Round(2)
	}
	return decimal.NewFromFloat(min + rand.Float64()*(max-min)).Round(2)
}
