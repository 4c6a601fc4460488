package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/ankitmallick776-glitch/cashyads/internal/config"
	"github.com/ankitmallick776-glitch/cashyads/internal/middleware"
	"github.com/ankitmallick776-glitch/cashyads/internal/model"
	"github.com/ankitmallick776-glitch/cashyads/internal/notify"
	"github.com/ankitmallick776-glitch/cashyads/internal/service"
	"github.com/ankitmallick776-glitch/cashyads/internal/store"
)

func newTestApp(t *testing.T, webhookSecret string) (*fiber.App, *store.Memory) {
	t.Helper()

	cfg := &config.Config{
		Ads: config.AdsConfig{
			AcceptedResults: []string{"completed", "success", "rewarded"},
			RewardMin:       3,
			RewardMax:       5,
			WebhookSecret:   webhookSecret,
		},
	}

	mem := store.NewMemory()
	ledgerSvc := service.NewLedgerService(mem, notify.Nop{}, service.LedgerConfig{
		CommissionRate: decimal.RequireFromString("0.05"),
		MaxRetries:     10,
		StoreTimeout:   time.Second,
	})
	accountSvc := service.NewAccountService(mem, ledgerSvc, time.Second)
	h := New(cfg, accountSvc, ledgerSvc)

	app := fiber.New()
	app.Get("/health", h.Health)
	app.Post("/webhook/reward", middleware.WebhookAuth(cfg.Ads.WebhookSecret), h.RewardWebhook)
	app.Get("/api/account/:id", h.GetAccount)
	app.Get("/api/account/:id/ledger", h.GetLedger)
	app.Get("/api/leaderboard", h.GetLeaderboard)

	return app, mem
}

func postReward(t *testing.T, app *fiber.App, body map[string]interface{}, headers map[string]string) (*http.Response, RewardWebhookResponse) {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/webhook/reward", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}

	raw, _ := io.ReadAll(resp.Body)
	var decoded RewardWebhookResponse
	_ = json.Unmarshal(raw, &decoded)
	return resp, decoded
}

func seedAccount(t *testing.T, mem *store.Memory, id int64) {
	t.Helper()
	if _, _, err := mem.CreateIfAbsent(context.Background(), &model.Account{ID: id}); err != nil {
		t.Fatalf("seed account: %v", err)
	}
}

func TestHealth(t *testing.T) {
	app, _ := newTestApp(t, "")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body map[string]string
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &body)
	if body["status"] != "ok" {
		t.Errorf(`expected status "ok", got %q`, body["status"])
	}
}

func TestRewardWebhookCreditsOnAcceptedResult(t *testing.T) {
	app, mem := newTestApp(t, "")
	seedAccount(t, mem, 1)

	reward := 4.0
	resp, decoded := postReward(t, app, map[string]interface{}{
		"user_id":  1,
		"result":   "COMPLETED", // accepted tokens match case-insensitively
		"reward":   reward,
		"event_id": "evt-1",
	}, nil)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !decoded.Success {
		t.Fatalf("expected success, got %+v", decoded)
	}
	if decoded.Reward == nil || !decoded.Reward.Equal(decimal.RequireFromString("4")) {
		t.Errorf("expected reward 4, got %v", decoded.Reward)
	}
	if decoded.NewBalance == nil || !decoded.NewBalance.Equal(decimal.RequireFromString("4")) {
		t.Errorf("expected new_balance 4, got %v", decoded.NewBalance)
	}

	account, _ := mem.Load(context.Background(), 1)
	if account.AdsWatched != 1 {
		t.Errorf("expected ads_watched 1, got %d", account.AdsWatched)
	}
}

func TestRewardWebhookRejectsOtherResults(t *testing.T) {
	app, mem := newTestApp(t, "")
	seedAccount(t, mem, 1)

	resp, decoded := postReward(t, app, map[string]interface{}{
		"user_id": 1,
		"result":  "skipped",
	}, nil)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if decoded.Success {
		t.Error("skipped ad must not be credited")
	}

	account, _ := mem.Load(context.Background(), 1)
	if !account.Balance.IsZero() {
		t.Errorf("balance changed on rejected result: %s", account.Balance)
	}
}

func TestRewardWebhookDrawsRewardFromRange(t *testing.T) {
	app, mem := newTestApp(t, "")
	seedAccount(t, mem, 1)

	_, decoded := postReward(t, app, map[string]interface{}{
		"user_id":  1,
		"result":   "completed",
		"event_id": "evt-range",
	}, nil)

	if !decoded.Success || decoded.Reward == nil {
		t.Fatalf("expected success with reward, got %+v", decoded)
	}
	min := decimal.RequireFromString("3")
	max := decimal.RequireFromString("5")
	if decoded.Reward.LessThan(min) || decoded.Reward.GreaterThan(max) {
		t.Errorf("reward %s outside configured range [3,5]", decoded.Reward)
	}

	account, _ := mem.Load(context.Background(), 1)
	if !account.Balance.Equal(*decoded.Reward) {
		t.Errorf("balance %s does not match reward %s", account.Balance, decoded.Reward)
	}
}

func TestRewardWebhookDeduplicatesRedelivery(t *testing.T) {
	app, mem := newTestApp(t, "")
	seedAccount(t, mem, 1)

	body := map[string]interface{}{
		"user_id":  1,
		"result":   "completed",
		"reward":   4.0,
		"event_id": "evt-redelivered",
	}

	_, first := postReward(t, app, body, nil)
	resp, second := postReward(t, app, body, nil)

	if resp.StatusCode != http.StatusOK || !second.Success {
		t.Fatalf("redelivery must report success, got %d %+v", resp.StatusCode, second)
	}
	if !second.Reward.Equal(*first.Reward) {
		t.Errorf("redelivery changed the reward: %s vs %s", second.Reward, first.Reward)
	}

	account, _ := mem.Load(context.Background(), 1)
	if !account.Balance.Equal(decimal.RequireFromString("4")) {
		t.Errorf("double credit: balance %s", account.Balance)
	}
}

func TestRewardWebhookUnknownUser(t *testing.T) {
	app, _ := newTestApp(t, "")

	resp, decoded := postReward(t, app, map[string]interface{}{
		"user_id":  777,
		"result":   "completed",
		"event_id": "evt-ghost",
	}, nil)

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if decoded.Success {
		t.Error("unknown user must not be credited")
	}
}

func TestRewardWebhookSecret(t *testing.T) {
	app, mem := newTestApp(t, "s3cret")
	seedAccount(t, mem, 1)

	body := map[string]interface{}{
		"user_id":  1,
		"result":   "completed",
		"reward":   4.0,
		"event_id": "evt-auth",
	}

	resp, _ := postReward(t, app, body, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without secret, got %d", resp.StatusCode)
	}

	resp, decoded := postReward(t, app, body, map[string]string{"X-Webhook-Secret": "s3cret"})
	if resp.StatusCode != http.StatusOK || !decoded.Success {
		t.Fatalf("expected success with secret, got %d %+v", resp.StatusCode, decoded)
	}
}

func TestLedgerEndpoint(t *testing.T) {
	app, mem := newTestApp(t, "")
	seedAccount(t, mem, 1)

	for _, key := range []string{"evt-h1", "evt-h2"} {
		_, decoded := postReward(t, app, map[string]interface{}{
			"user_id":  1,
			"result":   "completed",
			"reward":   4.0,
			"event_id": key,
		}, nil)
		if !decoded.Success {
			t.Fatalf("seed credit failed: %+v", decoded)
		}
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/account/1/ledger", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Entries []model.LedgerEntry `json:"entries"`
	}
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(body.Entries))
	}
	for _, entry := range body.Entries {
		if entry.Kind != model.EntryKindAdReward {
			t.Errorf("unexpected entry kind %s", entry.Kind)
		}
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/account/404/ledger", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown account, got %d", resp.StatusCode)
	}
}

func TestLeaderboardEndpoint(t *testing.T) {
	app, mem := newTestApp(t, "")
	seedAccount(t, mem, 1)
	seedAccount(t, mem, 2)

	for _, evt := range []struct {
		id     int
		amount float64
		key    string
	}{
		{1, 4, "evt-a"},
		{2, 5, "evt-b"},
		{2, 5, "evt-c"},
	} {
		_, decoded := postReward(t, app, map[string]interface{}{
			"user_id":  evt.id,
			"result":   "completed",
			"reward":   evt.amount,
			"event_id": evt.key,
		}, nil)
		if !decoded.Success {
			t.Fatalf("seed credit failed: %+v", decoded)
		}
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/leaderboard?limit=5", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Leaderboard []model.LeaderboardRow `json:"leaderboard"`
	}
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Leaderboard) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(body.Leaderboard))
	}
	if body.Leaderboard[0].ID != 2 {
		t.Errorf("expected account 2 on top, got %d", body.Leaderboard[0].ID)
	}
}
