package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/ankitmallick776-glitch/cashyads/internal/config"
	"github.com/ankitmallick776-glitch/cashyads/internal/handler"
	"github.com/ankitmallick776-glitch/cashyads/internal/middleware"
	"github.com/ankitmallick776-glitch/cashyads/internal/notify"
	"github.com/ankitmallick776-glitch/cashyads/internal/ratelimit"
	"github.com/ankitmallick776-glitch/cashyads/internal/repository"
	"github.com/ankitmallick776-glitch/cashyads/internal/service"
	"github.com/ankitmallick776-glitch/cashyads/internal/store"
	"github.com/ankitmallick776-glitch/cashyads/internal/telegram"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to storage
	var accountStore store.Store
	if cfg.Database.Disabled {
		log.Println("Database disabled, using in-memory store (state is lost on restart)")
		accountStore = store.NewMemory()
	} else {
		repo, err := repository.New(cfg.Database.DSN())
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer repo.Close()
		accountStore = repo
	}

	// Optional Redis-backed ad cooldown
	var cooldown *ratelimit.AdCooldown
	if cfg.Redis.Host != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		cooldown = ratelimit.NewAdCooldown(client, cfg.Ads.Cooldown)
	}

	ledgerCfg := service.LedgerConfig{
		CommissionRate:       cfg.Rewards.CommissionRate,
		DailyBonus:           cfg.Rewards.DailyBonus,
		SignupBonus:          cfg.Rewards.SignupBonus,
		MinWithdrawBalance:   cfg.Rewards.MinWithdrawBalance,
		MinWithdrawReferrals: cfg.Rewards.MinWithdrawReferrals,
		MaxRetries:           cfg.Ledger.MaxRetries,
		StoreTimeout:         cfg.Ledger.StoreTimeout,
	}

	// Create services. The engine starts with a no-op notifier and is
	// rebuilt against the bot below once it exists.
	ledgerSvc := service.NewLedgerService(accountStore, notify.Nop{}, ledgerCfg)
	accountSvc := service.NewAccountService(accountStore, ledgerSvc, cfg.Ledger.StoreTimeout)

	// Create Telegram bot (optional)
	var bot *telegram.Bot
	if cfg.Telegram.BotToken != "" {
		bot, err = telegram.NewBot(cfg, accountSvc, ledgerSvc, cooldown)
		if err != nil {
			log.Printf("Warning: Failed to create Telegram bot: %v", err)
			bot = nil
		} else {
			ledgerSvc = service.NewLedgerService(accountStore, bot, ledgerCfg)
			accountSvc = service.NewAccountService(accountStore, ledgerSvc, cfg.Ledger.StoreTimeout)
			bot.SetServices(accountSvc, ledgerSvc)
			log.Printf("Telegram bot @%s initialized", bot.GetBotUsername())
		}
	}

	// Create handlers
	h := handler.New(cfg, accountSvc, ledgerSvc)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	// Health check
	app.Get("/health", h.Health)

	// Reward webhook from the ad player
	app.Post("/webhook/reward", middleware.WebhookAuth(cfg.Ads.WebhookSecret), h.RewardWebhook)

	// Read-only API for the ad-player mini app
	api := app.Group("/api")
	api.Get("/account/:id", h.GetAccount)
	api.Get("/account/:id/ledger", h.GetLedger)
	api.Get("/leaderboard", h.GetLeaderboard)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start Telegram bot long polling
	if bot != nil {
		go bot.StartPolling(ctx)
		log.Println("Telegram bot started with long polling")
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		cancel()
		_ = app.Shutdown()
	}()

	// Start server
	log.Printf("Server starting on port %s", cfg.Server.Port)
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
