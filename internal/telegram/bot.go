package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v3"

	"github.com/ankitmallick776-glitch/cashyads/internal/config"
	"github.com/ankitmallick776-glitch/cashyads/internal/ratelimit"
	"github.com/ankitmallick776-glitch/cashyads/internal/service"
	"github.com/ankitmallick776-glitch/cashyads/internal/store"
)

type Bot struct {
	bot        *tele.Bot
	cfg        *config.Config
	accountSvc *service.AccountService
	ledgerSvc  *service.LedgerService
	cooldown   *ratelimit.AdCooldown

	menu        *tele.ReplyMarkup
	btnWatchAds tele.Btn
	btnBalance  tele.Btn
	btnRefer    tele.Btn
	btnBonus    tele.Btn
	btnTop      tele.Btn
	btnWithdraw tele.Btn
}

func NewBot(
	cfg *config.Config,
	accountSvc *service.AccountService,
	ledgerSvc *service.LedgerService,
	cooldown *ratelimit.AdCooldown,
) (*Bot, error) {
	pref := tele.Settings{
		Token:  cfg.Telegram.BotToken,
		Poller: &tele.LongPoller{Timeout: 60 * time.Second},
	}

	bot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot:        bot,
		cfg:        cfg,
		accountSvc: accountSvc,
		ledgerSvc:  ledgerSvc,
		cooldown:   cooldown,
	}

	b.buildMenu()
	b.registerHandlers()

	return b, nil
}

func (b *Bot) buildMenu() {
	b.menu = &tele.ReplyMarkup{ResizeKeyboard: true}
	b.btnWatchAds = b.menu.Text("💰 Watch Ads")
	b.btnBalance = b.menu.Text("💵 Balance")
	b.btnRefer = b.menu.Text("👥 Refer and Earn")
	b.btnBonus = b.menu.Text("🎁 Bonus")
	b.btnTop = b.menu.Text("🏆 Leaderboard")
	b.btnWithdraw = b.menu.Text("💳 Withdraw")
	b.menu.Reply(
		b.menu.Row(b.btnWatchAds, b.btnBalance),
		b.menu.Row(b.btnRefer, b.btnBonus),
		b.menu.Row(b.btnTop, b.btnWithdraw),
	)
}

func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", b.handleStart)
	b.bot.Handle("/balance", b.handleBalance)
	b.bot.Handle("/bonus", b.handleBonus)
	b.bot.Handle("/refer", b.handleRefer)
	b.bot.Handle("/leaderboard", b.handleLeaderboard)
	b.bot.Handle("/withdraw", b.handleWithdraw)

	b.bot.Handle(&b.btnWatchAds, b.handleWatchAds)
	b.bot.Handle(&b.btnBalance, b.handleBalance)
	b.bot.Handle(&b.btnRefer, b.handleRefer)
	b.bot.Handle(&b.btnBonus, b.handleBonus)
	b.bot.Handle(&b.btnTop, b.handleLeaderboard)
	b.bot.Handle(&b.btnWithdraw, b.handleWithdraw)
}

// SetServices swaps in the services built around the bot-backed
// notifier (the bot has to exist before that engine can).
func (b *Bot) SetServices(accountSvc *service.AccountService, ledgerSvc *service.LedgerService) {
	b.accountSvc = accountSvc
	b.ledgerSvc = ledgerSvc
}

func (b *Bot) StartPolling(ctx context.Context) {
	go func() {
		<-ctx.Done()
		b.bot.Stop()
	}()
	b.bot.Start()
}

func (b *Bot) GetBotUsername() string {
	return b.bot.Me.Username
}

// NotifyReferralCommission implements the notify.Notifier port:
// best-effort chat delivery of a commission credit.
func (b *Bot) NotifyReferralCommission(referrerID int64, watcherName string, commission, newBalance decimal.Decimal) error {
	text := fmt.Sprintf(`💸 <b>Commission earned!</b>

%s just watched an ad and you earned ₹%s.

💰 New balance: ₹%s`,
		watcherName,
		commission.StringFixed(2),
		newBalance.StringFixed(2),
	)

	_, err := b.bot.Send(&tele.User{ID: referrerID}, text, tele.ModeHTML)
	return err
}

// resolveAccount creates the account on first contact, so every button
// works even if the user never sent /start.
func (b *Bot) resolveAccount(c tele.Context, referrerID *int64) (*tele.User, error) {
	user := c.Sender()

	identity := service.TelegramIdentity{
		ID:         user.ID,
		ReferrerID: referrerID,
	}
	if user.Username != "" {
		identity.Username = &user.Username
	}
	if user.FirstName != "" {
		identity.FirstName = &user.FirstName
	}

	_, _, err := b.accountSvc.GetOrCreate(context.Background(), identity)
	return user, err
}

func (b *Bot) handleStart(c tele.Context) error {
	var referrerID *int64
	payload := c.Message().Payload
	if strings.HasPrefix(payload, "ref_") {
		if id, err := strconv.ParseInt(strings.TrimPrefix(payload, "ref_"), 10, 64); err == nil {
			referrerID = &id
		}
	}

	user, err := b.resolveAccount(c, referrerID)
	if err != nil {
		return err
	}

	text := fmt.Sprintf(`👋 Welcome to CashyAds, %s!

🌟 Start earning money with simple tasks!

💰 Watch Ads — earn money by watching video ads
💵 Balance — check your current earnings
👥 Refer and Earn — invite friends and earn commission
🎁 Bonus — claim your daily bonus
🏆 Leaderboard — see the top earners
💳 Withdraw — cash out your balance

Use the buttons below to get started! 🚀`, user.FirstName)

	return c.Send(text, b.menu)
}

func (b *Bot) handleWatchAds(c tele.Context) error {
	user, err := b.resolveAccount(c, nil)
	if err != nil {
		return err
	}

	account, err := b.accountSvc.Get(context.Background(), user.ID)
	if err != nil {
		return err
	}

	now := time.Now()
	if !service.CanWatchAd(account, now, b.cfg.Ads.Cooldown) {
		wait := b.cfg.Ads.Cooldown - now.Sub(*account.AdWatchedAt)
		return c.Send(fmt.Sprintf("⏳ Please wait %s before watching another ad.", formatWait(wait)), b.menu)
	}

	if allowed, wait, err := b.cooldown.Allow(context.Background(), user.ID); err != nil {
		log.Printf("Ad cooldown check failed for user %d: %v", user.ID, err)
	} else if !allowed {
		return c.Send(fmt.Sprintf("⏳ Please wait %s before watching another ad.", formatWait(wait)), b.menu)
	}

	session := uuid.New().String()
	url := fmt.Sprintf("%s?user_id=%d&session=%s", b.cfg.Ads.PlayerURL, user.ID, session)

	keyboard := &tele.ReplyMarkup{}
	keyboard.Inline(
		keyboard.Row(
			keyboard.WebApp("▶️ Click to Watch Ad", &tele.WebApp{URL: url}),
		),
	)

	return c.Send(fmt.Sprintf("Watch a video ad and earn ₹%.0f-₹%.0f! Click below to start watching.",
		b.cfg.Ads.RewardMin, b.cfg.Ads.RewardMax), keyboard)
}

func (b *Bot) handleBalance(c tele.Context) error {
	user, err := b.resolveAccount(c, nil)
	if err != nil {
		return err
	}

	account, err := b.accountSvc.Get(context.Background(), user.ID)
	if err != nil {
		return err
	}

	text := fmt.Sprintf(`💵 <b>Your Balance</b>

💰 Current Balance: ₹%s
📺 Ads Watched: %d
👥 Referrals: %d
📈 Total Earned: ₹%s
💸 Commission Earned: ₹%s

Keep earning by watching ads and referring friends! 🚀`,
		account.Balance.StringFixed(2),
		account.AdsWatched,
		account.ReferralCount,
		account.TotalEarnings.StringFixed(2),
		account.CommissionEarned.StringFixed(2),
	)

	return c.Send(text, b.menu, tele.ModeHTML)
}

func (b *Bot) handleRefer(c tele.Context) error {
	user, err := b.resolveAccount(c, nil)
	if err != nil {
		return err
	}

	account, err := b.accountSvc.Get(context.Background(), user.ID)
	if err != nil {
		return err
	}

	link := fmt.Sprintf("https://t.me/%s?start=ref_%d", b.bot.Me.Username, user.ID)

	text := fmt.Sprintf(`👥 <b>Refer and Earn</b>

Share your referral link with friends and earn rewards!

🔗 Your Referral Link:
<code>%s</code>

💰 Earn ₹%s for each friend who joins, plus %s%% commission on every ad they watch!

Total Referrals: %d`,
		link,
		b.cfg.Rewards.SignupBonus.StringFixed(0),
		b.cfg.Rewards.CommissionRate.Mul(decimal.NewFromInt(100)).StringFixed(0),
		account.ReferralCount,
	)

	return c.Send(text, b.menu, tele.ModeHTML)
}

func (b *Bot) handleBonus(c tele.Context) error {
	user, err := b.resolveAccount(c, nil)
	if err != nil {
		return err
	}

	result, err := b.ledgerSvc.ClaimDailyBonus(context.Background(), user.ID, time.Now())
	if err != nil {
		if errors.Is(err, service.ErrBonusAlreadyClaimed) {
			return c.Send(`🎁 <b>Daily Bonus</b>

You've already claimed your bonus today!
Come back tomorrow for another bonus! ⏰`, b.menu, tele.ModeHTML)
		}
		return err
	}

	text := fmt.Sprintf(`🎉 <b>Congratulations!</b>

You've claimed your daily bonus of ₹%s!
New Balance: ₹%s

Come back tomorrow for more! 🌟`,
		result.Amount.StringFixed(2),
		result.NewBalance.StringFixed(2),
	)

	return c.Send(text, b.menu, tele.ModeHTML)
}

func (b *Bot) handleLeaderboard(c tele.Context) error {
	if _, err := b.resolveAccount(c, nil); err != nil {
		return err
	}

	rows, err := b.ledgerSvc.Leaderboard(context.Background(), 10)
	if err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString("🏆 <b>Top Earners</b>\n\n")
	medals := []string{"🥇", "🥈", "🥉"}
	for i, row := range rows {
		rank := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			rank = medals[i]
		}
		sb.WriteString(fmt.Sprintf("%s %s — ₹%s\n", rank, row.Name, row.Balance.StringFixed(2)))
	}
	if len(rows) == 0 {
		sb.WriteString("Nobody has earned anything yet. Be the first!")
	}

	return c.Send(sb.String(), b.menu, tele.ModeHTML)
}

func (b *Bot) handleWithdraw(c tele.Context) error {
	user, err := b.resolveAccount(c, nil)
	if err != nil {
		return err
	}

	result, err := b.ledgerSvc.RequestWithdrawal(context.Background(), user.ID, "manual")
	if err != nil {
		var notEligible *service.WithdrawalNotEligibleError
		if errors.As(err, &notEligible) {
			return c.Send(b.withdrawalShortfall(notEligible), b.menu, tele.ModeHTML)
		}
		if errors.Is(err, store.ErrAccountNotFound) {
			return c.Send("Please send /start first to initialize your account.", b.menu)
		}
		return err
	}

	text := fmt.Sprintf(`✅ <b>Withdrawal requested!</b>

💰 Amount: ₹%s

Our payout team will contact you for your payment details. Keep earning in the meantime! 🚀`,
		result.Amount.StringFixed(2),
	)

	return c.Send(text, b.menu, tele.ModeHTML)
}

func (b *Bot) withdrawalShortfall(err *service.WithdrawalNotEligibleError) string {
	switch err.Reason {
	case service.WithdrawalReasonBalance:
		return fmt.Sprintf(`❌ <b>Not eligible yet</b>

You need a balance of at least ₹%s to withdraw.
You're ₹%s away — keep watching ads! 📺`,
			b.cfg.Rewards.MinWithdrawBalance.StringFixed(2),
			err.AmountNeeded.StringFixed(2),
		)
	case service.WithdrawalReasonReferrals:
		return fmt.Sprintf(`❌ <b>Not eligible yet</b>

You need at least %d referrals to withdraw.
Invite %d more friends with your referral link! 👥`,
			b.cfg.Rewards.MinWithdrawReferrals,
			err.ReferralsNeeded,
		)
	default:
		return "❌ You're not eligible to withdraw yet."
	}
}

func formatWait(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	}
	return fmt.Sprintf("%d minutes", int(d.Minutes())+1)
}
