// Package bot drives the trading cycle: one strictly sequential pass over
// every account (user info, tasks, mining, referral, trading) followed by
// a settle-delay sleep, repeated until the context is canceled.
package bot

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"kiloex-bot/internal/accounts"
	"kiloex-bot/internal/cfg"
	"kiloex-bot/internal/common"
	"kiloex-bot/internal/exchange/kiloex"
	"kiloex-bot/internal/metrics"
	"kiloex-bot/internal/tasks"
	"kiloex-bot/internal/trade"
)

type Bot struct {
	client   *kiloex.Client
	config   cfg.Settings
	accounts []accounts.Account
	tasks    *tasks.Engine
	trade    *trade.Engine
	metrics  *metrics.Metrics
}

func New(client *kiloex.Client, config cfg.Settings, accts []accounts.Account,
	taskEngine *tasks.Engine, tradeEngine *trade.Engine, m *metrics.Metrics,
) *Bot {
	return &Bot{
		client:   client,
		config:   config,
		accounts: accts,
		tasks:    taskEngine,
		trade:    tradeEngine,
		metrics:  m,
	}
}

// Run loops over RunCycle forever, sleeping settleDelay plus the cycle
// buffer between passes. It returns only when ctx is canceled.
func (b *Bot) Run(ctx context.Context) error {
	settleWait := time.Duration(b.config.SettleDelay)*time.Second + b.config.CycleBuffer

	for {
		if err := b.RunCycle(ctx); err != nil {
			return err
		}

		log.Info().
			Str("wait", common.FormatSettleDelay(int(settleWait.Seconds()))).
			Msg("cycle completed, waiting for positions to settle")
		if err := common.Sleep(ctx, settleWait); err != nil {
			return err
		}
	}
}

// RunCycle processes every account once, in file order, with the account
// delay between neighbors. Per-account failures are isolated; only context
// cancellation stops the pass.
func (b *Bot) RunCycle(ctx context.Context) error {
	runID := uuid.NewString()
	logger := log.With().Str("run", runID).Logger()
	logger.Info().Int("accounts", len(b.accounts)).Msg("starting cycle")

	for i, acct := range b.accounts {
		if err := ctx.Err(); err != nil {
			return err
		}

		logger.Info().Int("index", i+1).Str("name", acct.Name).Msg("processing account")
		if err := b.processAccount(ctx, acct); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Error().Err(err).Str("account", acct.ID).Msg("account processing failed")
		}

		if i < len(b.accounts)-1 {
			if err := common.Sleep(ctx, b.config.AccountDelay); err != nil {
				return err
			}
		}
	}

	b.metrics.CyclesTotal.Inc()
	b.metrics.LastCycleAccounts.Set(float64(len(b.accounts)))
	return nil
}

// processAccount runs the full per-account phase sequence. The balance
// gate returns early: an account that cannot cover both margins does
// nothing at all this cycle beyond the info fetch.
func (b *Bot) processAccount(ctx context.Context, acct accounts.Account) error {
	info, err := b.client.UserInfo(ctx, acct.ID, acct.Name)
	if err != nil {
		b.metrics.AccountsSkipped.Inc()
		log.Error().Err(err).Msg("unable to get account information")
		return nil
	}

	log.Info().
		Int64("id", info.ID).
		Int("level", info.Level).
		Str("balance", common.FormatAmount(info.Balance)).
		Float64("stamina", info.Stamina).
		Str("exp", common.FormatAmount(info.Exp)).
		Msg("account info")

	requiredBalance := b.config.Margin * 2
	if info.Balance < requiredBalance {
		b.metrics.AccountsSkipped.Inc()
		log.Info().
			Str("balance", common.FormatAmount(info.Balance)).
			Str("required", common.FormatAmount(requiredBalance)).
			Msg("insufficient balance for trading, skipping account")
		return nil
	}

	if err := common.Sleep(ctx, b.config.AccountDelay); err != nil {
		return err
	}
	if err := b.tasks.ProcessAll(ctx, acct.ID, acct.Name); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Error().Err(err).Msg("failed to process tasks")
	}

	if info.Stamina > 0 {
		if err := common.Sleep(ctx, b.config.OrderPace); err != nil {
			return err
		}
		if err := b.client.UpdateMining(ctx, acct.ID, info.Stamina); err != nil {
			log.Error().Err(err).Msg("mining update failed")
		} else {
			b.metrics.MiningUpdates.Inc()
			log.Info().Msg("mining successful")
		}
	}

	if err := common.Sleep(ctx, b.config.TaskDelay); err != nil {
		return err
	}
	if err := b.bindReferral(ctx, acct.ID); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Error().Err(err).Msg("referral check failed")
	}

	if err := common.Sleep(ctx, b.config.OrderPace); err != nil {
		return err
	}

	log.Info().
		Str("balance", common.FormatAmount(info.Balance)).
		Msg("starting trading")
	return b.trade.OpenPair(ctx, acct.ID)
}

// bindReferral binds the configured referral code when the account has
// none. Safe to call every cycle: it only acts on an empty code list.
func (b *Bot) bindReferral(ctx context.Context, account string) error {
	codes, err := b.client.ReferralCodes(ctx, account)
	if err != nil {
		return err
	}
	if len(codes) > 0 {
		return nil
	}

	if err := common.Sleep(ctx, b.config.TaskDelay); err != nil {
		return err
	}
	if err := b.client.BindReferral(ctx, account, b.config.ReferralCode); err != nil {
		return err
	}
	b.metrics.ReferralBinds.Inc()
	log.Info().Str("code", b.config.ReferralCode).Msg("referral code bound")
	return nil
}
