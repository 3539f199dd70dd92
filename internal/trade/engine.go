// Package trade opens the paired long/short leveraged positions for each
// account. It resolves the product per order, paces submissions, retries
// rate-limited orders a bounded number of times, and classifies the
// remote's insufficient-balance rejection as an expected outcome rather
// than a hard failure.
package trade

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog/log"

	"kiloex-bot/internal/cfg"
	"kiloex-bot/internal/common"
	"kiloex-bot/internal/exchange/kiloex"
	"kiloex-bot/internal/metrics"
	"kiloex-bot/internal/storage"
)

// openAttempts bounds the rate-limit retry loop. The remote's "too
// quickly" rejection is transient; anything still failing after this many
// attempts is returned as a terminal error.
const openAttempts = 3

// defaultProduct is the catalog entry used in default mode.
var defaultProduct = kiloex.Product{ID: 2, Base: "BTC", Name: "BTCUSD"}

type Engine struct {
	client   *kiloex.Client
	config   cfg.Settings
	products []kiloex.Product // catalog snapshot, fetched once at startup
	metrics  *metrics.Metrics
	store    *storage.Store // optional order journal
}

func New(client *kiloex.Client, config cfg.Settings, products []kiloex.Product, m *metrics.Metrics, store *storage.Store) *Engine {
	return &Engine{
		client:   client,
		config:   config,
		products: products,
		metrics:  m,
		store:    store,
	}
}

// resolveProduct picks the product for one order. Random mode re-rolls on
// every call; an explicit selector must exist in the catalog snapshot.
func (e *Engine) resolveProduct() (kiloex.Product, error) {
	if id, ok := e.config.ProductID(); ok {
		for _, p := range e.products {
			if p.ID == id {
				return p, nil
			}
		}
		return kiloex.Product{}, fmt.Errorf("product %d not in catalog", id)
	}

	if e.config.ProductSelector == cfg.ProductRandom {
		if len(e.products) == 0 {
			return kiloex.Product{}, fmt.Errorf("empty product catalog")
		}
		p := e.products[rand.IntN(len(e.products))]
		log.Info().Str("base", p.Base).Str("name", p.Name).Msg("selected random product")
		return p, nil
	}

	return defaultProduct, nil
}

// OpenPosition opens one position in the given direction. Each attempt
// waits the order pace before submitting; a rate-limited attempt is
// retried after the same pause, up to openAttempts total attempts.
// Insufficient balance is returned as-is for the caller to classify via
// kiloex.IsInsufficientBalance.
func (e *Engine) OpenPosition(ctx context.Context, account, positionType string) (*kiloex.Order, error) {
	product, err := e.resolveProduct()
	if err != nil {
		return nil, err
	}

	req := kiloex.OrderReq{
		Account:      account,
		ProductID:    product.ID,
		Margin:       e.config.Margin,
		Leverage:     e.config.Leverage,
		PositionType: positionType,
		SettleDelay:  e.config.SettleDelay,
	}

	for attempt := 1; ; attempt++ {
		if err := common.Sleep(ctx, e.config.OrderPace); err != nil {
			return nil, err
		}

		order, err := e.client.OpenOrder(ctx, req)
		if err == nil {
			e.metrics.OrdersTotal.Inc()
			e.logOrder(order, positionType, product)
			e.journalOrder(account, order, positionType, product)
			return order, nil
		}

		if kiloex.IsInsufficientBalance(err) {
			e.metrics.InsufficientBalance.Inc()
			log.Error().
				Str("side", positionType).
				Str("required", common.FormatAmount(e.config.Margin)).
				Msg("insufficient balance for position")
			return nil, err
		}

		if kiloex.IsRateLimited(err) && attempt < openAttempts {
			e.metrics.OrderRetries.Inc()
			log.Info().Int("attempt", attempt).Msg("rate limit hit, waiting before retry")
			continue
		}

		return nil, err
	}
}

// OpenPair runs the per-account order policy: always attempt a long, then
// attempt a short only if the long succeeded or was rejected for
// insufficient balance. Any other long failure suppresses the short.
func (e *Engine) OpenPair(ctx context.Context, account string) error {
	long, longErr := e.OpenPosition(ctx, account, kiloex.PositionLong)
	if longErr != nil && !kiloex.IsInsufficientBalance(longErr) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Error().Err(longErr).Msg("failed to open long position")
		return longErr
	}

	if err := common.Sleep(ctx, e.config.OrderPace); err != nil {
		return err
	}

	short, shortErr := e.OpenPosition(ctx, account, kiloex.PositionShort)
	if shortErr != nil && !kiloex.IsInsufficientBalance(shortErr) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Error().Err(shortErr).Msg("failed to open short position")
		return shortErr
	}

	if long != nil && short != nil {
		log.Info().Msg("successfully opened both positions")
	}
	return nil
}

func (e *Engine) logOrder(order *kiloex.Order, positionType string, product kiloex.Product) {
	closeTime := "not set"
	if order.CloseTime > 0 {
		closeTime = time.UnixMilli(order.CloseTime).Format("2006-01-02 15:04:05")
	}
	log.Info().
		Str("side", positionType).
		Str("product", fmt.Sprintf("%s (%s)", product.Base, product.Name)).
		Float64("leverage", order.Leverage).
		Str("margin", common.FormatAmount(order.Margin)).
		Str("closeTime", closeTime).
		Msg("position opened")
}

func (e *Engine) journalOrder(account string, order *kiloex.Order, positionType string, product kiloex.Product) {
	if e.store == nil {
		return
	}
	rec := storage.OrderRecord{
		Account:   account,
		Product:   product.Base,
		Side:      positionType,
		Margin:    order.Margin,
		Leverage:  order.Leverage,
		CloseTime: order.CloseTime,
		Ts:        time.Now(),
	}
	if err := e.store.StoreOrder(rec); err != nil {
		log.Warn().Err(err).Msg("failed to journal order")
	}
}
