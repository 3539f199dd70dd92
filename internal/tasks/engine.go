// Package tasks decides, per account and per cycle, which novice tasks to
// report and claim. Nothing is persisted: every cycle re-evaluates the
// remote task list against the account's fresh progress stats.
package tasks

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"kiloex-bot/internal/common"
	"kiloex-bot/internal/exchange/kiloex"
	"kiloex-bot/internal/metrics"
	"kiloex-bot/internal/storage"
)

type Engine struct {
	client    *kiloex.Client
	metrics   *metrics.Metrics
	store     *storage.Store // optional reward journal
	taskDelay time.Duration
}

func New(client *kiloex.Client, m *metrics.Metrics, store *storage.Store, taskDelay time.Duration) *Engine {
	return &Engine{
		client:    client,
		metrics:   m,
		store:     store,
		taskDelay: taskDelay,
	}
}

// Eligible reports whether a task's typed progress threshold is met.
// Locked tasks and channel speed-boost tasks are never eligible; task types
// without a progress stat are vacuously eligible.
func Eligible(t kiloex.Task, stats kiloex.TaskStats) bool {
	if t.UnlockID != nil {
		return false
	}
	switch t.Type {
	case kiloex.TaskSpeedChannel:
		return false
	case kiloex.TaskMining:
		return len(t.Requirement) > 0 && stats.Mining >= t.Requirement[0].Amount
	case kiloex.TaskTradeCoin:
		return len(t.Requirement) > 0 && stats.TradeVolume >= t.Requirement[0].Amount
	case kiloex.TaskReferral:
		return len(t.Requirement) > 0 && float64(stats.InviteNum) >= t.Requirement[0].Amount
	default:
		return true
	}
}

// ProcessAll fetches the task list for an account and walks every task
// through the report/claim sequence. Individual task failures are logged
// and non-fatal; only the initial list fetch can fail the whole pass.
func (e *Engine) ProcessAll(ctx context.Context, account, name string) error {
	log.Info().Str("name", name).Msg("processing tasks")

	list, stats, err := e.client.TaskList(ctx, account)
	if err != nil {
		return err
	}

	log.Info().
		Str("tradeVolume", common.FormatAmount(stats.TradeVolume)).
		Str("mining", common.FormatAmount(stats.Mining)).
		Int("invites", stats.InviteNum).
		Msg("task statistics")

	// Fast path: when any typed category's lowest threshold is out of
	// reach, the account cannot qualify for anything in that category and
	// the entire per-task pass is skipped for the cycle. This only checks
	// the category minimum, not per-task eligibility.
	if !e.meetsCategoryMinimums(list, stats) {
		return nil
	}

	for _, task := range list {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.process(ctx, account, task, stats)
		if err := common.Sleep(ctx, e.taskDelay); err != nil {
			return err
		}
	}
	return nil
}

// meetsCategoryMinimums computes the minimum requirement across all tasks
// of each typed category and checks the matching stat against it.
func (e *Engine) meetsCategoryMinimums(list []kiloex.Task, stats kiloex.TaskStats) bool {
	met := true
	if min, ok := minRequirement(list, kiloex.TaskMining); ok && stats.Mining < min {
		log.Info().
			Str("progress", common.FormatAmount(stats.Mining)).
			Str("required", common.FormatAmount(min)).
			Msg("below minimum requirement for mining tasks")
		met = false
	}
	if min, ok := minRequirement(list, kiloex.TaskTradeCoin); ok && stats.TradeVolume < min {
		log.Info().
			Str("progress", common.FormatAmount(stats.TradeVolume)).
			Str("required", common.FormatAmount(min)).
			Msg("below minimum requirement for trading tasks")
		met = false
	}
	if min, ok := minRequirement(list, kiloex.TaskReferral); ok && float64(stats.InviteNum) < min {
		log.Info().
			Int("progress", stats.InviteNum).
			Str("required", common.FormatAmount(min)).
			Msg("below minimum requirement for invite tasks")
		met = false
	}
	return met
}

func minRequirement(list []kiloex.Task, taskType string) (float64, bool) {
	var min float64
	found := false
	for _, t := range list {
		if t.Type != taskType || len(t.Requirement) == 0 {
			continue
		}
		if !found || t.Requirement[0].Amount < min {
			min = t.Requirement[0].Amount
			found = true
		}
	}
	return min, found
}

// process runs one task through the state machine: skip completed and
// channel tasks, log locked ones, check eligibility, then report and claim
// with a pause in between.
func (e *Engine) process(ctx context.Context, account string, task kiloex.Task, stats kiloex.TaskStats) {
	if task.Done() {
		return
	}
	if task.Type == kiloex.TaskSubscribeChannel || task.Type == kiloex.TaskSpeedChannel {
		return
	}

	taskName := TranslateName(task.Name)

	if task.UnlockID != nil {
		log.Info().Str("task", taskName).Msg("task locked")
		return
	}

	log.Info().Str("task", taskName).Msg("processing task")

	if !Eligible(task, stats) {
		e.logProgress(task, stats)
		return
	}

	if err := e.client.ReportTask(ctx, account, task.ID); err != nil {
		log.Error().Err(err).Str("task", taskName).Msg("failed to report task")
		return
	}
	e.metrics.TasksReported.Inc()
	log.Info().Str("task", taskName).Msg("task reported")

	if err := common.Sleep(ctx, e.taskDelay); err != nil {
		return
	}

	reward, err := e.client.ClaimTask(ctx, account, task.ID)
	if err != nil {
		log.Error().Err(err).Str("task", taskName).Msg("failed to claim reward")
		return
	}
	e.metrics.TasksClaimed.Inc()
	log.Info().
		Str("task", taskName).
		Str("points", common.FormatAmount(reward.Number)).
		Msg("reward claimed")

	if e.store != nil {
		rec := storage.RewardRecord{
			Account: account,
			Task:    taskName,
			Points:  reward.Number,
			Ts:      time.Now(),
		}
		if err := e.store.StoreReward(rec); err != nil {
			log.Warn().Err(err).Msg("failed to journal reward")
		}
	}
}

func (e *Engine) logProgress(task kiloex.Task, stats kiloex.TaskStats) {
	if len(task.Requirement) == 0 {
		return
	}
	required := task.Requirement[0].Amount
	switch task.Type {
	case kiloex.TaskMining:
		log.Info().
			Str("progress", common.FormatAmount(stats.Mining)).
			Str("required", common.FormatAmount(required)).
			Msg("mining progress")
	case kiloex.TaskTradeCoin:
		log.Info().
			Str("progress", common.FormatAmount(stats.TradeVolume)).
			Str("required", common.FormatAmount(required)).
			Msg("trading progress")
	case kiloex.TaskReferral:
		log.Info().
			Int("progress", stats.InviteNum).
			Str("required", common.FormatAmount(required)).
			Msg("referral progress")
	}
}
